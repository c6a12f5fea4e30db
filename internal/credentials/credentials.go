// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package credentials resolves the per-strategy secrets used to fetch
// assets from protected origins. Credentials are stored either inline on
// the origin strategy row as a JSON document, or as an s3:// reference to
// a JSON document in a bucket.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/buckets"
)

// BasicCredentials is a username/password pair for basic-auth and sftp
// origins.
type BasicCredentials struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type cacheValue struct {
	creds *BasicCredentials
	err   error
}

// Store resolves and caches credentials for origin strategies.
type Store struct {
	reader buckets.Reader
	cache  *ttlcache.Cache[string, cacheValue]
}

// NewStore builds a Store. reader is used for s3:// credential references
// and may be nil when only inline credentials are in play.
func NewStore(reader buckets.Reader) *Store {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, cacheValue](5 * time.Minute),
	)
	go cache.Start()
	return &Store{reader: reader, cache: cache}
}

func (s *Store) Close() {
	s.cache.Stop()
}

// Get returns the credentials for a strategy, or (nil, nil) when the
// strategy has none configured.
func (s *Store) Get(ctx context.Context, cos *assetdb.CustomerOriginStrategy) (*BasicCredentials, error) {
	if cos == nil || strings.TrimSpace(cos.Credentials) == "" {
		return nil, nil
	}

	loader := ttlcache.LoaderFunc[string, cacheValue](
		func(c *ttlcache.Cache[string, cacheValue], key string) *ttlcache.Item[string, cacheValue] {
			creds, err := s.resolve(ctx, cos.Credentials)
			return c.Set(key, cacheValue{creds: creds, err: err}, ttlcache.DefaultTTL)
		},
	)
	item := s.cache.Get(cos.ID, ttlcache.WithLoader[string, cacheValue](loader))
	v := item.Value()
	return v.creds, v.err
}

func (s *Store) resolve(ctx context.Context, raw string) (*BasicCredentials, error) {
	var doc []byte
	if strings.HasPrefix(raw, "s3://") {
		if s.reader == nil {
			return nil, fmt.Errorf("credential reference %q requires a bucket reader", raw)
		}
		ref, err := buckets.ParseRegionalised(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing credential reference: %w", err)
		}
		obj, err := s.reader.GetObject(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("fetching credentials from %s: %w", raw, err)
		}
		if obj == nil {
			return nil, fmt.Errorf("credentials object %s does not exist", raw)
		}
		defer func() { _ = obj.Body.Close() }()
		doc, err = io.ReadAll(obj.Body)
		if err != nil {
			return nil, fmt.Errorf("reading credentials from %s: %w", raw, err)
		}
	} else {
		doc = []byte(raw)
	}

	var creds BasicCredentials
	if err := json.Unmarshal(doc, &creds); err != nil {
		return nil, fmt.Errorf("unmarshalling credentials: %w", err)
	}
	if creds.User == "" {
		return nil, fmt.Errorf("credentials document has no user")
	}
	return &creds, nil
}
