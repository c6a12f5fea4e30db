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

// Package buckets handles object-storage addressing and transfer for asset
// ingestion: parsing origin URIs into bucket/key/region triples, generating
// destination keys, and reading/writing/copying objects.
package buckets

import (
	"fmt"
	"regexp"
)

// ObjectInBucket addresses a single object, optionally qualified with an
// explicit region when the origin URI carried one.
type ObjectInBucket struct {
	Bucket string
	Key    string
	Region string
}

// S3URI returns the canonical s3://bucket/key form.
func (o ObjectInBucket) S3URI() string {
	return fmt.Sprintf("s3://%s/%s", o.Bucket, o.Key)
}

func (o ObjectInBucket) IsZero() bool {
	return o.Bucket == "" && o.Key == ""
}

// Origin URIs arrive in several shapes: the legacy region-qualified
// s3://region/bucket/key form, plain s3://bucket/key, and the http(s)
// virtual-hosted and path-style AWS endpoint forms.
var (
	reS3Qualified = regexp.MustCompile(`^s3://(\w{2}-\w+-\d)/(.*?)/(.*)$`)
	reS3          = regexp.MustCompile(`^s3://(.*?)/(.*)$`)
	reHTTPRegion  = regexp.MustCompile(`^https?://s3[-.](\S+-\S+-\d)\.amazonaws\.com/(.*?)/(.*)$`)
	reHTTPVHost   = regexp.MustCompile(`^https?://(.*?)\.s3\.amazonaws\.com/(.*)$`)
	reHTTPVHostRg = regexp.MustCompile(`^https?://(.*?)\.s3\.(.*?)\.amazonaws\.com/(.*)$`)
	reHTTPPath    = regexp.MustCompile(`^https?://s3\.amazonaws\.com/(.*?)/(.*)$`)
)

// ParseRegionalised parses an s3:// or http(s):// object URI. The result may
// or may not carry a region. Returns an error when the URI matches none of
// the known forms.
func ParseRegionalised(uri string) (ObjectInBucket, error) {
	if m := reS3Qualified.FindStringSubmatch(uri); m != nil {
		return ObjectInBucket{Region: m[1], Bucket: m[2], Key: m[3]}, nil
	}
	if m := reS3.FindStringSubmatch(uri); m != nil {
		return ObjectInBucket{Bucket: m[1], Key: m[2]}, nil
	}
	if m := reHTTPRegion.FindStringSubmatch(uri); m != nil {
		return ObjectInBucket{Region: m[1], Bucket: m[2], Key: m[3]}, nil
	}
	if m := reHTTPVHost.FindStringSubmatch(uri); m != nil {
		return ObjectInBucket{Bucket: m[1], Key: m[2]}, nil
	}
	if m := reHTTPVHostRg.FindStringSubmatch(uri); m != nil {
		return ObjectInBucket{Bucket: m[1], Region: m[2], Key: m[3]}, nil
	}
	if m := reHTTPPath.FindStringSubmatch(uri); m != nil {
		return ObjectInBucket{Bucket: m[1], Key: m[2]}, nil
	}
	return ObjectInBucket{}, fmt.Errorf("unable to parse %q to an object in bucket", uri)
}
