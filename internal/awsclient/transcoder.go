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

package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder"
)

type TranscoderClient struct {
	Client *elastictranscoder.Client
}

type transcoderConfig struct {
	RoleARN string
	Region  string
}

// TranscoderOption is a functional option for GetTranscoder.
type TranscoderOption func(*transcoderConfig)

// WithTranscoderRole sets the IAM Role ARN to assume (empty = no assume).
func WithTranscoderRole(roleARN string) TranscoderOption {
	return func(c *transcoderConfig) {
		c.RoleARN = roleARN
	}
}

// WithTranscoderRegion overrides the AWS region for this call.
func WithTranscoderRegion(region string) TranscoderOption {
	return func(c *transcoderConfig) {
		c.Region = region
	}
}

func (m *Manager) GetTranscoder(ctx context.Context, opts ...TranscoderOption) (*TranscoderClient, error) {
	tc := transcoderConfig{
		Region: m.baseCfg.Region,
	}
	for _, o := range opts {
		o(&tc)
	}

	cfg := m.baseCfg.Copy()
	cfg.Region = tc.Region
	cfg.Credentials = m.credentialsFor(tc.Region, tc.RoleARN)

	return &TranscoderClient{Client: elastictranscoder.NewFromConfig(cfg)}, nil
}
