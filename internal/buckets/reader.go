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

package buckets

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectFromBucket is a streamed object. Callers own Body and must close it.
type ObjectFromBucket struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Reader fetches objects from storage buckets.
type Reader interface {
	// GetObject streams an object. A missing object is not an error: it
	// returns (nil, nil).
	GetObject(ctx context.Context, src ObjectInBucket) (*ObjectFromBucket, error)
}

type s3Reader struct {
	api s3GetAPI
}

type s3GetAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Reader wraps an S3 client as a Reader.
func NewS3Reader(api s3GetAPI) Reader {
	return &s3Reader{api: api}
}

func (r *s3Reader) GetObject(ctx context.Context, src ObjectInBucket) (*ObjectFromBucket, error) {
	out, err := r.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(src.Bucket),
		Key:    aws.String(src.Key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting object %s: %w", src.S3URI(), err)
	}

	obj := &ObjectFromBucket{
		Body:        out.Body,
		ContentType: aws.ToString(out.ContentType),
	}
	if out.ContentLength != nil {
		obj.ContentLength = *out.ContentLength
	}
	return obj, nil
}
