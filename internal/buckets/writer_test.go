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
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	headSize int64
	headErr  error

	copyCalls     int
	copyErr       error
	putCalls      []*s3.PutObjectInput
	createCalls   int
	partCopyCalls []string
	partCopyFail  int // fail on this part number, 0 = never
	completeCalls int
	abortCalls    int
	deleteCalls   int
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(f.headSize)}, nil
}

func (f *fakeS3) CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.copyCalls++
	if f.copyErr != nil {
		return nil, f.copyErr
	}
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putCalls = append(f.putCalls, params)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return &s3.UploadPartOutput{ETag: aws.String("etag")}, nil
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.createCalls++
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-1")}, nil
}

func (f *fakeS3) UploadPartCopy(ctx context.Context, params *s3.UploadPartCopyInput, optFns ...func(*s3.Options)) (*s3.UploadPartCopyOutput, error) {
	f.partCopyCalls = append(f.partCopyCalls, aws.ToString(params.CopySourceRange))
	if f.partCopyFail > 0 && int(aws.ToInt32(params.PartNumber)) == f.partCopyFail {
		return nil, errors.New("part copy failed")
	}
	return &s3.UploadPartCopyOutput{
		CopyPartResult: &s3types.CopyPartResult{ETag: aws.String("etag")},
	}, nil
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.completeCalls++
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.abortCalls++
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleteCalls++
	return &s3.DeleteObjectOutput{}, nil
}

var (
	testSrc  = ObjectInBucket{Bucket: "src-bucket", Key: "99/1/clip"}
	testDest = ObjectInBucket{Bucket: "dest-bucket", Key: "99/1/clip"}
)

func TestCopyLargeObjectSmallUsesSingleCopy(t *testing.T) {
	fake := &fakeS3{headSize: 1024}
	w := NewS3Writer(fake)

	res, err := w.CopyLargeObject(context.Background(), testSrc, testDest, nil)
	require.NoError(t, err)
	assert.Equal(t, CopySuccess, res.Outcome)
	assert.Equal(t, int64(1024), res.Size)
	assert.Equal(t, 1, fake.copyCalls)
	assert.Equal(t, 0, fake.createCalls)
}

func TestCopyLargeObjectVerifierVetoMovesNothing(t *testing.T) {
	fake := &fakeS3{headSize: 5000}
	w := NewS3Writer(fake)

	res, err := w.CopyLargeObject(context.Background(), testSrc, testDest, func(ctx context.Context, size int64) (bool, error) {
		assert.Equal(t, int64(5000), size)
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, CopyFileTooLarge, res.Outcome)
	assert.Equal(t, int64(5000), res.Size)
	assert.Equal(t, 0, fake.copyCalls)
	assert.Equal(t, 0, fake.createCalls)
}

func TestCopyLargeObjectVerifierError(t *testing.T) {
	fake := &fakeS3{headSize: 5000}
	w := NewS3Writer(fake)

	res, err := w.CopyLargeObject(context.Background(), testSrc, testDest, func(ctx context.Context, size int64) (bool, error) {
		return false, errors.New("policy lookup failed")
	})
	require.Error(t, err)
	assert.Equal(t, CopyError, res.Outcome)
	assert.Equal(t, 0, fake.copyCalls)
}

func TestCopyLargeObjectOversizedGoesMultipart(t *testing.T) {
	const size = multipartCopyThreshold + copyPartSize + 100
	fake := &fakeS3{headSize: size}
	w := NewS3Writer(fake)

	res, err := w.CopyLargeObject(context.Background(), testSrc, testDest, nil)
	require.NoError(t, err)
	assert.Equal(t, CopySuccess, res.Outcome)
	assert.Equal(t, 0, fake.copyCalls)
	assert.Equal(t, 1, fake.createCalls)
	assert.Equal(t, 1, fake.completeCalls)
	assert.Equal(t, 0, fake.abortCalls)
	require.Len(t, fake.partCopyCalls, 7)
	assert.Equal(t, "bytes=0-1073741823", fake.partCopyCalls[0])
}

func TestCopyLargeObjectMultipartFailureAborts(t *testing.T) {
	fake := &fakeS3{headSize: multipartCopyThreshold + 1, partCopyFail: 2}
	w := NewS3Writer(fake)

	res, err := w.CopyLargeObject(context.Background(), testSrc, testDest, nil)
	require.Error(t, err)
	assert.Equal(t, CopyError, res.Outcome)
	assert.Equal(t, 1, fake.abortCalls)
	assert.Equal(t, 0, fake.completeCalls)
}

func TestCopyLargeObjectMissingSource(t *testing.T) {
	fake := &fakeS3{headErr: errors.New("NotFound")}
	w := NewS3Writer(fake)

	res, err := w.CopyLargeObject(context.Background(), testSrc, testDest, nil)
	require.Error(t, err)
	assert.Equal(t, CopyError, res.Outcome)
}

func TestWriteBytesToBucketSetsContentType(t *testing.T) {
	fake := &fakeS3{}
	w := NewS3Writer(fake)

	err := w.WriteBytesToBucket(context.Background(), testDest, []byte(`{"jobId":"x"}`), "application/json")
	require.NoError(t, err)
	require.Len(t, fake.putCalls, 1)
	assert.Equal(t, "application/json", aws.ToString(fake.putCalls[0].ContentType))
	assert.Equal(t, "dest-bucket", aws.ToString(fake.putCalls[0].Bucket))
}
