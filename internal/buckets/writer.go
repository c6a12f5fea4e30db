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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cardinalhq/mediarunner/internal/logctx"
)

const (
	// Above this size a single CopyObject call is no longer allowed and the
	// copy must go through multipart UploadPartCopy.
	multipartCopyThreshold = 5 * 1024 * 1024 * 1024

	copyPartSize = 1024 * 1024 * 1024
)

// CopyOutcome is the tri-state result of a bucket-to-bucket copy.
type CopyOutcome int

const (
	CopySuccess CopyOutcome = iota
	CopyFileTooLarge
	CopyError
)

// CopyResult reports how a copy ended and the source size when known.
type CopyResult struct {
	Outcome CopyOutcome
	Size    int64
}

// SizeVerifier is consulted with the source object's size before any bytes
// move. Returning false vetoes the copy.
type SizeVerifier func(ctx context.Context, size int64) (bool, error)

// Writer stores and moves objects in storage buckets.
type Writer interface {
	WriteFileToBucket(ctx context.Context, dest ObjectInBucket, filePath, contentType string) error
	WriteBytesToBucket(ctx context.Context, dest ObjectInBucket, body []byte, contentType string) error
	// CopyLargeObject copies src to dest entirely server side, verifying the
	// source size first when a verifier is given. A vetoed copy leaves no
	// destination object behind.
	CopyLargeObject(ctx context.Context, src, dest ObjectInBucket, verifier SizeVerifier) (CopyResult, error)
	DeleteObject(ctx context.Context, target ObjectInBucket) error
}

type s3WriteAPI interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	UploadPartCopy(ctx context.Context, params *s3.UploadPartCopyInput, optFns ...func(*s3.Options)) (*s3.UploadPartCopyOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Writer struct {
	api      s3WriteAPI
	uploader *manager.Uploader
}

// NewS3Writer wraps an S3 client as a Writer.
func NewS3Writer(api s3WriteAPI) Writer {
	return &s3Writer{
		api:      api,
		uploader: manager.NewUploader(api),
	}
}

func (w *s3Writer) WriteFileToBucket(ctx context.Context, dest ObjectInBucket, filePath, contentType string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening %s for upload: %w", filePath, err)
	}
	defer func() { _ = f.Close() }()

	input := &s3.PutObjectInput{
		Bucket: aws.String(dest.Bucket),
		Key:    aws.String(dest.Key),
		Body:   f,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := w.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("uploading %s to %s: %w", filePath, dest.S3URI(), err)
	}
	return nil
}

func (w *s3Writer) WriteBytesToBucket(ctx context.Context, dest ObjectInBucket, body []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(dest.Bucket),
		Key:    aws.String(dest.Key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := w.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("writing %d bytes to %s: %w", len(body), dest.S3URI(), err)
	}
	return nil
}

func (w *s3Writer) CopyLargeObject(ctx context.Context, src, dest ObjectInBucket, verifier SizeVerifier) (CopyResult, error) {
	head, err := w.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(src.Bucket),
		Key:    aws.String(src.Key),
	})
	if err != nil {
		return CopyResult{Outcome: CopyError}, fmt.Errorf("heading source %s: %w", src.S3URI(), err)
	}
	size := aws.ToInt64(head.ContentLength)

	if verifier != nil {
		ok, err := verifier(ctx, size)
		if err != nil {
			return CopyResult{Outcome: CopyError, Size: size}, fmt.Errorf("verifying size of %s: %w", src.S3URI(), err)
		}
		if !ok {
			return CopyResult{Outcome: CopyFileTooLarge, Size: size}, nil
		}
	}

	copySource := src.Bucket + "/" + src.Key

	if size <= multipartCopyThreshold {
		_, err := w.api.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(dest.Bucket),
			Key:        aws.String(dest.Key),
			CopySource: aws.String(copySource),
		})
		if err != nil {
			return CopyResult{Outcome: CopyError, Size: size}, fmt.Errorf("copying %s to %s: %w", src.S3URI(), dest.S3URI(), err)
		}
		return CopyResult{Outcome: CopySuccess, Size: size}, nil
	}

	if err := w.multipartCopy(ctx, copySource, dest, size, aws.ToString(head.ContentType)); err != nil {
		return CopyResult{Outcome: CopyError, Size: size}, fmt.Errorf("copying %s to %s: %w", src.S3URI(), dest.S3URI(), err)
	}
	return CopyResult{Outcome: CopySuccess, Size: size}, nil
}

func (w *s3Writer) multipartCopy(ctx context.Context, copySource string, dest ObjectInBucket, size int64, contentType string) error {
	createInput := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(dest.Bucket),
		Key:    aws.String(dest.Key),
	}
	if contentType != "" {
		createInput.ContentType = aws.String(contentType)
	}
	created, err := w.api.CreateMultipartUpload(ctx, createInput)
	if err != nil {
		return fmt.Errorf("creating multipart upload: %w", err)
	}
	uploadID := created.UploadId

	abort := func(cause error) error {
		// background so that a cancelled ctx still lets us clean up
		abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		_, abortErr := w.api.AbortMultipartUpload(abortCtx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(dest.Bucket),
			Key:      aws.String(dest.Key),
			UploadId: uploadID,
		})
		if abortErr != nil {
			logctx.FromContext(ctx).Error("Failed to abort multipart copy",
				"bucket", dest.Bucket, "key", dest.Key, "error", abortErr)
			return errors.Join(cause, abortErr)
		}
		return cause
	}

	var completed []types.CompletedPart
	var partNumber int32
	for offset := int64(0); offset < size; offset += copyPartSize {
		partNumber++
		last := offset + copyPartSize - 1
		if last >= size {
			last = size - 1
		}
		part, err := w.api.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
			Bucket:          aws.String(dest.Bucket),
			Key:             aws.String(dest.Key),
			UploadId:        uploadID,
			PartNumber:      aws.Int32(partNumber),
			CopySource:      aws.String(copySource),
			CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", offset, last)),
		})
		if err != nil {
			return abort(fmt.Errorf("copying part %d: %w", partNumber, err))
		}
		completed = append(completed, types.CompletedPart{
			ETag:       part.CopyPartResult.ETag,
			PartNumber: aws.Int32(partNumber),
		})
	}

	_, err = w.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(dest.Bucket),
		Key:      aws.String(dest.Key),
		UploadId: uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return abort(fmt.Errorf("completing multipart upload: %w", err))
	}
	return nil
}

func (w *s3Writer) DeleteObject(ctx context.Context, target ObjectInBucket) error {
	_, err := w.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(target.Bucket),
		Key:    aws.String(target.Key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", target.S3URI(), err)
	}
	return nil
}
