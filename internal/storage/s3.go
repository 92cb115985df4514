package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// s3API is the subset of the S3 client used here
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 stores blobs under assets/{base}/ in a bucket
type S3 struct {
	client s3API
	bucket string
}

// NewS3 creates an S3 blob store for bucket
func NewS3(cfg aws.Config, bucket string) *S3 {
	return &S3{client: s3.NewFromConfig(cfg), bucket: bucket}
}

// newS3WithClient is used by tests
func newS3WithClient(client s3API, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// Key returns the object key for an asset of document base
func Key(base, name string) string {
	return path.Join("assets", base, name)
}

// Put uploads data and returns s3://{bucket}/assets/{base}/{name}
func (s *S3) Put(ctx context.Context, base, name string, data []byte, contentType string) (string, error) {
	key := Key(base, name)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, describe(err))
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Download copies bucket/key into a temporary directory, keeping the object's
// base name. cleanup removes the directory.
func (s *S3) Download(ctx context.Context, bucket, key string) (localPath string, cleanup func(), err error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch s3://%s/%s: %w", bucket, key, describe(err))
	}
	defer out.Body.Close()

	dir, err := os.MkdirTemp("", "docgraph-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup = func() { os.RemoveAll(dir) }

	localPath = filepath.Join(dir, path.Base(key))
	f, err := os.Create(localPath)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	return localPath, cleanup, nil
}

// describe prefixes AWS API errors with their code
func describe(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", apiErr.ErrorCode(), err)
	}
	return err
}
