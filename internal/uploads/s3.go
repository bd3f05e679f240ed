package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// projectTag is the URL-encoded S3 object tagging string for cost allocation.
const projectTag = "Project=post-image"

// s3API is the subset of the S3 client used by S3Storage.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage stores files under a key prefix in an S3 bucket.
type S3Storage struct {
	client  s3API
	bucket  string
	prefix  string
	baseURL string
}

// Compile-time interface check.
var _ Storage = (*S3Storage)(nil)

// NewS3Storage creates an S3Storage. baseURL is the public URL that serves
// the prefix (e.g. a CloudFront distribution).
func NewS3Storage(client *s3.Client, bucket, prefix, baseURL string) *S3Storage {
	return &S3Storage{client: client, bucket: bucket, prefix: prefix, baseURL: baseURL}
}

// BaseDir implements Storage.
func (s *S3Storage) BaseDir() string { return s.prefix }

// BaseURL implements Storage.
func (s *S3Storage) BaseURL() string { return s.baseURL }

// URL implements Storage.
func (s *S3Storage) URL(name string) string { return joinURL(s.baseURL, path.Base(name)) }

// Key returns the object key for name.
func (s *S3Storage) Key(name string) string {
	return path.Join(s.prefix, path.Base(name))
}

// Exists implements Storage.
func (s *S3Storage) Exists(ctx context.Context, name string) (bool, error) {
	key := s.Key(name)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("S3 HeadObject %s: %w", key, err)
	}
	return true, nil
}

// Write implements Storage. A single PutObject replaces the object
// atomically.
func (s *S3Storage) Write(ctx context.Context, name string, data []byte, contentType string) error {
	key := s.Key(name)
	input := &s3.PutObjectInput{
		Bucket:  &s.bucket,
		Key:     &key,
		Body:    bytes.NewReader(data),
		Tagging: aws.String(projectTag),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("S3 PutObject %s: %w", key, err)
	}
	log.Debug().Str("bucket", s.bucket).Str("key", key).Int("bytes", len(data)).Msg("Upload written to S3")
	return nil
}
