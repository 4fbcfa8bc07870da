package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/docplatform/authz-service/internal/core/port"
	"github.com/docplatform/authz-service/internal/infra/config"
)

// BlobStore stores document payloads in an S3 bucket.
type BlobStore struct {
	bucket string
	svc    *s3.S3
	logger *zap.Logger
}

// NewBlobStore creates an S3-backed blob store. A custom endpoint with path
// style addressing supports MinIO in development.
func NewBlobStore(cfg config.S3Settings, logger *zap.Logger) (*BlobStore, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.ForcePathStyle {
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	logger.Info("s3 blob store initialized",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region),
	)

	return &BlobStore{
		bucket: cfg.Bucket,
		svc:    s3.New(sess),
		logger: logger,
	}, nil
}

// Upload stores the payload under the given key.
func (s *BlobStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   aws.ReadSeekCloser(body),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.svc.PutObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}

	return nil
}

// Delete removes the object under the given key.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a time-limited download URL for the object.
func (s *BlobStore) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	req, _ := s.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}

	return url, nil
}

var _ port.BlobStore = (*BlobStore)(nil)
