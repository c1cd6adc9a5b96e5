package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FileStore is the object-store half of the remote backend: blobs keyed by
// an opaque file id, plus derived access URLs. Implementations own no book
// logic.
type FileStore interface {
	CreateFile(ctx context.Context, fileID string, data []byte, contentType string) error
	FileViewURL(ctx context.Context, fileID string) (string, error)
	FileDownloadURL(ctx context.Context, fileID, filename string) (string, error)
	DeleteFile(ctx context.Context, fileID string) error
}

type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
	expiry time.Duration
}

var _ FileStore = (*S3Storage)(nil)

func NewS3Storage(ctx context.Context, bucket, region, accessKeyID, secretAccessKey string, urlExpiry time.Duration) (*S3Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if urlExpiry <= 0 {
		urlExpiry = 15 * time.Minute
	}
	return &S3Storage{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: "books/",
		expiry: urlExpiry,
	}, nil
}

func (s *S3Storage) key(fileID string) string {
	return s.prefix + fileID
}

// CreateFile stores the blob under the given file id.
func (s *S3Storage) CreateFile(ctx context.Context, fileID string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(fileID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return err
}

// FileViewURL returns a temporary URL for displaying the file in the browser
// (inline disposition, for the PDF viewer and cover images).
func (s *S3Storage) FileViewURL(ctx context.Context, fileID string) (string, error) {
	return s.presign(ctx, fileID, "inline")
}

// FileDownloadURL returns a temporary URL that saves the file under the given
// name instead of displaying it.
func (s *S3Storage) FileDownloadURL(ctx context.Context, fileID, filename string) (string, error) {
	disposition := "attachment"
	if filename != "" {
		// Sanitize for Content-Disposition: escape \ and ", then quote
		safe := strings.ReplaceAll(filename, "\\", "\\\\")
		safe = strings.ReplaceAll(safe, "\"", "\\\"")
		disposition = `attachment; filename="` + safe + `"`
	}
	return s.presign(ctx, fileID, disposition)
}

func (s *S3Storage) presign(ctx context.Context, fileID, disposition string) (string, error) {
	input := &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(s.key(fileID)),
		ResponseContentDisposition: aws.String(disposition),
	}
	presigner := s3.NewPresignClient(s.client)
	req, err := presigner.PresignGetObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = s.expiry
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3Storage) DeleteFile(ctx context.Context, fileID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(fileID)),
	})
	return err
}
