// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/config"
)

// StorageService archives generated documents. Without AWS credentials it
// runs disabled and uploads are skipped.
type StorageService struct {
	s3Client s3iface.S3API
	bucket   string
	region   string
	prefix   string
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	if cfg.AccessKeyID == "" {
		return &StorageService{bucket: cfg.S3Bucket, region: cfg.Region, prefix: cfg.ExportPrefix}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewStorageServiceWithClient(s3.New(sess), cfg), nil
}

// NewStorageServiceWithClient is used with a preconfigured or fake S3 client.
func NewStorageServiceWithClient(client s3iface.S3API, cfg config.AWSConfig) *StorageService {
	return &StorageService{
		s3Client: client,
		bucket:   cfg.S3Bucket,
		region:   cfg.Region,
		prefix:   cfg.ExportPrefix,
	}
}

func (s *StorageService) Enabled() bool {
	return s.s3Client != nil
}

// Key joins name under the configured prefix.
func (s *StorageService) Key(name string) string {
	return path.Join(s.prefix, name)
}

// Upload stores body under key. It returns nil, nil when storage is disabled.
func (s *StorageService) Upload(ctx context.Context, key, contentType string, body []byte) (*UploadResult, error) {
	if !s.Enabled() {
		logrus.WithField("key", key).Debug("Storage not configured, upload skipped")
		return nil, nil
	}

	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		URL:      s.objectURL(key),
		Key:      key,
		Size:     int64(len(body)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) objectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
