package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ProviderType identifies the S3-compatible backend flavor.
type ProviderType string

const (
	ProviderR2           ProviderType = "r2"
	ProviderS3           ProviderType = "s3"
	ProviderS3Compatible ProviderType = "s3compatible"
)

// S3Config holds configuration for S3-compatible archive storage.
type S3Config struct {
	Provider  ProviderType
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	PublicURL string // Public URL prefix for R2.dev or custom CDN
}

// S3Archive implements ArchiveStore for S3-compatible services.
type S3Archive struct {
	client    *s3.Client
	bucket    string
	provider  ProviderType
	publicURL string
}

// NewS3Archive creates an archive store backed by an S3-compatible service.
// The provider flavor is auto-detected from the endpoint when unset.
func NewS3Archive(cfg *S3Config) (*S3Archive, error) {
	if cfg.Provider == "" {
		cfg.Provider = detectProvider(cfg.Endpoint)
	}

	// Normalize endpoint: remove protocol prefix and trailing slashes/paths
	endpoint := normalizeEndpoint(cfg.Endpoint)

	region := cfg.Region
	if region == "" {
		if cfg.Provider == ProviderR2 {
			region = "auto"
		} else {
			region = "us-east-1"
		}
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(fmt.Sprintf("%s://%s", scheme, endpoint))
		}
		o.UsePathStyle = true // Path-style works across all S3-compatible services
	})

	return &S3Archive{
		client:    client,
		bucket:    cfg.Bucket,
		provider:  cfg.Provider,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// detectProvider guesses the backend flavor from the endpoint host.
func detectProvider(endpoint string) ProviderType {
	endpoint = strings.ToLower(endpoint)
	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return ProviderR2
	case endpoint == "", strings.Contains(endpoint, "amazonaws.com"):
		return ProviderS3
	default:
		return ProviderS3Compatible
	}
}

// normalizeEndpoint removes protocol prefix and path from endpoint
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return strings.TrimSuffix(endpoint, "/")
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *S3Archive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	// R2 doesn't support creating buckets via API - must use dashboard
	if s.provider == ProviderR2 {
		return fmt.Errorf("bucket %s does not exist, please create it in R2 dashboard", s.bucket)
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Upload stores an archive under key.
func (s *S3Archive) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}
	return nil
}

// GetURL returns the public URL for an uploaded archive.
func (s *S3Archive) GetURL(key string) string {
	if s.publicURL == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", s.publicURL, key)
}
