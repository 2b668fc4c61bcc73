// Package storage keeps contract and NDA files in an S3-compatible object
// store (AWS S3, MinIO, RustFS and similar).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/billbatista/acasinha-finance/config"
	"go.uber.org/zap"
)

const (
	defaultEndpoint = "http://localhost:9000"
	defaultRegion   = "us-east-1"
	defaultPresign  = 15 * time.Minute
)

var (
	ErrNoConfig    = errors.New("storage configuration is required")
	ErrNoBucket    = errors.New("storage bucket is required")
	ErrNoAccessKey = errors.New("storage access key is required")
	ErrNoSecretKey = errors.New("storage secret key is required")
	ErrEmptyKey    = errors.New("storage key is required")
	ErrBadEndpoint = errors.New("invalid storage endpoint")
)

type S3ObjectStorage struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	presignExpiration time.Duration
	logger            *zap.Logger
}

type Option func(*S3ObjectStorage)

func WithLogger(logger *zap.Logger) Option {
	return func(s *S3ObjectStorage) {
		s.logger = logger
	}
}

func WithPresignExpiration(d time.Duration) Option {
	return func(s *S3ObjectStorage) {
		s.presignExpiration = d
	}
}

// NewS3ObjectStorage builds a client from cfg. It does not contact the
// store; call EnsureBucket at startup for that.
func NewS3ObjectStorage(cfg *config.StorageConfig, opts ...Option) (*S3ObjectStorage, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	if cfg.AccessKey == "" {
		return nil, ErrNoAccessKey
	}
	if cfg.SecretKey == "" {
		return nil, ErrNoSecretKey
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	s := &S3ObjectStorage{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.presignExpiration <= 0 {
		s.presignExpiration = defaultPresign
	}
	return s, nil
}

func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return defaultEndpoint, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrBadEndpoint, endpoint)
	}
	return endpoint, nil
}

// EnsureBucket creates the bucket unless it already exists.
func (s *S3ObjectStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("checking bucket: %w", err)
	}

	s.logger.Info("creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("creating bucket: %w", err)
	}
	return nil
}

func (s *S3ObjectStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("uploading object: %w", err)
	}
	return nil
}

// PresignGet returns a time-limited download URL for key.
func (s *S3ObjectStorage) PresignGet(ctx context.Context, key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrEmptyKey
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presigning download: %w", err)
	}
	return req.URL, time.Now().Add(s.presignExpiration), nil
}

func (s *S3ObjectStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}
