// Package objectstore keeps binary uploads (response scans) in an
// S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Koyo-os/docusurvey/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const defaultURLExpiry = 15 * time.Minute

type (
	Config struct {
		Bucket          string
		Region          string
		Endpoint        string
		AccessKeyID     string
		SecretAccessKey string
		PathStyle       bool
		// PublicBaseURL, when set, is joined with the key instead of
		// presigning a GET request.
		PublicBaseURL string
		URLExpiry     time.Duration
	}

	Store struct {
		client  *s3.Client
		presign *s3.PresignClient
		bucket  string
		baseURL string
		expiry  time.Duration
		logger  *logger.Logger
	}
)

// New loads the default AWS configuration chain, applies cfg and any extra
// client options on top.
func New(ctx context.Context, cfg Config, logger *logger.Logger, optFns ...func(*s3.Options)) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("error load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	}}, optFns...)...)

	return Init(client, cfg, logger), nil
}

func Init(client *s3.Client, cfg Config, logger *logger.Logger) *Store {
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		expiry:  expiry,
		logger:  logger,
	}
}

// Put uploads data under key and returns a URL the object can be fetched from.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error("error put object",
			zap.String("key", key),
			zap.Error(err))
		return "", fmt.Errorf("error put object %s: %w", key, err)
	}

	return s.URL(ctx, key)
}

// URL returns the public URL of key or a presigned GET valid for the
// configured expiry.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	if s.baseURL != "" {
		return s.baseURL + "/" + escapeKey(key), nil
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = s.expiry
	})
	if err != nil {
		return "", fmt.Errorf("error presign %s: %w", key, err)
	}

	return req.URL, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		s.logger.Error("error delete object",
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("error delete object %s: %w", key, err)
	}

	return nil
}

// IsHealthy checks that the bucket is reachable.
func (s *Store) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err == nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
