package storage

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appErr "github.com/specforge/engine/pkg/errors"
)

// R2Config holds the connection settings for an S3-compatible bucket
// (Cloudflare R2, MinIO, or plain S3).
type R2Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// PublicBaseURL, when set, marks the bucket public: download URLs are
	// computed as PublicBaseURL/key instead of being presigned.
	PublicBaseURL string
}

// R2Store implements Store over the AWS S3 API.
type R2Store struct {
	client        *s3.Client
	presign       *s3.PresignClient
	bucket        string
	publicBaseURL string
}

var _ Store = (*R2Store)(nil)

// NewR2Store builds an S3 client for the configured endpoint. R2 wants the
// "auto" region and path-style addressing.
func NewR2Store(ctx context.Context, cfg R2Config) (*R2Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "load storage config failed")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &R2Store{
		client:        client,
		presign:       s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *R2Store) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "storage upload failed")
	}
	return nil
}

func (s *R2Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeUnavailable, "presign download url failed")
	}
	return req.URL, nil
}

func (s *R2Store) PublicURL(key string) (string, bool) {
	if s.publicBaseURL == "" {
		return "", false
	}
	return s.publicBaseURL + "/" + key, true
}
