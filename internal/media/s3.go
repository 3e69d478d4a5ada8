package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fieldops/fieldops/internal/config"
)

// S3Store keeps objects in an S3-compatible bucket.
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
	logger    *slog.Logger
}

// NewS3Store builds a store from configuration. Static credentials are used
// when an access key is configured, the default chain otherwise.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		switch {
		case cfg.Endpoint != "":
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		default:
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
		}
	}
	return &S3Store{client: client, bucket: cfg.Bucket, publicURL: publicURL, logger: logger}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var (
		notFound     *types.NotFound
		noSuchBucket *types.NoSuchBucket
	)
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("check bucket: %w", err)
	}

	s.logger.Info("creating media bucket", slog.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", err
	}
	return s.publicURL + "/" + key, nil
}
