package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Store uploads images to an S3 bucket.
type s3Store struct {
	client    ObjectPutter
	bucket    string
	prefix    string
	publicURL string
	logger    zerolog.Logger
}

// NewS3Store creates an S3-backed ImageStore using the default AWS credential chain.
// When publicURL is empty, objects are addressed through the bucket's
// virtual-hosted endpoint.
func NewS3Store(ctx context.Context, bucket, region, prefix, publicURL string, logger zerolog.Logger) (ImageStore, error) {
	logger = logger.With().Str("component", "s3-image-store").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Str("prefix", prefix).
		Msg("S3 image store initialised")

	return newS3Store(s3.NewFromConfig(cfg), bucket, prefix, publicURL, logger), nil
}

func newS3Store(client ObjectPutter, bucket, prefix, publicURL string, logger zerolog.Logger) *s3Store {
	return &s3Store{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		publicURL: publicURL,
		logger:    logger,
	}
}

// Put uploads body as <prefix><key>.
func (s *s3Store) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	objectKey := s.prefix + key

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", objectKey).
			Msg("failed to put object to S3")
		return "", fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, objectKey, err)
	}

	s.logger.Info().
		Str("bucket", s.bucket).
		Str("key", objectKey).
		Msg("image uploaded to S3")

	return joinURL(s.publicURL, objectKey), nil
}
