package avatar

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

type Config struct {
	// Bucket that stores avatar objects
	Bucket string
	Region string

	// Custom endpoint for S3 compatible storages (minio and friends)
	// Leave empty for AWS itself
	Endpoint string

	AccessKey string
	SecretKey string

	// Base url the stored objects are served from
	// If empty the endpoint/bucket pair is used
	PublicBaseURL string
}

// S3Storage keeps user avatars in an S3 bucket
// Objects are keyed by user email so a re-upload overwrites the previous avatar
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3Storage(ctx context.Context, cfg Config) (*S3Storage, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("can't load s3 config. Err: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
	}

	return &S3Storage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
	}, nil
}

// Upload stores the avatar and returns its public url
func (s *S3Storage) Upload(ctx context.Context, email string, contentType string, body io.Reader) (string, error) {
	key := objectKey(email)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("can't upload avatar. Err: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}

func objectKey(email string) string {
	return "avatars/" + strings.ToLower(email)
}
