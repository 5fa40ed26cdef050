package objectstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config carries the bucket endpoint settings read from the environment.
type S3Config struct {
	Endpoint   string
	Region     string
	AccessKey  string
	SecretKey  string
	PublicBase string
}

// S3Client talks to any S3-compatible store (MinIO in dev, hosted storage in
// prod). Public URLs are served from PublicBase, which may differ from the
// API endpoint when a CDN sits in front of the bucket.
type S3Client struct {
	client     *s3.Client
	publicBase string
}

func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load storage credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	publicBase := cfg.PublicBase
	if publicBase == "" {
		publicBase = cfg.Endpoint
	}

	return &S3Client{client: client, publicBase: publicBase}, nil
}

func (c *S3Client) Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (string, error) {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(objectPath),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s/%s: %w", bucket, objectPath, err)
	}
	return PublicURL(c.publicBase, bucket, objectPath), nil
}

func (c *S3Client) Delete(ctx context.Context, bucket, objectPath string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", bucket, objectPath, err)
	}
	return nil
}
