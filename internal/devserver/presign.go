package devserver

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader hands out a URL the agent can PUT attachment bytes to.
type Uploader interface {
	PresignPut(ctx context.Context, key string) (string, error)
}

// S3Uploader presigns PUT URLs against an S3-compatible endpoint (MinIO in
// dev).
type S3Uploader struct {
	cfg *Config
}

func NewS3Uploader(cfg *Config) *S3Uploader {
	return &S3Uploader{cfg: cfg}
}

func (u *S3Uploader) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(u.cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			u.cfg.S3User,
			u.cfg.S3Password,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(u.cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return s3.NewPresignClient(client), nil
}

func (u *S3Uploader) PresignPut(ctx context.Context, key string) (string, error) {
	presignClient, err := u.presignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := u.cfg.S3Bucket

	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// LocalUploader points the agent back at the dev server's own /uploads
// endpoint. Used when no S3 endpoint is configured.
type LocalUploader struct {
	baseURL string
}

func NewLocalUploader(baseURL string) *LocalUploader {
	return &LocalUploader{baseURL: baseURL}
}

func (u *LocalUploader) PresignPut(_ context.Context, key string) (string, error) {
	return u.baseURL + "/uploads/" + key, nil
}
