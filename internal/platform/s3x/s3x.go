package s3x

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/utils"
)

const defaultPresignExpiry = 5 * time.Minute

// Service issues short-lived presigned URLs for verification photo uploads
// and reads, and checks object presence for the upload-confirm step.
type Service interface {
	BuildKey(userID, verificationID, ext string) string
	BuildURI(key string) string
	ParseURI(uri string) string
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

type service struct {
	log       *logger.Logger
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

func NewService(log *logger.Logger) (Service, error) {
	serviceLog := log.With("service", "S3Service")

	bucket := utils.GetEnv("S3_BUCKET", "", log)
	if bucket == "" {
		return nil, fmt.Errorf("missing env var S3_BUCKET")
	}
	region := utils.GetEnv("AWS_REGION", "us-east-1", log)
	accessKey := utils.GetEnv("AWS_ACCESS_KEY", "", log)
	secretKey := utils.GetEnv("AWS_SECRET_KEY", "", log)
	endpoint := utils.GetEnv("S3_ENDPOINT", "", log)

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	if endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(svc, reg string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &service{
		log:       serviceLog,
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
	}, nil
}

func (s *service) BuildKey(userID, verificationID, ext string) string {
	return fmt.Sprintf("verifications/%s/%s/photo%s", userID, verificationID, ext)
}

func (s *service) BuildURI(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// ParseURI returns the object key of an s3://bucket/key URI, or "" when the
// URI does not belong to this bucket.
func (s *service) ParseURI(uri string) string {
	prefix := fmt.Sprintf("s3://%s/", s.bucket)
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	return strings.TrimPrefix(uri, prefix)
}

func (s *service) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(defaultPresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign put %q: %w", key, err)
	}
	return req.URL, nil
}

func (s *service) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(defaultPresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get %q: %w", key, err)
	}
	return req.URL, nil
}

func (s *service) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("head object %q: %w", key, err)
}
