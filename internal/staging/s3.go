package staging

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sony/gobreaker/v2"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/ingestion"
)

// S3API is the part of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client builds an S3 client. A custom endpoint targets S3-compatible
// services such as R2 or MinIO.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Cannot load AWS configuration", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// S3Store keeps documents in a bucket.
type S3Store struct {
	client  S3API
	bucket  string
	prefix  string
	breaker *Breaker
}

// NewS3Store stores objects under cfg.Prefix in cfg.Bucket.
func NewS3Store(client S3API, cfg config.S3Config, breaker *Breaker) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		breaker: breaker,
	}
}

func (s *S3Store) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := s.prefix + stagedName(name)
	contentType := contentTypeFor(name)

	_, err := s.breaker.Execute(func() (string, error) {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		return key, err
	})
	if err != nil {
		return "", s.wrap(fmt.Sprintf("Cannot upload %s to bucket %s", name, s.bucket), err)
	}
	return key, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	_, err := s.breaker.Execute(func() (string, error) {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return key, err
		}
		defer out.Body.Close()
		data, err = io.ReadAll(out.Body)
		return key, err
	})
	if err != nil {
		return nil, s.wrap(fmt.Sprintf("Cannot download %s from bucket %s", key, s.bucket), err)
	}
	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.breaker.Execute(func() (string, error) {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return key, err
	})
	if err != nil {
		return s.wrap(fmt.Sprintf("Cannot delete %s from bucket %s", key, s.bucket), err)
	}
	return nil
}

func (s *S3Store) wrap(message string, err error) error {
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.NewNetworkError(errors.ErrCodeStorageFailed, message+": storage temporarily unavailable", err)
	}
	return errors.NewStorageError(errors.ErrCodeStorageFailed, message, err)
}

var documentTypes = map[string]string{
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".md":       "text/markdown; charset=utf-8",
	".markdown": "text/markdown; charset=utf-8",
	".txt":      "text/plain; charset=utf-8",
}

func contentTypeFor(name string) string {
	ext := ingestion.Extension(name)
	if t, ok := documentTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (s *S3Store) Backend() string { return config.StorageBackendS3 }

// BreakerStats reports the circuit breaker state.
func (s *S3Store) BreakerStats() map[string]any { return s.breaker.Stats() }
