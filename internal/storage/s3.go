package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/xerrors"
)

type S3Config struct {
	Bucket string
	// Prefix is prepended to every key.
	Prefix string
	// EndpointURL points the client at an S3 compatible service such as MinIO.
	EndpointURL string
}

type s3Storage struct {
	client *s3.Client
	config S3Config
}

func NewS3Storage(ctx context.Context, s S3Config) (Storage, error) {
	if s.Bucket == "" {
		return nil, xerrors.New("bucket is required")
	}

	c, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(c, func(o *s3.Options) {
		o.UsePathStyle = true
		if s.EndpointURL != "" {
			o.BaseEndpoint = aws.String(s.EndpointURL)
		}
	})

	return &s3Storage{
		client: client,
		config: s,
	}, nil
}

func (s *s3Storage) Put(ctx context.Context, key string, data []byte) (string, error) {
	key = path.Join(s.config.Prefix, key)
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", xerrors.Errorf("failed to upload %s to S3: %w", key, err)
	}

	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, key), nil
}

func (s *s3Storage) Get(ctx context.Context, url string) ([]byte, error) {
	key := strings.TrimPrefix(url, fmt.Sprintf("s3://%s/", s.config.Bucket))

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to download %s from S3: %w", key, err)
	}
	defer result.Body.Close()

	var buffer bytes.Buffer
	if _, err := buffer.ReadFrom(result.Body); err != nil {
		return nil, xerrors.Errorf("failed to read S3 object %s: %w", key, err)
	}
	return buffer.Bytes(), nil
}
