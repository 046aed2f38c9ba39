package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/maheshrc27/curapost/configs"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const r2KeyPrefix = "media/"

// ObjectMirror copies downloaded media to object storage.
type ObjectMirror interface {
	Mirror(ctx context.Context, ext string, file []byte, contentType string) (string, error)
}

type R2Service struct {
	config cfg.R2
	client *s3.Client
}

func NewR2Service(ctx context.Context, r2 cfg.R2) (*R2Service, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	})
	return &R2Service{config: r2, client: client}, nil
}

// Mirror uploads the file under a random key and returns its public URL, or the key
// when no public URL is configured.
func (r *R2Service) Mirror(ctx context.Context, ext string, file []byte, contentType string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	key := r2KeyPrefix + id
	if ext != "" {
		key += "." + ext
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.config.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to r2: %w", key, err)
	}

	if r.config.PublicURL == "" {
		return key, nil
	}
	return strings.TrimRight(r.config.PublicURL, "/") + "/" + key, nil
}
