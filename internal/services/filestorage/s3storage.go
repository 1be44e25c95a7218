package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/config"
)

type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     *config.S3Config
}

func NewS3Storage(cfg *config.Config) (*S3Storage, error) {
	if cfg.S3 == nil {
		return nil, fmt.Errorf("s3 config is not set")
	}

	credentialsProvider := credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, "")
	awsCfg, err := awsConfig.LoadDefaultConfig(
		context.TODO(),
		awsConfig.WithRegion(cfg.S3.Region),
		awsConfig.WithCredentialsProvider(credentialsProvider),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.EndpointURL != "" {
			o.BaseEndpoint = &cfg.S3.EndpointURL
		}
	})

	return &S3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg.S3,
	}, nil
}

func (s *S3Storage) UploadResult(ctx context.Context, buffer []byte, generationID string) (string, error) {
	return s.put(ctx, resultKey(s.cfg.Folder, generationID), buffer)
}

func (s *S3Storage) UploadSelfie(ctx context.Context, encoded string, generationID string) (string, error) {
	buffer, err := decodeSelfie(encoded)
	if err != nil {
		return "", err
	}

	return s.put(ctx, selfieKey(s.cfg.Folder, generationID), buffer)
}

func (s *S3Storage) UploadReference(ctx context.Context, buffer []byte, name string) (string, error) {
	return s.put(ctx, referenceKey(s.cfg.Folder, name), buffer)
}

func (s *S3Storage) GetResultSasURL(ctx context.Context, generationID string, expiry time.Duration) (string, error) {
	key := resultKey(s.cfg.Folder, generationID)
	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.cfg.Bucket,
		Key:    &key,
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", err
	}

	return request.URL, nil
}

func (s *S3Storage) put(ctx context.Context, key string, buffer []byte) (string, error) {
	mtype := mimetype.Detect(buffer).String()

	input := s3.PutObjectInput{
		Key:         &key,
		ContentType: &mtype,
		Bucket:      &s.cfg.Bucket,
		Body:        bytes.NewReader(buffer),
		ACL:         s3types.ObjectCannedACLPublicRead,
	}
	if _, err := s.client.PutObject(ctx, &input); err != nil {
		return "", err
	}

	return s.publicURL(key), nil
}

func (s *S3Storage) publicURL(key string) string {
	if s.cfg.VanityURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(s.cfg.VanityURL, "/"), key)
	}

	endpoint := strings.TrimPrefix(s.cfg.EndpointURL, "https://")
	endpoint = strings.TrimSuffix(endpoint, "/")
	if endpoint == "" {
		endpoint = fmt.Sprintf("s3.%s.amazonaws.com", s.cfg.Region)
	}

	return fmt.Sprintf("https://%s.%s/%s", s.cfg.Bucket, endpoint, key)
}

var _ Storage = (*S3Storage)(nil)
