// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package s3

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/towerofpower256/DavesSNBulkDataExportTool/internal/config"
	"go.uber.org/zap"
)

// Max retries for S3 operations
const maxS3Retries = 5

// Initial retry delay, doubled after every failed attempt. A var so tests
// can shorten it.
var initialRetryDelay = 1 * time.Second

// ManagerUploader is the subset of manager.Uploader the uploader needs.
// This allows mocking in tests.
type ManagerUploader interface {
	Upload(ctx context.Context, input *awss3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Uploader pushes finished export files to S3.
type Uploader struct {
	uploader ManagerUploader
	config   *config.Config
	logger   *zap.Logger
}

// NewUploader creates a new S3 uploader using the SDK default credential
// chain (environment variables, shared credentials file, IAM role).
func NewUploader(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var s3Opts []func(*awss3.Options)

	// Support custom endpoint via environment variable (for LocalStack)
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // Required for LocalStack
		})
		logger.Info("Using custom S3 endpoint", zap.String("endpoint", endpoint))
	}

	client := awss3.NewFromConfig(awsCfg, s3Opts...)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024 // 10MB per part
		u.Concurrency = 3             // 3 concurrent uploads
	})

	return &Uploader{
		uploader: uploader,
		config:   cfg,
		logger:   logger,
	}, nil
}

// ObjectKey returns the S3 key for an exported file.
func (u *Uploader) ObjectKey(table, filename string) string {
	return fmt.Sprintf("%s/%s/%s", u.config.S3Prefix, table, filename)
}

// UploadFile uploads a file to S3. manager.Uploader switches to multipart
// automatically for large files.
func (u *Uploader) UploadFile(ctx context.Context, filepath, s3Key string) error {
	file, err := os.Open(filepath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}
	fileSize := fileInfo.Size()

	u.logger.Info("Uploading file to S3",
		zap.String("file", filepath),
		zap.String("s3_key", s3Key),
		zap.Int64("size", fileSize))

	_, err = u.uploader.Upload(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(u.config.S3Bucket),
		Key:    aws.String(s3Key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	u.logger.Info("File uploaded successfully",
		zap.String("s3_key", s3Key),
		zap.Int64("size", fileSize))

	return nil
}

// UploadFileWithRetry uploads a file with retry logic. The file is reopened
// on every attempt so the body reader starts from the beginning.
func (u *Uploader) UploadFileWithRetry(ctx context.Context, filepath, s3Key string) error {
	var lastErr error
	delay := initialRetryDelay

	for attempt := 1; attempt <= maxS3Retries; attempt++ {
		err := u.UploadFile(ctx, filepath, s3Key)
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt < maxS3Retries {
			u.logger.Warn("Upload failed, retrying",
				zap.String("file", filepath),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", maxS3Retries),
				zap.Error(err))

			time.Sleep(delay)
			delay = time.Duration(float64(delay) * 2) // Exponential backoff
		}
	}

	return fmt.Errorf("upload failed after %d attempts: %w", maxS3Retries, lastErr)
}
