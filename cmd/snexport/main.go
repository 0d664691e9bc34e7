// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/towerofpower256/DavesSNBulkDataExportTool/internal/config"
	"github.com/towerofpower256/DavesSNBulkDataExportTool/internal/exporter"
	snlog "github.com/towerofpower256/DavesSNBulkDataExportTool/internal/log"
	"github.com/towerofpower256/DavesSNBulkDataExportTool/internal/s3"
	"github.com/towerofpower256/DavesSNBulkDataExportTool/internal/servicenow"
	"github.com/towerofpower256/DavesSNBulkDataExportTool/internal/util"
	"go.uber.org/zap"
)

func main() {
	start := time.Now()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := snlog.NewLogger(cfg.LogFile, cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Starting export",
		zap.String("instance", cfg.Host()),
		zap.String("table", cfg.Table),
		zap.String("query", cfg.Query))

	if cfg.RowLimit > 0 {
		logger.Info("Row limit", zap.Int("row_limit", cfg.RowLimit))
	}

	ctx := context.Background()

	// Seed explicit IAM credentials before any AWS client is built
	if cfg.PasswordSecret != "" || cfg.S3Bucket != "" {
		util.LoadAWSCredentials(cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSSessionToken)
	}

	// Resolve the basic auth password from Secrets Manager when no inline
	// password was given
	if cfg.AuthMode == config.AuthBasic && cfg.Password == "" {
		password, err := util.GetPasswordFromSecretsManager(ctx, cfg.PasswordSecret, cfg.AWSRegion)
		if err != nil {
			logger.Error("Failed to resolve basic auth password", zap.Error(err))
			os.Exit(1)
		}
		cfg.Password = password
	}

	// Run export
	client := servicenow.NewClient(cfg, logger)
	exp := exporter.NewExporter(client, cfg, logger)

	result, err := exp.Export(ctx)
	if err != nil {
		logger.Error("Export failed", zap.Error(err))
		os.Exit(1)
	}

	// Upload the finished file if requested
	var s3Key string
	if cfg.S3Bucket != "" {
		uploader, err := s3.NewUploader(ctx, cfg, logger)
		if err != nil {
			logger.Error("Failed to create S3 uploader", zap.Error(err))
			os.Exit(1)
		}

		s3Key = uploader.ObjectKey(cfg.Table, filepath.Base(result.FilePath))
		if err := uploader.UploadFileWithRetry(ctx, result.FilePath, s3Key); err != nil {
			logger.Error("Failed to upload export to S3", zap.Error(err))
			os.Exit(1)
		}
	}

	// Print summary
	if !cfg.Quiet {
		fmt.Printf("\n=== Export Summary ===\n")
		fmt.Printf("Instance: %s\n", cfg.Host())
		fmt.Printf("Table: %s\n", cfg.Table)
		fmt.Printf("Rows exported: %d\n", result.RowCount)
		fmt.Printf("Pages fetched: %d\n", result.Pages)
		fmt.Printf("Output file: %s\n", result.FilePath)
		if s3Key != "" {
			fmt.Printf("S3 location: s3://%s/%s\n", cfg.S3Bucket, s3Key)
		}
		fmt.Printf("======================\n")
	}

	logger.Info("Export completed successfully",
		zap.Int("rows", result.RowCount),
		zap.Int("pages", result.Pages),
		zap.Duration("elapsed", time.Since(start)))
}
