// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package util

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// LoadAWSCredentials loads AWS IAM credentials with the following priority:
// 1. CLI flags (accessKeyID, secretAccessKey, sessionToken) - highest priority
// 2. Environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_SESSION_TOKEN)
// 3. AWS SDK default chain (AWS CLI credentials, SSO cache, IAM roles, etc.)
//
// Only sets environment variables when CLI flags are explicitly provided;
// otherwise the SDK default credential chain is left untouched.
func LoadAWSCredentials(accessKeyID, secretAccessKey, sessionToken string) {
	if accessKeyID != "" && secretAccessKey != "" {
		_ = os.Setenv("AWS_ACCESS_KEY_ID", accessKeyID)
		_ = os.Setenv("AWS_SECRET_ACCESS_KEY", secretAccessKey)
		// Session token is optional - only set if provided
		if sessionToken != "" {
			_ = os.Setenv("AWS_SESSION_TOKEN", sessionToken)
		}
	}
}

// SecretValueGetter is the Secrets Manager call used to fetch the basic
// auth password. This allows mocking in tests.
type SecretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// GetPasswordFromSecretsManager retrieves the ServiceNow basic auth
// password from AWS Secrets Manager. The secret may be a plain string or a
// JSON object with a "password" field.
func GetPasswordFromSecretsManager(ctx context.Context, secretName, region string) (string, error) {
	if secretName == "" {
		return "", fmt.Errorf("secret name is required for Secrets Manager")
	}
	if region == "" {
		return "", fmt.Errorf("region is required for Secrets Manager")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		return "", fmt.Errorf("create AWS config: %w", err)
	}

	return getPassword(ctx, secretsmanager.NewFromConfig(awsCfg), secretName)
}

// getPassword fetches and decodes the secret value.
func getPassword(ctx context.Context, svc SecretValueGetter, secretName string) (string, error) {
	out, err := svc.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretName),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return "", fmt.Errorf("get secret value: %w", err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret string empty for %s", secretName)
	}

	secret := *out.SecretString

	// JSON payload takes precedence over a raw password string.
	if strings.HasPrefix(strings.TrimSpace(secret), "{") {
		var payload struct {
			Password string `json:"password"`
		}
		if err := json.Unmarshal([]byte(secret), &payload); err != nil {
			return "", fmt.Errorf("parse secret json: %w", err)
		}
		if payload.Password == "" {
			return "", fmt.Errorf("password field empty in secret %s", secretName)
		}
		return payload.Password, nil
	}

	return secret, nil
}
