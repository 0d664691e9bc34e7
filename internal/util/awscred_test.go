// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package util

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type mockSecretValueGetter struct {
	secret *string
	err    error

	gotSecretID     string
	gotVersionStage string
}

func (m *mockSecretValueGetter) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	m.gotSecretID = aws.ToString(params.SecretId)
	m.gotVersionStage = aws.ToString(params.VersionStage)
	if m.err != nil {
		return nil, m.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: m.secret}, nil
}

func TestGetPassword_PlainString(t *testing.T) {
	mock := &mockSecretValueGetter{secret: aws.String("hunter2")}

	got, err := getPassword(context.Background(), mock, "sn/basic-auth")
	if err != nil {
		t.Fatalf("getPassword() error = %v", err)
	}
	if got != "hunter2" {
		t.Errorf("expected hunter2, got %q", got)
	}
	if mock.gotSecretID != "sn/basic-auth" {
		t.Errorf("unexpected secret id %s", mock.gotSecretID)
	}
	if mock.gotVersionStage != "AWSCURRENT" {
		t.Errorf("expected AWSCURRENT version stage, got %s", mock.gotVersionStage)
	}
}

func TestGetPassword_JSONPayload(t *testing.T) {
	mock := &mockSecretValueGetter{secret: aws.String(`{"username": "admin", "password": "hunter2"}`)}

	got, err := getPassword(context.Background(), mock, "sn/basic-auth")
	if err != nil {
		t.Fatalf("getPassword() error = %v", err)
	}
	if got != "hunter2" {
		t.Errorf("expected password field from json secret, got %q", got)
	}
}

func TestGetPassword_Errors(t *testing.T) {
	tests := []struct {
		name string
		mock *mockSecretValueGetter
	}{
		{"service error", &mockSecretValueGetter{err: errors.New("ResourceNotFoundException")}},
		{"nil secret string", &mockSecretValueGetter{}},
		{"json without password field", &mockSecretValueGetter{secret: aws.String(`{"username": "admin"}`)}},
		{"malformed json", &mockSecretValueGetter{secret: aws.String(`{"password": `)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := getPassword(context.Background(), tt.mock, "sn/basic-auth"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadAWSCredentials(t *testing.T) {
	t.Run("explicit credentials set env vars", func(t *testing.T) {
		t.Setenv("AWS_ACCESS_KEY_ID", "")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "")
		t.Setenv("AWS_SESSION_TOKEN", "")

		LoadAWSCredentials("AKIAEXAMPLE", "secret", "token")

		if got := os.Getenv("AWS_ACCESS_KEY_ID"); got != "AKIAEXAMPLE" {
			t.Errorf("expected access key to be set, got %q", got)
		}
		if got := os.Getenv("AWS_SECRET_ACCESS_KEY"); got != "secret" {
			t.Errorf("expected secret key to be set, got %q", got)
		}
		if got := os.Getenv("AWS_SESSION_TOKEN"); got != "token" {
			t.Errorf("expected session token to be set, got %q", got)
		}
	})

	t.Run("no credentials leaves default chain alone", func(t *testing.T) {
		t.Setenv("AWS_ACCESS_KEY_ID", "")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "")

		LoadAWSCredentials("", "", "")

		if got := os.Getenv("AWS_ACCESS_KEY_ID"); got != "" {
			t.Errorf("expected access key untouched, got %q", got)
		}
	})

	t.Run("access key alone is not enough", func(t *testing.T) {
		t.Setenv("AWS_ACCESS_KEY_ID", "")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "")

		LoadAWSCredentials("AKIAEXAMPLE", "", "")

		if got := os.Getenv("AWS_ACCESS_KEY_ID"); got != "" {
			t.Errorf("expected access key untouched without a secret key, got %q", got)
		}
	})
}

func TestGetPasswordFromSecretsManager_InputValidation(t *testing.T) {
	if _, err := GetPasswordFromSecretsManager(context.Background(), "", "us-east-1"); err == nil {
		t.Error("expected error for empty secret name")
	}
	if _, err := GetPasswordFromSecretsManager(context.Background(), "sn/basic-auth", ""); err == nil {
		t.Error("expected error for empty region")
	}
}
