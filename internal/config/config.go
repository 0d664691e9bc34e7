// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Authentication modes for the ServiceNow Table API.
const (
	AuthNone  = "none"
	AuthBasic = "basic"
)

const (
	// DefaultPageSize is the number of rows requested per page.
	DefaultPageSize = 500

	// DefaultQuery orders by sys_id so pagination offsets are stable.
	DefaultQuery = "ORDERBYsys_id"

	// instanceHostTemplate derives the instance host from its short name.
	instanceHostTemplate = "%s.service-now.com"
)

// Config holds all configuration for the export tool.
type Config struct {
	// Source
	Table        string
	Query        string
	Fields       []string
	InstanceName string
	InstanceURL  string

	// Paging
	PageSize int
	RowLimit int // 0 = unlimited

	// Rendering
	DisplayValue bool

	// Authentication
	AuthMode       string
	Username       string
	Password       string
	PasswordSecret string // AWS Secrets Manager secret name

	// Output
	OutputPath string
	Delimiter  string // Default: ","

	// Optional S3 upload of the finished file
	S3Bucket  string
	S3Prefix  string // Default: "sn-export"
	AWSRegion string

	// Explicit AWS IAM credentials. Empty = SDK default chain.
	AWSAccessKey    string
	AWSSecretKey    string
	AWSSessionToken string

	// Output Control
	LogFile string // empty = stderr
	Verbose bool
	Quiet   bool
}

// LoadConfig loads configuration from CLI flags, environment variables, and YAML file.
// Priority: CLI flags > environment variables > YAML file > defaults
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// CLI flags
	table := flag.String("table", "", "ServiceNow table to export (e.g. incident)")
	query := flag.String("query", "", fmt.Sprintf("Encoded query to filter rows (default: %s)", DefaultQuery))
	fields := flag.String("fields", "", "Comma-separated field list; dot-walking allowed (e.g. caller_id.email). Empty = all fields")
	instanceName := flag.String("instance-name", "", "ServiceNow instance short name (e.g. dev71826)")
	instanceURL := flag.String("instance-url", "", "Full instance hostname, for instances with a custom URL")
	pageSize := flag.Int("page-size", 0, fmt.Sprintf("Rows per page / request (default: %d)", DefaultPageSize))
	rowLimit := flag.Int("row-limit", 0, "Stop after this many rows (0 = unlimited)")
	displayValue := flag.Bool("display-value", false, "Fetch display values instead of system values")
	authMode := flag.String("auth-mode", "", "Authentication mode: none or basic (default: none)")
	username := flag.String("basic-username", "", "Basic authentication username")
	password := flag.String("basic-password", "", "Basic authentication password")
	passwordSecret := flag.String("password-secret", "", "AWS Secrets Manager secret holding the basic auth password")
	output := flag.String("output", "", "Path of the CSV file to write")
	delimiter := flag.String("delimiter", "", "Output field delimiter (default: ,)")
	s3Bucket := flag.String("s3-bucket", "", "Upload the finished file to this S3 bucket (optional)")
	s3Prefix := flag.String("s3-prefix", "", "S3 key prefix (default: sn-export)")
	awsRegion := flag.String("aws-region", "", "AWS region for S3 and Secrets Manager")
	awsAccessKey := flag.String("aws-access-key", "", "AWS access key ID (default: SDK credential chain)")
	awsSecretKey := flag.String("aws-secret-key", "", "AWS secret access key (default: SDK credential chain)")
	awsSessionToken := flag.String("aws-session-token", "", "AWS session token for temporary credentials")
	configFile := flag.String("config-file", "sn-export.yaml", "Config file path (default: sn-export.yaml)")
	logFile := flag.String("log-file", "", "Append logs to this file instead of stderr")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	quiet := flag.Bool("quiet", false, "Suppress the summary block (useful when run via script)")

	flag.Parse()

	// Load from YAML file if it exists
	if *configFile != "" {
		if err := loadFromYAML(cfg, *configFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnv(cfg)

	// Override with CLI flags (highest priority)
	if *table != "" {
		cfg.Table = *table
	}
	if *query != "" {
		cfg.Query = *query
	}
	if *fields != "" {
		cfg.Fields = SplitFields(*fields)
	}
	if *instanceName != "" {
		cfg.InstanceName = *instanceName
	}
	if *instanceURL != "" {
		cfg.InstanceURL = *instanceURL
	}
	if *pageSize > 0 {
		cfg.PageSize = *pageSize
	}
	if *rowLimit > 0 {
		cfg.RowLimit = *rowLimit
	}
	if *displayValue {
		cfg.DisplayValue = true
	}
	if *authMode != "" {
		cfg.AuthMode = *authMode
	}
	if *username != "" {
		cfg.Username = *username
	}
	if *password != "" {
		cfg.Password = *password
	}
	if *passwordSecret != "" {
		cfg.PasswordSecret = *passwordSecret
	}
	if *output != "" {
		cfg.OutputPath = *output
	}
	if *delimiter != "" {
		cfg.Delimiter = *delimiter
	}
	if *s3Bucket != "" {
		cfg.S3Bucket = *s3Bucket
	}
	if *s3Prefix != "" {
		cfg.S3Prefix = *s3Prefix
	}
	if *awsRegion != "" {
		cfg.AWSRegion = *awsRegion
	}
	if *awsAccessKey != "" {
		cfg.AWSAccessKey = *awsAccessKey
	}
	if *awsSecretKey != "" {
		cfg.AWSSecretKey = *awsSecretKey
	}
	if *awsSessionToken != "" {
		cfg.AWSSessionToken = *awsSessionToken
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if *verbose {
		cfg.Verbose = true
	}
	if *quiet {
		cfg.Quiet = true
	}

	// Set defaults
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills zero values with the documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}
	if cfg.AuthMode == "" {
		cfg.AuthMode = AuthNone
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = ","
	}
	if cfg.S3Prefix == "" {
		cfg.S3Prefix = "sn-export"
	}
}

// Validate checks required fields and cross-field constraints. It performs
// no I/O, so a bad config is rejected before any network call.
func (c *Config) Validate() error {
	if c.Table == "" {
		return fmt.Errorf("table is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output is required")
	}
	if c.InstanceName == "" && c.InstanceURL == "" {
		return fmt.Errorf("instance-name and instance-url cannot both be empty")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page-size must be positive, got %d", c.PageSize)
	}
	if c.RowLimit < 0 {
		return fmt.Errorf("row-limit cannot be negative, got %d", c.RowLimit)
	}

	switch c.AuthMode {
	case AuthNone:
		// Nothing to validate here
	case AuthBasic:
		if c.Username == "" {
			return fmt.Errorf("basic-username cannot be empty when using basic authentication")
		}
		if c.Password == "" && c.PasswordSecret == "" {
			return fmt.Errorf("basic-password or password-secret is required when using basic authentication")
		}
		if c.PasswordSecret != "" && c.AWSRegion == "" {
			return fmt.Errorf("aws-region is required when password-secret is set")
		}
	default:
		return fmt.Errorf("unsupported auth mode: %s (must be none or basic)", c.AuthMode)
	}

	if c.S3Bucket != "" && c.AWSRegion == "" {
		return fmt.Errorf("aws-region is required when s3-bucket is set")
	}

	return nil
}

// Host returns the resolved instance hostname. When no explicit URL is
// configured it is derived from the instance short name.
func (c *Config) Host() string {
	if c.InstanceURL != "" {
		return c.InstanceURL
	}
	return fmt.Sprintf(instanceHostTemplate, c.InstanceName)
}

// SplitFields parses a comma-separated field list, trimming whitespace and
// dropping empty entries.
func SplitFields(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// loadFromYAML loads configuration from a YAML file.
func loadFromYAML(cfg *Config, filepath string) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return err
	}

	var yamlCfg struct {
		Table          string `yaml:"table"`
		Query          string `yaml:"query"`
		Fields         string `yaml:"fields"`
		InstanceName   string `yaml:"instance_name"`
		InstanceURL    string `yaml:"instance_url"`
		PageSize       int    `yaml:"page_size"`
		RowLimit       int    `yaml:"row_limit"`
		DisplayValue   bool   `yaml:"display_value"`
		AuthMode       string `yaml:"auth_mode"`
		Username       string `yaml:"basic_username"`
		Password       string `yaml:"basic_password"`
		PasswordSecret string `yaml:"password_secret"`
		OutputPath     string `yaml:"output"`
		Delimiter      string `yaml:"delimiter"`
		S3Bucket       string `yaml:"s3_bucket"`
		S3Prefix       string `yaml:"s3_prefix"`
		AWSRegion      string `yaml:"aws_region"`
		LogFile        string `yaml:"log_file"`
	}

	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return err
	}

	if yamlCfg.Table != "" {
		cfg.Table = yamlCfg.Table
	}
	if yamlCfg.Query != "" {
		cfg.Query = yamlCfg.Query
	}
	if yamlCfg.Fields != "" {
		cfg.Fields = SplitFields(yamlCfg.Fields)
	}
	if yamlCfg.InstanceName != "" {
		cfg.InstanceName = yamlCfg.InstanceName
	}
	if yamlCfg.InstanceURL != "" {
		cfg.InstanceURL = yamlCfg.InstanceURL
	}
	if yamlCfg.PageSize > 0 {
		cfg.PageSize = yamlCfg.PageSize
	}
	if yamlCfg.RowLimit > 0 {
		cfg.RowLimit = yamlCfg.RowLimit
	}
	cfg.DisplayValue = yamlCfg.DisplayValue
	if yamlCfg.AuthMode != "" {
		cfg.AuthMode = yamlCfg.AuthMode
	}
	if yamlCfg.Username != "" {
		cfg.Username = yamlCfg.Username
	}
	if yamlCfg.Password != "" {
		cfg.Password = yamlCfg.Password
	}
	if yamlCfg.PasswordSecret != "" {
		cfg.PasswordSecret = yamlCfg.PasswordSecret
	}
	if yamlCfg.OutputPath != "" {
		cfg.OutputPath = yamlCfg.OutputPath
	}
	if yamlCfg.Delimiter != "" {
		cfg.Delimiter = yamlCfg.Delimiter
	}
	if yamlCfg.S3Bucket != "" {
		cfg.S3Bucket = yamlCfg.S3Bucket
	}
	if yamlCfg.S3Prefix != "" {
		cfg.S3Prefix = yamlCfg.S3Prefix
	}
	if yamlCfg.AWSRegion != "" {
		cfg.AWSRegion = yamlCfg.AWSRegion
	}
	if yamlCfg.LogFile != "" {
		cfg.LogFile = yamlCfg.LogFile
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func loadFromEnv(cfg *Config) {
	if val := os.Getenv("SN_EXPORT_TABLE"); val != "" {
		cfg.Table = val
	}
	if val := os.Getenv("SN_EXPORT_QUERY"); val != "" {
		cfg.Query = val
	}
	if val := os.Getenv("SN_EXPORT_FIELDS"); val != "" {
		cfg.Fields = SplitFields(val)
	}
	if val := os.Getenv("SN_EXPORT_INSTANCE_NAME"); val != "" {
		cfg.InstanceName = val
	}
	if val := os.Getenv("SN_EXPORT_INSTANCE_URL"); val != "" {
		cfg.InstanceURL = val
	}
	if val := os.Getenv("SN_EXPORT_PAGE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			cfg.PageSize = size
		}
	}
	if val := os.Getenv("SN_EXPORT_ROW_LIMIT"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			cfg.RowLimit = limit
		}
	}
	if val := os.Getenv("SN_EXPORT_DISPLAY_VALUE"); val != "" {
		cfg.DisplayValue = (val == "true" || val == "1")
	}
	if val := os.Getenv("SN_EXPORT_AUTH_MODE"); val != "" {
		cfg.AuthMode = val
	}
	if val := os.Getenv("SN_EXPORT_USERNAME"); val != "" {
		cfg.Username = val
	}
	if val := os.Getenv("SN_EXPORT_PASSWORD"); val != "" {
		cfg.Password = val
	}
	if val := os.Getenv("SN_EXPORT_PASSWORD_SECRET"); val != "" {
		cfg.PasswordSecret = val
	}
	if val := os.Getenv("SN_EXPORT_OUTPUT"); val != "" {
		cfg.OutputPath = val
	}
	if val := os.Getenv("SN_EXPORT_DELIMITER"); val != "" {
		cfg.Delimiter = val
	}
	if val := os.Getenv("SN_EXPORT_S3_BUCKET"); val != "" {
		cfg.S3Bucket = val
	}
	if val := os.Getenv("SN_EXPORT_S3_PREFIX"); val != "" {
		cfg.S3Prefix = val
	}
	if val := os.Getenv("SN_EXPORT_AWS_REGION"); val != "" {
		cfg.AWSRegion = val
	}
	if val := os.Getenv("SN_EXPORT_LOG_FILE"); val != "" {
		cfg.LogFile = val
	}
}
