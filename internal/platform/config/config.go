// Package config loads process configuration from the environment.
//
// This is the bootstrap layer only: where to listen, which adapters to use and how to reach
// them. Business settings (table names, token secrets, bucket names) live under
// CONFIG_ROOT_KEY in the parameter source and are read through configcache.
package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:",squash"`
	Params   ParamsConfig   `mapstructure:",squash"`
	Storage  StorageConfig  `mapstructure:",squash"`
	AWS      AWSConfig      `mapstructure:",squash"`
	Postgres PostgresConfig `mapstructure:",squash"`
	Redis    RedisConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// AllowedOrigins is a comma separated CORS allow-list; "*" allows any origin.
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

type ParamsConfig struct {
	// RootKey is the parameter path holding the business configuration, e.g. /movement-pass/v1.
	RootKey string `mapstructure:"config_root_key" validate:"required,startswith=/"`
	Source  string `mapstructure:"param_source" validate:"required,oneof=file ssm"`
	File    string `mapstructure:"params_file" validate:"required_if=Source file"`
}

type StorageConfig struct {
	Backend     string `mapstructure:"storage_backend" validate:"required,oneof=memory dynamodb postgres"`
	Blob        string `mapstructure:"blob_backend" validate:"required,oneof=memory s3"`
	Idempotency string `mapstructure:"idempotency_backend" validate:"required,oneof=memory postgres redis"`
}

type AWSConfig struct {
	Region string `mapstructure:"aws_region"`
	// DynamoDBEndpoint overrides the service endpoint, e.g. for DynamoDB Local.
	DynamoDBEndpoint string `mapstructure:"dynamodb_endpoint" validate:"omitempty,url"`
}

type PostgresConfig struct {
	DatabaseURL string `mapstructure:"database_url"`
}

type RedisConfig struct {
	URL string `mapstructure:"redis_url"`
}

var defaults = map[string]any{
	"port":                8080,
	"log_level":           "info",
	"allowed_origins":     "*",
	"config_root_key":     "",
	"param_source":        "file",
	"params_file":         "",
	"storage_backend":     "memory",
	"blob_backend":        "memory",
	"idempotency_backend": "memory",
	"aws_region":          "",
	"dynamodb_endpoint":   "",
	"database_url":        "",
	"redis_url":           "",
}

// Load reads configuration from the environment (PORT, LOG_LEVEL, CONFIG_ROOT_KEY, ...)
// and validates it.
func Load() (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Server.LogLevel = strings.ToLower(cfg.Server.LogLevel)
	cfg.Params.RootKey = strings.TrimRight(cfg.Params.RootKey, "/")

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field rules plus the cross-field requirements of the selected backends.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	needsAWS := cfg.Storage.Backend == "dynamodb" || cfg.Storage.Blob == "s3" || cfg.Params.Source == "ssm"
	if needsAWS && cfg.AWS.Region == "" {
		return fmt.Errorf("invalid config: AWS_REGION is required for the selected backends")
	}
	needsPostgres := cfg.Storage.Backend == "postgres" || cfg.Storage.Idempotency == "postgres"
	if needsPostgres && cfg.Postgres.DatabaseURL == "" {
		return fmt.Errorf("invalid config: DATABASE_URL is required for the postgres backend")
	}
	if cfg.Storage.Idempotency == "redis" && cfg.Redis.URL == "" {
		return fmt.Errorf("invalid config: REDIS_URL is required for the redis idempotency backend")
	}
	return nil
}

// Version is the last path segment of the root key ("/movement-pass/v1" -> "v1").
// It prefixes every API route.
func (c Config) Version() string {
	return path.Base(c.Params.RootKey)
}

// Origins splits AllowedOrigins into a list.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
