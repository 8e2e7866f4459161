// Package config loads runtime settings from the environment (and an optional file) with viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds every setting the server and the CLI commands need.
type Config struct {
	AppPort         string        `validate:"required"`
	AppEnv          string        `validate:"oneof=development production test"`
	LogLevel        string        `validate:"oneof=debug info warn error"`
	KVDriver        string        `validate:"oneof=sqlite postgres memory"`
	DatabaseDSN     string        `validate:"required_unless=KVDriver memory"`
	AllowedTimeDiff time.Duration `validate:"gt=0"`
	BlobDir         string        `validate:"required"`
	JWTSecret       string        `validate:"required,min=8"`
	OperatorUUIDs   []string      `validate:"dive,uuid"`
	OperatorTTL     time.Duration `validate:"gt=0"`
	RabbitMQURL     string
	SplitterURL     string `validate:"omitempty,url"`
	ProcessorURL    string `validate:"omitempty,url"`
	UpstreamTimeout time.Duration `validate:"gt=0"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":7243")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("KV_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:storefront.db")
	v.SetDefault("ALLOWED_TIME_DIFFERENCE", 600000) // milliseconds
	v.SetDefault("BLOB_DIR", "./data")
	v.SetDefault("JWT_SECRET", "change-me-please")
	v.SetDefault("OPERATOR_UUIDS", "")
	v.SetDefault("OPERATOR_TOKEN_TTL", "1h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("SPLITTER_URL", "")
	v.SetDefault("PROCESSOR_URL", "")
	v.SetDefault("UPSTREAM_TIMEOUT", "10s")
}

// Load reads configuration from the environment and, when configFile is not empty, from that file.
// Environment variables win over the file.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		AppPort:         v.GetString("APP_PORT"),
		AppEnv:          v.GetString("APP_ENV"),
		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
		KVDriver:        strings.ToLower(v.GetString("KV_DRIVER")),
		DatabaseDSN:     v.GetString("DATABASE_DSN"),
		AllowedTimeDiff: time.Duration(v.GetInt64("ALLOWED_TIME_DIFFERENCE")) * time.Millisecond,
		BlobDir:         v.GetString("BLOB_DIR"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		OperatorUUIDs:   splitList(v.GetString("OPERATOR_UUIDS")),
		OperatorTTL:     v.GetDuration("OPERATOR_TOKEN_TTL"),
		RabbitMQURL:     v.GetString("RABBITMQ_URL"),
		SplitterURL:     v.GetString("SPLITTER_URL"),
		ProcessorURL:    v.GetString("PROCESSOR_URL"),
		UpstreamTimeout: v.GetDuration("UPSTREAM_TIMEOUT"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
