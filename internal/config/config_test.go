package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"storefront/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":7243", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.KVDriver)
	assert.Equal(t, 10*time.Minute, cfg.AllowedTimeDiff)
	assert.Equal(t, time.Hour, cfg.OperatorTTL)
	assert.Empty(t, cfg.OperatorUUIDs)
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("ALLOWED_TIME_DIFFERENCE", "30000")
	t.Setenv("KV_DRIVER", "MEMORY")
	t.Setenv("OPERATOR_UUIDS", " 0b8a1c9e-7d5f-4a3b-9c2e-1f6d8e4a2b7c , ")

	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.AllowedTimeDiff)
	assert.Equal(t, "memory", cfg.KVDriver)
	assert.Equal(t, []string{"0b8a1c9e-7d5f-4a3b-9c2e-1f6d8e4a2b7c"}, cfg.OperatorUUIDs)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT: \":9000\"\nLOG_LEVEL: debug\n"), 0o600))

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.AppPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("KV_DRIVER", "redis")
	_, err := config.Load(viper.New(), "")
	assert.Error(t, err)

	t.Setenv("KV_DRIVER", "memory")
	t.Setenv("OPERATOR_UUIDS", "not-a-uuid")
	_, err = config.Load(viper.New(), "")
	assert.Error(t, err)
}
