package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
ServiceHost = "127.0.0.1"
ServicePort = 9090

[JWT]
ExpiresIn = "30m"

[Bulk]
Workers = 8

[DNS]
DefaultARecord = "192.0.2.10"

[MinIO]
Enabled = true
Endpoint = "minio:9000"
`

func TestNewConfigReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "portal.toml"), []byte(sampleConfig), 0o600))
	t.Setenv("CONFIG_NAME", "portal")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("MINIO_ACCESS_KEY", "minio")

	cfg, err := NewConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.ServiceHost)
	assert.Equal(t, 9090, cfg.ServicePort)
	assert.Equal(t, 30*time.Minute, cfg.JWT.ExpiresIn)
	assert.Equal(t, "s3cret", cfg.JWT.Token)
	assert.Equal(t, 8, cfg.Bulk.Workers)
	assert.Equal(t, 500, cfg.Bulk.MaxItems)
	assert.Equal(t, "192.0.2.10", cfg.DNS.DefaultARecord)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.True(t, cfg.MinIO.Enabled)
	assert.Equal(t, "minio", cfg.MinIO.AccessKey)
	assert.Equal(t, "batch-reports", cfg.MinIO.Bucket)
	assert.Equal(t, 30, cfg.Expiry.WindowDays)
}

func TestNewConfigDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_NAME", "absent")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_PORT", "")

	cfg, err := NewConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServicePort)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, time.Hour, cfg.JWT.ExpiresIn)
}

func TestNewConfigRequiresSecret(t *testing.T) {
	t.Setenv("CONFIG_NAME", "absent")
	t.Setenv("JWT_SECRET", "")

	_, err := NewConfig(t.TempDir())
	assert.Error(t, err)
}

func TestNewConfigRejectsBadRedisPort(t *testing.T) {
	t.Setenv("CONFIG_NAME", "absent")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_PORT", "six")

	_, err := NewConfig(t.TempDir())
	assert.Error(t, err)
}
