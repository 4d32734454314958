package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "minio123")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_PORT", "")
	t.Setenv("PRODUCT_CACHE_TTL", "")
	t.Setenv("MINIO_USE_SSL", "")
	t.Setenv("MAX_IMAGE_BYTES", "")
	t.Setenv("GO_ENV", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.Equal(t, 5*time.Minute, cfg.ProductCacheTTL)
	assert.False(t, cfg.MinioUseSSL)
	assert.Equal(t, int64(5242880), cfg.MaxImageBytes)
	assert.Equal(t, "dev", cfg.GoEnv)
	assert.False(t, cfg.IsProduction())
	assert.Contains(t, cfg.DSN(), "port=5432")
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("PRODUCT_CACHE_TTL", "30s")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("GO_ENV", "prod")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DSN())
	assert.Equal(t, 30*time.Second, cfg.ProductCacheTTL)
	assert.True(t, cfg.MinioUseSSL)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"missing port", "PORT", ""},
		{"missing jwt secret", "JWT_SECRET", ""},
		{"missing minio endpoint", "MINIO_ENDPOINT", ""},
		{"bad postgres port", "POSTGRES_PORT", "abc"},
		{"bad ttl", "PRODUCT_CACHE_TTL", "soon"},
		{"bad ssl flag", "MINIO_USE_SSL", "maybe"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
