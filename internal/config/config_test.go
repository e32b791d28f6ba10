package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "tmp", cfg.BucketTmp)
	assert.Equal(t, "covers", cfg.BucketCovers)
	assert.Equal(t, "slides", cfg.BucketSlides)
	assert.Equal(t, "avatars", cfg.BucketAvatars)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 1, cfg.TmpRetentionDays)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BUCKET_TMP", "staging")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("TMP_RETENTION_DAYS", "7")
	t.Setenv("APP_ENV", "production")

	cfg := Load()

	assert.Equal(t, "staging", cfg.BucketTmp)
	assert.Equal(t, int64(1<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 7, cfg.TmpRetentionDays)
	assert.True(t, cfg.IsProduction())
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "lots")
	t.Setenv("TMP_RETENTION_DAYS", "forever")

	cfg := Load()

	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 1, cfg.TmpRetentionDays)
}
