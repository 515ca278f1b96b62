package signer

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MEDIAVAULT_SECRET_HASH", "$2a$10$hash")
	t.Setenv("MEDIAVAULT_S3_ACCESS_KEY", "ak")
	t.Setenv("MEDIAVAULT_S3_SECRET_KEY", "sk")
	t.Setenv("MEDIAVAULT_S3_BUCKET", "media")
	t.Setenv("MEDIAVAULT_URL_EXPIRY", "30m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Addr)
	assert.Equal(t, "media", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, 30*time.Minute, cfg.URLExpiry)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	keys := []string{
		"MEDIAVAULT_SECRET_HASH",
		"MEDIAVAULT_S3_ACCESS_KEY",
		"MEDIAVAULT_S3_SECRET_KEY",
		"MEDIAVAULT_S3_BUCKET",
	}
	for _, k := range keys {
		// t.Setenv records the original value for cleanup; the unset
		// makes the variable genuinely absent for the check below.
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	_, err := LoadConfig()
	assert.Error(t, err)
}
