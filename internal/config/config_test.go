package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "TOKEN_TTL", "ENABLE_GUEST", "REJECT_OUT_OF_RANGE"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	assert.Equal(t, ModeOffline, c.Mode)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 24*time.Hour, c.TokenTTL)
	assert.True(t, c.EnableGuest)
	assert.True(t, c.RejectOutOfRange)
	assert.Equal(t, c.CORSOriginsOffline, c.CORSOrigins())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("TOKEN_TTL", "90")
	t.Setenv("ENABLE_GUEST", "no")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")

	c := FromEnv()
	assert.Equal(t, ModeOnline, c.Mode)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, 90*time.Second, c.TokenTTL)
	assert.False(t, c.EnableGuest)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins())
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9999\nLOG_FORMAT=json\n"), 0o600))
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("HTTP_ADDR", "")
	os.Unsetenv("HTTP_ADDR")

	c := Load(path)
	assert.Equal(t, ":9999", c.HTTPAddr)
	assert.Equal(t, "text", c.LogFormat)
}
