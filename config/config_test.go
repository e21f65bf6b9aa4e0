package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := getDefaultConfig()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, 10*time.Minute, cfg.Session.CodeExpiry)
	assert.Equal(t, 10*time.Second, cfg.Chat.TypingTTL)
	assert.Equal(t, 1, cfg.Chat.MaxReplyDepth)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
}

func TestLoadFromYAMLMissingFileFallsBack(t *testing.T) {
	cfg := loadFromYAML("no/such/config.yaml")
	assert.Equal(t, getDefaultConfig(), cfg)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  port: "9090"
session:
  lifetime: 720h
  codeExpiry: 5m
chat:
  typingTTL: 7s
  maxReplyDepth: 3
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg := loadFromYAML(path)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 720*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, 5*time.Minute, cfg.Session.CodeExpiry)
	assert.Equal(t, 7*time.Second, cfg.Chat.TypingTTL)
	assert.Equal(t, 3, cfg.Chat.MaxReplyDepth)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("SESSION_LIFETIME", "48h")
	t.Setenv("CODE_EXPIRY", "2m")
	t.Setenv("TYPING_TTL", "3s")
	t.Setenv("MAX_REPLY_DEPTH", "5")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg := getDefaultConfig()
	overrideWithEnvVars(cfg)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 48*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, 2*time.Minute, cfg.Session.CodeExpiry)
	assert.Equal(t, 3*time.Second, cfg.Chat.TypingTTL)
	assert.Equal(t, 5, cfg.Chat.MaxReplyDepth)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
}

func TestEnvOverrideIgnoresInvalidValues(t *testing.T) {
	t.Setenv("SESSION_LIFETIME", "not-a-duration")
	t.Setenv("MAX_REPLY_DEPTH", "zero")

	cfg := getDefaultConfig()
	overrideWithEnvVars(cfg)

	assert.Equal(t, 30*24*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, 1, cfg.Chat.MaxReplyDepth)
}
