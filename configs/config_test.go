package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.PapeletaCloseDelay)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("PAPELETA_CLOSE_DELAY", "500ms")
	t.Setenv("ALLOWED_ORIGINS", "http://mesa1.local, http://mesa2.local")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.PapeletaCloseDelay)
	assert.Equal(t, []string{"http://mesa1.local", "http://mesa2.local"}, cfg.AllowedOrigins)
}

func TestGetEnvAsDurationIgnoresGarbage(t *testing.T) {
	t.Setenv("PAPELETA_CLOSE_DELAY", "pronto")

	cfg := LoadConfig()
	assert.Equal(t, 2*time.Second, cfg.PapeletaCloseDelay)
}
