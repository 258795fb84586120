package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"API_PORT", "COUNTRY_CODE", "SESSION_DB_PATH", "HISTORY_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, ":8080", cfg.APIPort)
	assert.Equal(t, "91", cfg.CountryCode)
	assert.Equal(t, "db/session.db", cfg.SessionDBPath)
	assert.Equal(t, 60*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.ReconnectInterval)
	assert.Equal(t, 5, cfg.MaxReconnectAttempts)
	assert.False(t, cfg.HistoryEnabled)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("API_PORT", ":9090")
	t.Setenv("COUNTRY_CODE", "44")
	t.Setenv("HISTORY_ENABLED", "true")

	cfg := LoadConfig()
	assert.Equal(t, ":9090", cfg.APIPort)
	assert.Equal(t, "44", cfg.CountryCode)
	assert.True(t, cfg.HistoryEnabled)
}
