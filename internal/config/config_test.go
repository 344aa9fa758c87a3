package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "soft", cfg.Order.DeleteMode)
	assert.False(t, cfg.Order.StrictTransitions)
	assert.Equal(t, "@every 15s", cfg.Jobs.StatsSchedule)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_QUERY_TIMEOUT", "750ms")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ORDER_DELETE_MODE", "hard")
	t.Setenv("ORDER_STRICT_TRANSITIONS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 750*time.Millisecond, cfg.Database.QueryTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "hard", cfg.Order.DeleteMode)
	assert.True(t, cfg.Order.StrictTransitions)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("DB_CONN_MAX_LIFETIME", "forever")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "DB_CONN_MAX_LIFETIME")
}

func TestLoadWithFile_Precedence(t *testing.T) {
	t.Setenv("SERVER_PORT", "9191")

	cfg, err := LoadWithFile(map[string]interface{}{
		"server": map[string]interface{}{
			"port":        7070,
			"readTimeout": "4s",
		},
		"order": map[string]interface{}{
			"strictTransitions": true,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 4*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Order.StrictTransitions)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
}

func TestLoadWithFile_InvalidDurationInFile(t *testing.T) {
	cfg, err := LoadWithFile(map[string]interface{}{
		"database": map[string]interface{}{"queryTimeout": "soon"},
	})
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "DB_QUERY_TIMEOUT")
}
