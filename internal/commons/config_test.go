package commons

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 7070
database:
  host: mysql
  queryTimeout: 2s
order:
  deleteMode: hard
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Host)
	assert.Equal(t, 2*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "hard", cfg.Order.DeleteMode)
	// untouched keys keep their env defaults
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_EnvBeatsCheckedInFile(t *testing.T) {
	t.Setenv("DB_HOST", "db.prod.internal")
	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("ORDER_DELETE_MODE", "hard")
	t.Setenv("SERVER_WRITE_TIMEOUT", "3s")

	cfg, err := LoadConfig("../config/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "db.prod.internal", cfg.Database.Host)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "hard", cfg.Order.DeleteMode)
	assert.Equal(t, 3*time.Second, cfg.Server.WriteTimeout)
	// keys without an env var still come from the file
	assert.Equal(t, "orderboard", cfg.Database.User)
	assert.Equal(t, 30*time.Second, cfg.Server.IdleTimeout)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "parsing config file")
}
