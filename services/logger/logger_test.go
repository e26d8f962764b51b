package logsvc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

func TestNewRotatingWriter(t *testing.T) {
	_, err := NewRotatingWriter(core.LogConfig{})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "logs", "api.log")
	w, err := NewRotatingWriter(core.LogConfig{File: file})
	require.NoError(t, err)
	assert.Equal(t, 10, w.MaxSize)
	assert.Equal(t, 5, w.MaxBackups)
	require.NoError(t, w.Close())
}

func TestNew_WritesLogFile(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Log.File = filepath.Join(t.TempDir(), "api.log")

	logger, closer, err := New("TEST", conf)
	require.NoError(t, err)

	usr := user.User{ID: "1", Username: "awe", Email: "awe@test.cd"}
	logger.Warn("index skipped", map[string]interface{}{"index": "uq_users_username"}, usr)
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(conf.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(content), "WARN index skipped")
	assert.Contains(t, string(content), "uq_users_username")
	assert.NotContains(t, string(content), "awe@test.cd")
}
