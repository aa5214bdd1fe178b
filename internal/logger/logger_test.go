package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	log, err := New("production", "")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))

	log, err = New("development", "")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))

	log, err = New("development", "warn")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.InfoLevel))

	_, err = New("production", "loud")
	assert.Error(t, err)
}

func TestNewFileWritesToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flashvocab.log")
	log, err := NewFile(path, "info")
	require.NoError(t, err)
	log.Info("card marked", zap.Int64("card_id", 7))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "card marked")
}

func TestNewFileWithoutPathIsNop(t *testing.T) {
	log, err := NewFile("", "")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.ErrorLevel))
}
