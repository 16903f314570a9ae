package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "production", ""} {
		l, err := New(mode)
		require.NoError(t, err, mode)
		require.NotNil(t, l.SugaredLogger)
	}
}

func TestFileSinkReceivesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petcare.log")
	l, err := NewWithOptions(Options{Mode: "prod", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	l.With("component", "test").Info("hello", "kind", "pet")
	l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"hello"`), string(data))
	assert.True(t, strings.Contains(string(data), `"component":"test"`), string(data))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := Nop()
	assert.Same(t, l, OrNop(l))
}
