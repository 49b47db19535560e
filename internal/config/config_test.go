package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipdesc/chipdesc/internal/config"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.File{}, cfg)
}

func TestLoadParsesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".chipdesc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
schema: svd
output_path: out.zig
target: go
split_dir: out/
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.File{Schema: "svd", OutputPath: "out.zig", Target: "go", SplitDir: "out/"}, cfg)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".chipdesc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema: [unterminated"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}
