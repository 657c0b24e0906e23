package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[languages]
go = true
python = true

[index]
max_files = 500
max_file_size_mb = 2
exclude = ["**/dist/**"]

[cache]
ttl_seconds = 60
`

func TestLoadFileAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".repomap.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o644))

	b, err := NewBuilder().LoadFile(path)
	require.NoError(t, err)
	cfg, err := b.Build()
	require.NoError(t, err)

	assert.True(t, cfg.Languages.Go)
	assert.True(t, cfg.Languages.Python)
	assert.False(t, cfg.Languages.Rust)
	assert.Equal(t, 500, cfg.Index.MaxFiles)
	assert.Equal(t, int64(2<<20), cfg.Index.MaxFileSize)
	assert.Equal(t, []string{"**/dist/**"}, cfg.Index.ExcludePatterns)
	assert.Equal(t, int64(60), int64(cfg.Cache.TTL.Seconds()))
}

func TestLoadFileMissingIsNotError(t *testing.T) {
	b, err := NewBuilder().WithGoAnalyzer().LoadFile(filepath.Join(t.TempDir(), "nonexistent.toml"))
	require.NoError(t, err)
	cfg, err := b.Build()
	require.NoError(t, err)
	assert.True(t, cfg.Languages.Go)
}

func TestLoadFileInvalidTOMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))

	_, err := NewBuilder().LoadFile(path)
	assert.Error(t, err)
}

func TestValidateRequiresAtLeastOneLanguage(t *testing.T) {
	_, err := NewBuilder().Build()
	assert.Error(t, err)
}

func TestValidateRejectsNonPositiveBounds(t *testing.T) {
	_, err := NewBuilder().WithGoAnalyzer().MaxFiles(0).Build()
	assert.Error(t, err)

	_, err = NewBuilder().WithGoAnalyzer().MaxFileSize(0).Build()
	assert.Error(t, err)

	_, err = NewBuilder().WithGoAnalyzer().MaxDepth(-1).Build()
	assert.Error(t, err)
}
