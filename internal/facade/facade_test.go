package facade

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reposcope/repomap/internal/config"
)

func writeGoFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(config.Config{})
	assert.Error(t, err, "no language analyzer enabled must fail validation at construction time")
}

func TestNewAcceptsMinimalConfig(t *testing.T) {
	cfg, err := config.NewBuilder().WithGoAnalyzer().Build()
	require.NoError(t, err)

	h, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestScanAndExecuteTool(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")

	cfg, err := config.NewBuilder().WithGoAnalyzer().Build()
	require.NoError(t, err)
	h, err := New(cfg)
	require.NoError(t, err)

	result, err := h.Scan(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesScanned)

	params, _ := json.Marshal(map[string]any{"pattern": "main"})
	out := h.ExecuteTool(context.Background(), "search_functions", params)
	assert.True(t, out.Success)

	meta := h.Metadata()
	assert.Equal(t, 1, meta.TotalFiles)
}

func TestRemoveDropsFromIndex(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")

	cfg, err := config.NewBuilder().WithGoAnalyzer().Build()
	require.NoError(t, err)
	h, err := New(cfg)
	require.NoError(t, err)

	_, err = h.Scan(context.Background(), dir)
	require.NoError(t, err)

	ok := h.Remove(filepath.Join(dir, "main.go"))
	assert.True(t, ok)
	assert.Equal(t, 0, h.Metadata().TotalFiles)
}

// TestConcurrentExecuteToolDuringScan exercises the facade's reader/writer
// discipline: many concurrent ExecuteTool calls must not race against a
// single Scan, and none of them may observe a partially-ingested file.
func TestConcurrentExecuteToolDuringScan(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	for i := 0; i < 30; i++ {
		writeGoFile(t, dir, filepath.Join("pkg", string(rune('a'+i))+".go"), "package pkg\n\nfunc F() {}\n")
	}

	cfg, err := config.NewBuilder().WithGoAnalyzer().Build()
	require.NoError(t, err)
	h, err := New(cfg)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, scanErr := h.Scan(context.Background(), dir)
		assert.NoError(t, scanErr)
	}()

	params, _ := json.Marshal(map[string]any{"pattern": "F"})
	for i := 0; i < 50; i++ {
		out := h.ExecuteTool(context.Background(), "search_functions", params)
		assert.True(t, out.Success)
	}

	wg.Wait()
	assert.Equal(t, 30, h.Metadata().TotalFiles)
}
