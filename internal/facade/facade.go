// Package facade composes the scanner, analyzer registry, index, and tool
// dispatcher behind the single opaque handle a caller constructs. It is the
// only exported entry point to the core.
package facade

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/reposcope/repomap/internal/analyzer"
	"github.com/reposcope/repomap/internal/analyzer/langgo"
	"github.com/reposcope/repomap/internal/analyzer/langpython"
	"github.com/reposcope/repomap/internal/analyzer/langrust"
	"github.com/reposcope/repomap/internal/analyzer/langts"
	"github.com/reposcope/repomap/internal/config"
	"github.com/reposcope/repomap/internal/obslog"
	"github.com/reposcope/repomap/internal/repomap"
	"github.com/reposcope/repomap/internal/scanner"
	"github.com/reposcope/repomap/internal/tools"
)

// Handle is the facade's thread-safe handle: concurrent execute_tool calls
// proceed in parallel under a read lock; scan takes the write lock for the
// duration of ingestion.
type Handle struct {
	mu sync.RWMutex

	cfg        config.Config
	registry   *analyzer.Registry
	index      *repomap.RepoMap
	dispatcher *tools.Dispatcher
	scan       *scanner.Scanner
}

// New builds a Handle from a validated Config, registering exactly the
// analyzers the config enables.
func New(cfg config.Config) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := analyzer.NewRegistry()
	if cfg.Languages.Rust {
		if err := registry.Register(langrust.New()); err != nil {
			return nil, err
		}
	}
	if cfg.Languages.Python {
		if err := registry.Register(langpython.New()); err != nil {
			return nil, err
		}
	}
	if cfg.Languages.TypeScript {
		if err := registry.Register(langts.NewTypeScript()); err != nil {
			return nil, err
		}
	}
	if cfg.Languages.JavaScript {
		if err := registry.Register(langts.NewJavaScript()); err != nil {
			return nil, err
		}
	}
	if cfg.Languages.Go {
		if err := registry.Register(langgo.New()); err != nil {
			return nil, err
		}
	}

	index := repomap.New(cfg.Cache, cfg.Index.MaxFiles)
	return &Handle{
		cfg:        cfg,
		registry:   registry,
		index:      index,
		dispatcher: tools.New(index, registry),
		scan:       scanner.New(cfg.Index, registry),
	}, nil
}

// Scan walks root and ingests every discovered file, taking the write lock
// for the full duration of ingestion so execute_tool observes either the
// pre-scan or post-scan state for any file it reads (never a half-ingested
// record).
func (h *Handle) Scan(ctx context.Context, root string) (scanner.ScanResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	obslog.Debugf("facade", "scan starting", "root", root)
	result, err := h.scan.Scan(ctx, root, h.index.Ingest)
	obslog.Debugf("facade", "scan finished", "root", root, "files", result.FilesScanned, "cancelled", result.Cancelled)
	return result, err
}

// Watch re-scans root on every debounced burst of filesystem activity until
// ctx is cancelled (cmd/repomap's long-running `watch` command); it is a thin
// wrapper over Scan and adds no new index semantics.
func (h *Handle) Watch(ctx context.Context, root string) error {
	return scanner.Watch(ctx, root, func(ctx context.Context) error {
		_, err := h.Scan(ctx, root)
		return err
	})
}

// Remove drops path from the index, taking the write lock.
func (h *Handle) Remove(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index.Remove(path)
}

// ExecuteTool routes one (tool_name, JSON params) call to the dispatcher
// under the read lock, so it may run concurrently with other ExecuteTool
// calls but never overlaps a Scan.
func (h *Handle) ExecuteTool(ctx context.Context, name string, params json.RawMessage) tools.ToolResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dispatcher.ExecuteTool(ctx, name, params)
}

// GetToolDefinitions returns the closed six-tool schema set.
func (h *Handle) GetToolDefinitions() []tools.ToolDefinition {
	return tools.GetToolDefinitions()
}

// Metadata returns the index's current summary counters.
func (h *Handle) Metadata() repomap.Metadata {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index.Metadata()
}
