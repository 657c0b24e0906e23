// Package scanner walks a directory root, applies include/exclude globs and
// ignore-file semantics, and analyzes the resulting files in parallel with a
// bounded worker pool.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/reposcope/repomap/internal/analyzer"
	"github.com/reposcope/repomap/internal/config"
	"github.com/reposcope/repomap/internal/obslog"
	"github.com/reposcope/repomap/internal/rmerrors"
	"github.com/reposcope/repomap/internal/types"
)

// SkippedFile records a file the scanner chose not to analyze, and why.
type SkippedFile struct {
	Path   string
	Reason string
}

// ScanResult summarizes one scan.
type ScanResult struct {
	FilesScanned   int
	FunctionsFound int
	StructsFound   int
	DurationMs     int64
	Errors         []error
	Skipped        []SkippedFile
	Truncated      bool
	Cancelled      bool
}

// Scanner discovers candidate files under a root and hands each to the
// registry-selected analyzer, emitting one FileAnalysis per discovered file
// through the provided sink.
type Scanner struct {
	cfg      config.Index
	registry *analyzer.Registry
}

// New builds a scanner bound to a registry and the index-related builder
// options.
func New(cfg config.Index, registry *analyzer.Registry) *Scanner {
	return &Scanner{cfg: cfg, registry: registry}
}

// Sink receives one FileAnalysis per successfully analyzed file. It is
// called from multiple goroutines and must be safe for concurrent use (the
// facade passes RepoMap.Ingest, which takes RepoMap's own mutex).
type Sink func(types.FileAnalysis)

// Scan walks root, analyzes every matching file through a worker pool sized
// to available CPU, and reports ingestion order as completion order: files
// are handed to sink in the order analysis finishes, not discovery order.
func (s *Scanner) Scan(ctx context.Context, root string, sink Sink) (ScanResult, error) {
	start := time.Now()

	if _, err := os.Stat(root); err != nil {
		return ScanResult{}, rmerrors.NewIOError("stat", root, err)
	}

	ignore := loadIgnoreMatcher(root)

	paths, skipped, truncated, err := s.discover(root, ignore)
	if err != nil {
		return ScanResult{}, err
	}

	var (
		mu        sync.Mutex
		errs      []error
		functions int
		structs   int
		scanned   int
	)

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)
	cancelled := false

pathLoop:
	for _, p := range paths {
		select {
		case <-ctx.Done():
			cancelled = true
			break pathLoop
		default:
		}

		path := p
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()

			select {
			case <-gctx.Done():
				return nil
			default:
			}

			analysis, readErr, ok := s.analyzeOne(path)
			if readErr != nil {
				mu.Lock()
				errs = append(errs, readErr)
				mu.Unlock()
				return nil
			}
			if !ok {
				return nil
			}

			mu.Lock()
			scanned++
			functions += len(analysis.Functions)
			structs += len(analysis.Structs)
			mu.Unlock()

			sink(analysis)
			return nil
		})
	}

	_ = g.Wait()

	if ctx.Err() != nil {
		cancelled = true
	}

	mu.Lock()
	defer mu.Unlock()
	return ScanResult{
		FilesScanned:   scanned,
		FunctionsFound: functions,
		StructsFound:   structs,
		DurationMs:     time.Since(start).Milliseconds(),
		Errors:         errs,
		Skipped:        skipped,
		Truncated:      truncated,
		Cancelled:      cancelled,
	}, nil
}

func (s *Scanner) analyzeOne(path string) (types.FileAnalysis, error, bool) {
	text, err := os.ReadFile(path)
	if err != nil {
		obslog.Warnf("scanner", "read failed", "path", path, "err", err)
		return types.FileAnalysis{}, rmerrors.NewIOError("read", path, err), false
	}

	lang, ok := s.registry.Detect(path)
	if !ok {
		return types.FileAnalysis{}, nil, false
	}
	a, ok := s.registry.ByLanguage(lang)
	if !ok {
		return types.FileAnalysis{}, nil, false
	}
	return a.Analyze(path, text), nil, true
}

// discover walks root and returns candidate file paths honoring filters and
// the max_files/max_depth/follow_symlinks bounds. The walk is lexical
// depth-first and the returned paths are sorted, so discovery order is
// stable; the completion order in which Scan hands results to its sink
// depends on worker scheduling and is not stable.
func (s *Scanner) discover(root string, ignore *ignoreMatcher) ([]string, []SkippedFile, bool, error) {
	var (
		paths     []string
		skipped   []SkippedFile
		truncated bool
	)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			skipped = append(skipped, SkippedFile{Path: path, Reason: err.Error()})
			return nil
		}

		if path != root {
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil {
				rel = filepath.ToSlash(rel)
				if s.cfg.MaxDepth > 0 && depthOf(rel) > s.cfg.MaxDepth {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
				if ignore.shouldIgnore(rel, d.IsDir()) {
					if d.IsDir() {
						return filepath.SkipDir
					}
					skipped = append(skipped, SkippedFile{Path: path, Reason: "ignored"})
					return nil
				}
			}
		}

		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !s.cfg.FollowSymlinks {
			skipped = append(skipped, SkippedFile{Path: path, Reason: "symlink not followed"})
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		if !s.matchesPatterns(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			skipped = append(skipped, SkippedFile{Path: path, Reason: err.Error()})
			return nil
		}
		if info.Size() > s.cfg.MaxFileSize {
			skipped = append(skipped, SkippedFile{Path: path, Reason: "exceeds max_file_size"})
			return nil
		}

		if s.cfg.MaxFiles > 0 && len(paths) >= s.cfg.MaxFiles {
			truncated = true
			return filepath.SkipAll
		}

		paths = append(paths, path)
		return nil
	})
	if walkErr != nil {
		return nil, nil, false, rmerrors.NewIOError("walk", root, walkErr)
	}

	sort.Strings(paths)
	return paths, skipped, truncated, nil
}

func (s *Scanner) matchesPatterns(rel string) bool {
	if len(s.cfg.ExcludePatterns) > 0 {
		for _, pattern := range s.cfg.ExcludePatterns {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return false
			}
		}
	}
	if len(s.cfg.IncludePatterns) == 0 {
		return true
	}
	for _, pattern := range s.cfg.IncludePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func depthOf(rel string) int {
	depth := 1
	for _, c := range rel {
		if c == '/' {
			depth++
		}
	}
	return depth
}
