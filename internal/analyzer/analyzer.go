// Package analyzer defines the language-analyzer capability set and the
// registry that resolves a file to its analyzer. Concrete analyzers live in
// language-specific subpackages (langrust, langpython, langts, langgo) and
// are registered by the facade's builder.
package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/reposcope/repomap/internal/rmerrors"
	"github.com/reposcope/repomap/internal/types"
)

// Analyzer transforms a file's path and text into a FileAnalysis. Analyze
// must never panic or otherwise abort the caller: recoverable failures are
// captured as ParseErrors on the returned record.
type Analyzer interface {
	Language() string
	Extensions() []string
	Analyze(path string, text []byte) types.FileAnalysis
}

// Registry owns one Analyzer per supported language and resolves
// path -> Analyzer. Lookups share a read lock, so they run in parallel;
// Register takes the exclusive lock.
type Registry struct {
	mu         sync.RWMutex
	byLanguage map[string]Analyzer
	byExt      map[string]Analyzer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byLanguage: make(map[string]Analyzer),
		byExt:      make(map[string]Analyzer),
	}
}

// Register adds an analyzer. It fails with an rmerrors.ConfigError if the
// language name or any of its extensions are already registered; there is
// no separate conflict error type.
func (r *Registry) Register(a Analyzer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lang := a.Language()
	if _, exists := r.byLanguage[lang]; exists {
		return rmerrors.NewConfigError("analyzer", fmt.Sprintf("language %q already registered", lang))
	}
	for _, ext := range a.Extensions() {
		if _, exists := r.byExt[ext]; exists {
			return rmerrors.NewConfigError("analyzer", fmt.Sprintf("extension %q already registered", ext))
		}
	}

	r.byLanguage[lang] = a
	for _, ext := range a.Extensions() {
		r.byExt[ext] = a
	}
	return nil
}

// ByLanguage returns the analyzer registered for a language name, if any.
func (r *Registry) ByLanguage(name string) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byLanguage[name]
	return a, ok
}

// ByExtension returns the analyzer registered for a file extension
// (including the leading dot), if any.
func (r *Registry) ByExtension(ext string) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byExt[ext]
	return a, ok
}

// Detect resolves a language name from a path, by extension only; content
// sniffing (shebangs) is not attempted.
func (r *Registry) Detect(path string) (string, bool) {
	ext := extOf(path)
	a, ok := r.ByExtension(ext)
	if !ok {
		return "", false
	}
	return a.Language(), true
}

// Languages returns the registered language names, sorted, for deterministic
// iteration (e.g. repository_tree()'s per-language breakdown).
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

func extOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	// Keep only the last extension component; a file with no dot has none.
	slash := strings.LastIndexAny(path, "/\\")
	if slash > idx {
		return ""
	}
	return path[idx:]
}
