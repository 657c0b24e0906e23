// Package config holds the facade's builder configuration: which language
// analyzers are enabled, scan filters and resource bounds, and the query
// cache TTL.
package config

import (
	"time"

	"github.com/reposcope/repomap/internal/rmerrors"
)

// DefaultExcludePatterns are the exclude globs applied when the builder is
// not given its own.
var DefaultExcludePatterns = []string{
	"**/target/**",
	"**/node_modules/**",
	"**/.git/**",
}

// Languages selects which language analyzers the facade registers.
type Languages struct {
	Rust       bool
	Python     bool
	TypeScript bool
	JavaScript bool
	Go         bool
}

// Index groups the scan/resource bounds.
type Index struct {
	MaxFiles        int
	MaxFileSize     int64
	MaxDepth        int // 0 means unlimited
	FollowSymlinks  bool
	IncludePatterns []string
	ExcludePatterns []string
}

// Cache groups query-cache configuration.
type Cache struct {
	TTL            time.Duration
	MaxEntries     int
}

// Config is the fully-resolved, validated builder output.
type Config struct {
	Languages Languages
	Index     Index
	Cache     Cache
}

// Default returns the default configuration with no language analyzers
// enabled (each is opt-in via with_<language>_analyzer()).
func Default() Config {
	return Config{
		Index: Index{
			MaxFiles:        10_000,
			MaxFileSize:     1 << 20, // 1 MiB
			MaxDepth:        0,
			FollowSymlinks:  false,
			ExcludePatterns: append([]string(nil), DefaultExcludePatterns...),
		},
		Cache: Cache{
			TTL:        300 * time.Second,
			MaxEntries: 1000,
		},
	}
}

// Validate reports a ConfigError for a zero or negative resource bound: such
// a value is fatal at build time, never discovered later as a silent
// no-op.
func (c Config) Validate() error {
	if c.Index.MaxFiles <= 0 {
		return rmerrors.NewConfigError("max_files", "must be positive")
	}
	if c.Index.MaxFileSize <= 0 {
		return rmerrors.NewConfigError("max_file_size", "must be positive")
	}
	if c.Index.MaxDepth < 0 {
		return rmerrors.NewConfigError("max_depth", "must be zero (unlimited) or positive")
	}
	if c.Cache.TTL < 0 {
		return rmerrors.NewConfigError("cache_ttl", "must be zero or positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return rmerrors.NewConfigError("max_cache_entries", "must be positive")
	}
	if !c.Languages.Rust && !c.Languages.Python && !c.Languages.TypeScript &&
		!c.Languages.JavaScript && !c.Languages.Go {
		return rmerrors.NewConfigError("analyzers", "at least one with_<language>_analyzer() must be enabled")
	}
	return nil
}

// Builder assembles a Config through chained With* calls over a grouped
// struct.
type Builder struct {
	cfg Config
}

// NewBuilder starts from Default().
func NewBuilder() *Builder {
	return &Builder{cfg: Default()}
}

func (b *Builder) WithRustAnalyzer() *Builder       { b.cfg.Languages.Rust = true; return b }
func (b *Builder) WithPythonAnalyzer() *Builder     { b.cfg.Languages.Python = true; return b }
func (b *Builder) WithTypeScriptAnalyzer() *Builder { b.cfg.Languages.TypeScript = true; return b }
func (b *Builder) WithJavaScriptAnalyzer() *Builder { b.cfg.Languages.JavaScript = true; return b }
func (b *Builder) WithGoAnalyzer() *Builder         { b.cfg.Languages.Go = true; return b }

func (b *Builder) MaxFiles(n int) *Builder {
	b.cfg.Index.MaxFiles = n
	return b
}

func (b *Builder) MaxFileSize(bytes int64) *Builder {
	b.cfg.Index.MaxFileSize = bytes
	return b
}

func (b *Builder) MaxDepth(n int) *Builder {
	b.cfg.Index.MaxDepth = n
	return b
}

func (b *Builder) FollowSymlinks(v bool) *Builder {
	b.cfg.Index.FollowSymlinks = v
	return b
}

func (b *Builder) IncludePatterns(globs []string) *Builder {
	b.cfg.Index.IncludePatterns = globs
	return b
}

func (b *Builder) ExcludePatterns(globs []string) *Builder {
	b.cfg.Index.ExcludePatterns = globs
	return b
}

func (b *Builder) CacheTTL(seconds int) *Builder {
	b.cfg.Cache.TTL = time.Duration(seconds) * time.Second
	return b
}

func (b *Builder) MaxCacheEntries(n int) *Builder {
	b.cfg.Cache.MaxEntries = n
	return b
}

// Build validates and returns the final Config.
func (b *Builder) Build() (Config, error) {
	if err := b.cfg.Validate(); err != nil {
		return Config{}, err
	}
	return b.cfg, nil
}
