package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors the subset of Config a .repomap.toml file may override;
// zero-value fields are left at the builder's existing value so a config
// file may specify only what it wants to change.
type fileConfig struct {
	Languages struct {
		Rust       bool `toml:"rust"`
		Python     bool `toml:"python"`
		TypeScript bool `toml:"typescript"`
		JavaScript bool `toml:"javascript"`
		Go         bool `toml:"go"`
	} `toml:"languages"`
	Index struct {
		MaxFiles        int      `toml:"max_files"`
		MaxFileSizeMB   int64    `toml:"max_file_size_mb"`
		MaxDepth        int      `toml:"max_depth"`
		FollowSymlinks  bool     `toml:"follow_symlinks"`
		IncludePatterns []string `toml:"include"`
		ExcludePatterns []string `toml:"exclude"`
	} `toml:"index"`
	Cache struct {
		TTLSeconds int `toml:"ttl_seconds"`
		MaxEntries int `toml:"max_entries"`
	} `toml:"cache"`
}

// LoadFile reads an optional .repomap.toml file and applies it on top of b's
// current settings. A missing file is not an error: the config file is a
// convenience for cmd/repomap, never a required input.
func (b *Builder) LoadFile(path string) (*Builder, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return b, nil
	}
	if err != nil {
		return b, err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return b, err
	}

	if fc.Languages.Rust {
		b = b.WithRustAnalyzer()
	}
	if fc.Languages.Python {
		b = b.WithPythonAnalyzer()
	}
	if fc.Languages.TypeScript {
		b = b.WithTypeScriptAnalyzer()
	}
	if fc.Languages.JavaScript {
		b = b.WithJavaScriptAnalyzer()
	}
	if fc.Languages.Go {
		b = b.WithGoAnalyzer()
	}

	if fc.Index.MaxFiles > 0 {
		b = b.MaxFiles(fc.Index.MaxFiles)
	}
	if fc.Index.MaxFileSizeMB > 0 {
		b = b.MaxFileSize(fc.Index.MaxFileSizeMB << 20)
	}
	if fc.Index.MaxDepth > 0 {
		b = b.MaxDepth(fc.Index.MaxDepth)
	}
	if fc.Index.FollowSymlinks {
		b = b.FollowSymlinks(true)
	}
	if len(fc.Index.IncludePatterns) > 0 {
		b = b.IncludePatterns(fc.Index.IncludePatterns)
	}
	if len(fc.Index.ExcludePatterns) > 0 {
		b = b.ExcludePatterns(fc.Index.ExcludePatterns)
	}

	if fc.Cache.TTLSeconds > 0 {
		b = b.CacheTTL(fc.Cache.TTLSeconds)
	}
	if fc.Cache.MaxEntries > 0 {
		b = b.MaxCacheEntries(fc.Cache.MaxEntries)
	}

	return b, nil
}
