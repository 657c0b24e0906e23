package config

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// GitignorePattern is one parsed line of a .gitignore file, split into an
// exact/wildcard/regex match strategy chosen at parse time.
type GitignorePattern struct {
	Pattern   string
	Negate    bool
	Directory bool
	Absolute  bool
	compiled  *regexp.Regexp
}

// GitignoreMatcher evaluates a set of loaded gitignore patterns against
// candidate paths during a scan.
type GitignoreMatcher struct {
	patterns []GitignorePattern
}

// NewGitignoreMatcher returns an empty matcher.
func NewGitignoreMatcher() *GitignoreMatcher {
	return &GitignoreMatcher{}
}

// LoadGitignore loads patterns from rootPath/.gitignore; a missing file is
// not an error.
func (m *GitignoreMatcher) LoadGitignore(rootPath string) error {
	file, err := os.Open(filepath.Join(rootPath, ".gitignore"))
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.AddPattern(line)
	}
	return scanner.Err()
}

// AddPattern parses and adds a single gitignore line.
func (m *GitignoreMatcher) AddPattern(line string) {
	p := GitignorePattern{}
	if strings.HasPrefix(line, "!") {
		p.Negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.Directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.Absolute = true
		line = line[1:]
	}
	p.Pattern = line
	if strings.ContainsAny(line, "*?[") {
		p.compiled = regexp.MustCompile(globToRegex(line))
	}
	m.patterns = append(m.patterns, p)
}

func globToRegex(pattern string) string {
	re := regexp.QuoteMeta(pattern)
	re = strings.ReplaceAll(re, `\*`, `.*`)
	re = strings.ReplaceAll(re, `\?`, `.`)
	re = strings.ReplaceAll(re, `\[`, `[`)
	re = strings.ReplaceAll(re, `\]`, `]`)
	return "^" + re + "$"
}

// ShouldIgnore reports whether path (relative to the scan root, forward
// slashes) is excluded by the loaded patterns; later patterns can negate
// earlier ones, matching git's own precedence rule.
func (m *GitignoreMatcher) ShouldIgnore(path string, isDir bool) bool {
	path = filepath.ToSlash(path)
	ignored := false
	for _, p := range m.patterns {
		if matchesPattern(p, path, isDir) {
			ignored = !p.Negate
		}
	}
	return ignored
}

func matchesPattern(p GitignorePattern, path string, isDir bool) bool {
	if p.Directory {
		if !isDir {
			return strings.Contains(path, "/"+p.Pattern+"/") || strings.HasPrefix(path, p.Pattern+"/")
		}
		if fastMatch(p, path) {
			return true
		}
		parts := strings.Split(path, "/")
		for i := range parts {
			if fastMatch(p, strings.Join(parts[i:], "/")) {
				return true
			}
		}
		return false
	}
	if p.Absolute {
		return fastMatch(p, path)
	}
	if fastMatch(p, path) {
		return true
	}
	parts := strings.Split(path, "/")
	for i := range parts {
		if fastMatch(p, strings.Join(parts[i:], "/")) {
			return true
		}
	}
	return false
}

func fastMatch(p GitignorePattern, path string) bool {
	if p.compiled != nil {
		return p.compiled.MatchString(path)
	}
	return p.Pattern == path
}
