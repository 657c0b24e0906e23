package scanner

import "github.com/reposcope/repomap/internal/config"

// ignoreMatcher wraps config.GitignoreMatcher so discover() has a nil-safe
// receiver when a root carries no .gitignore.
type ignoreMatcher struct {
	m *config.GitignoreMatcher
}

func loadIgnoreMatcher(root string) *ignoreMatcher {
	m := config.NewGitignoreMatcher()
	_ = m.LoadGitignore(root)
	return &ignoreMatcher{m: m}
}

func (i *ignoreMatcher) shouldIgnore(rel string, isDir bool) bool {
	if i == nil || i.m == nil {
		return false
	}
	return i.m.ShouldIgnore(rel, isDir)
}
