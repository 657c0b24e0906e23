package analyzer

import (
	"regexp"
	"strings"
	"time"

	"github.com/reposcope/repomap/internal/types"
)

// FallbackPatterns describes the surface-syntax regexes a language falls
// back to when a structured parse yields no usable tree. Each regex must
// have a capture group named "name"; FuncPattern may additionally capture
// "pub" to mark visibility and "async" to mark the async flag.
type FallbackPatterns struct {
	FuncPattern *regexp.Regexp
	TypePattern *regexp.Regexp
	// IsPublic decides visibility for a matched name when the regex has no
	// dedicated visibility group (e.g. Python's leading-underscore rule).
	IsPublic func(name string) bool
}

// ExtractFallback runs the regex fallback over raw text and assembles a
// FileAnalysis whose ParseErrors carries exactly one SeverityDegraded entry
// marking that structured extraction was not used.
func ExtractFallback(path, language string, text []byte, size int64, modTime time.Time, pat FallbackPatterns) types.FileAnalysis {
	lines := strings.Split(string(text), "\n")

	var functions []types.FunctionSignature
	var structs []types.StructSignature

	for i, line := range lines {
		if pat.FuncPattern != nil {
			if m := pat.FuncPattern.FindStringSubmatch(line); m != nil {
				name := submatch(pat.FuncPattern, m, "name")
				if name == "" {
					continue
				}
				isPublic := submatch(pat.FuncPattern, m, "pub") != ""
				if pat.IsPublic != nil {
					isPublic = pat.IsPublic(name)
				}
				functions = append(functions, types.FunctionSignature{
					Name:      name,
					IsPublic:  isPublic,
					IsAsync:   submatch(pat.FuncPattern, m, "async") != "",
					StartLine: i + 1,
					EndLine:   i + 1,
				})
			}
		}
		if pat.TypePattern != nil {
			if m := pat.TypePattern.FindStringSubmatch(line); m != nil {
				name := submatch(pat.TypePattern, m, "name")
				if name == "" {
					continue
				}
				isPublic := submatch(pat.TypePattern, m, "pub") != ""
				if pat.IsPublic != nil {
					isPublic = pat.IsPublic(name)
				}
				structs = append(structs, types.StructSignature{
					Name:      name,
					IsPublic:  isPublic,
					StartLine: i + 1,
					EndLine:   i + 1,
				})
			}
		}
	}

	return types.FileAnalysis{
		Path:        path,
		Language:    language,
		ContentHash: ContentHash(text),
		Size:        size,
		ModTime:     modTime,
		Functions:   functions,
		Structs:     structs,
		ParseErrors: []types.ParseError{{
			Line:     1,
			Column:   1,
			Message:  "structured parse produced no usable tree; used regex fallback",
			Severity: types.SeverityDegraded,
		}},
	}
}

// submatch looks up a named capture group's text, returning "" if the group
// didn't participate in the match (or doesn't exist).
func submatch(re *regexp.Regexp, m []string, group string) string {
	for i, name := range re.SubexpNames() {
		if name == group && i < len(m) {
			return m[i]
		}
	}
	return ""
}
