package repomap

import (
	"path"
	"regexp"
	"strings"

	"github.com/hbollon/go-edlib"
)

// matchTier ranks how well name satisfies pattern: 0=exact, 1=prefix,
// 2=substring, 3=fuzzy, -1=no match. Higher-ranked tiers always sort before
// lower ones regardless of score.
const (
	tierExact = iota
	tierPrefix
	tierSubstring
	tierFuzzy
	tierNone = -1
)

const fuzzyThreshold = 0.6

// fold returns s ready for a case-insensitive comparison: matching is
// case-sensitive unless the pattern itself is all lower-case.
func fold(s string, caseInsensitive bool) string {
	if caseInsensitive {
		return strings.ToLower(s)
	}
	return s
}

func isCaseInsensitive(pattern string) bool {
	return pattern == strings.ToLower(pattern)
}

// matchName scores name against a raw pattern, dispatching on pattern
// syntax: /regex/, glob (contains * or ?), or plain substring/fuzzy.
func matchName(name, pattern string) (tier int, score float64) {
	if body, ok := regexBody(pattern); ok {
		re, err := regexp.Compile(body)
		if err != nil {
			return tierNone, 0
		}
		if re.FindString(name) == name {
			return tierExact, 1
		}
		if re.MatchString(name) {
			return tierSubstring, 0.75
		}
		return tierNone, 0
	}

	if strings.ContainsAny(pattern, "*?") {
		ok, err := path.Match(pattern, name)
		if err != nil || !ok {
			return tierNone, 0
		}
		return tierExact, 1
	}

	ci := isCaseInsensitive(pattern)
	n, p := fold(name, ci), fold(pattern, ci)

	switch {
	case n == p:
		return tierExact, 1
	case strings.HasPrefix(n, p):
		return tierPrefix, 0.9
	case strings.Contains(n, p):
		return tierSubstring, 0.75
	}

	sim, err := edlib.StringsSimilarity(n, p, edlib.JaroWinkler)
	if err != nil || float64(sim) < fuzzyThreshold {
		return tierNone, 0
	}
	return tierFuzzy, float64(sim)
}

func regexBody(pattern string) (string, bool) {
	if len(pattern) >= 2 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		return pattern[1 : len(pattern)-1], true
	}
	return "", false
}

// fuzzyScore computes fuzzy_search's [0,1] similarity, 1.0 for an exact
// (case-sensitive) match.
func fuzzyScore(name, query string) float64 {
	if name == query {
		return 1
	}
	sim, err := edlib.StringsSimilarity(strings.ToLower(name), strings.ToLower(query), edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return float64(sim)
}
