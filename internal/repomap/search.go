package repomap

import (
	"sort"
	"strings"
)

// ranked pairs a matched entity with its tier/score for sorting, keeping the
// entityRef around so the caller's insertion-order tie-break (ref.pos, then
// ref.idx) is available after the sort.
type ranked[T any] struct {
	value T
	ref   entityRef
	tier  int
	score float64
}

func sortRanked[T any](items []ranked[T]) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].tier != items[j].tier {
			return items[i].tier < items[j].tier
		}
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		if items[i].ref.pos != items[j].ref.pos {
			return items[i].ref.pos < items[j].ref.pos
		}
		return items[i].ref.idx < items[j].ref.idx
	})
}

// FindFunctions matches pattern against every indexed function name and
// returns ranked results.
func (r *RepoMap) FindFunctions(pattern string, limit int) []FunctionMatch {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey("find_functions", pattern, limit)
	if cached, ok := r.cache.get(key); ok {
		return cached.([]FunctionMatch)
	}

	var candidates []ranked[FunctionMatch]
	for name, refs := range r.functionIndex {
		tier, score := matchName(name, pattern)
		if tier == tierNone {
			continue
		}
		for _, ref := range refs {
			rec := r.records[ref.pos]
			if rec == nil {
				continue
			}
			fn := rec.analysis.Functions[ref.idx]
			candidates = append(candidates, ranked[FunctionMatch]{
				value: FunctionMatch{
					Name:      fn.Name,
					File:      rec.analysis.Path,
					StartLine: fn.StartLine,
					EndLine:   fn.EndLine,
					IsPublic:  fn.IsPublic,
					IsAsync:   fn.IsAsync,
				},
				ref: ref, tier: tier, score: score,
			})
		}
	}
	sortRanked(candidates)

	out := make([]FunctionMatch, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.value)
	}
	out = capSlice(out, limit)

	r.cache.set(key, out)
	return out
}

// FindStructs matches pattern against every indexed struct name.
func (r *RepoMap) FindStructs(pattern string, limit int) []StructMatch {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey("find_structs", pattern, limit)
	if cached, ok := r.cache.get(key); ok {
		return cached.([]StructMatch)
	}

	var candidates []ranked[StructMatch]
	for name, refs := range r.structIndex {
		tier, score := matchName(name, pattern)
		if tier == tierNone {
			continue
		}
		for _, ref := range refs {
			rec := r.records[ref.pos]
			if rec == nil {
				continue
			}
			st := rec.analysis.Structs[ref.idx]
			candidates = append(candidates, ranked[StructMatch]{
				value: StructMatch{
					Name:     st.Name,
					File:     rec.analysis.Path,
					Fields:   st.Fields,
					IsPublic: st.IsPublic,
				},
				ref: ref, tier: tier, score: score,
			})
		}
	}
	sortRanked(candidates)

	out := make([]StructMatch, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.value)
	}
	out = capSlice(out, limit)

	r.cache.set(key, out)
	return out
}

// FuzzySearch ranks functions and structs by edit-distance similarity to q.
func (r *RepoMap) FuzzySearch(q string, limit int) []FuzzyMatch {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey("fuzzy_search", q, limit)
	if cached, ok := r.cache.get(key); ok {
		return cached.([]FuzzyMatch)
	}

	var out []FuzzyMatch
	for name, refs := range r.functionIndex {
		score := fuzzyScore(name, q)
		for _, ref := range refs {
			rec := r.records[ref.pos]
			if rec == nil {
				continue
			}
			out = append(out, FuzzyMatch{Name: name, Kind: "function", File: rec.analysis.Path, Score: score})
		}
	}
	for name, refs := range r.structIndex {
		score := fuzzyScore(name, q)
		for _, ref := range refs {
			rec := r.records[ref.pos]
			if rec == nil {
				continue
			}
			out = append(out, FuzzyMatch{Name: name, Kind: "struct", File: rec.analysis.Path, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	out = capSlice(out, limit)

	r.cache.set(key, out)
	return out
}

// RepositoryTree summarizes the index: per-language file counts, total
// entity counts, and a nested directory tree rather than a flat path list.
func (r *RepoMap) RepositoryTree() TreeSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey("repository_tree")
	if cached, ok := r.cache.get(key); ok {
		return cached.(TreeSummary)
	}

	langs := make(map[string]int)
	root := &TreeNode{Name: "", IsDir: true}
	for _, rec := range r.records {
		if rec == nil {
			continue
		}
		langs[rec.analysis.Language]++
		insertPath(root, strings.Split(filepathToSlash(rec.analysis.Path), "/"))
	}

	langCounts := make([]LanguageCount, 0, len(langs))
	for lang, count := range langs {
		langCounts = append(langCounts, LanguageCount{Language: lang, Files: count})
	}
	sort.Slice(langCounts, func(i, j int) bool { return langCounts[i].Language < langCounts[j].Language })

	summary := TreeSummary{
		TotalFiles:     len(r.pathIndex),
		TotalFunctions: r.totalFunctions,
		TotalStructs:   r.totalStructs,
		Languages:      langCounts,
		Root:           root,
	}

	r.cache.set(key, summary)
	return summary
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func insertPath(root *TreeNode, parts []string) {
	node := root
	for i, part := range parts {
		if part == "" {
			continue
		}
		isDir := i < len(parts)-1
		var child *TreeNode
		for _, c := range node.Children {
			if c.Name == part && c.IsDir == isDir {
				child = c
				break
			}
		}
		if child == nil {
			child = &TreeNode{Name: part, IsDir: isDir}
			node.Children = append(node.Children, child)
		}
		node = child
	}
}
