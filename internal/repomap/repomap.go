// Package repomap holds the in-memory RepoMap index: an ordered set of
// FileAnalysis records, five secondary indexes, a call graph, and a bounded
// query cache. RepoMap itself uses a single internal mutex for its own
// bookkeeping, since every read may populate the query cache; the
// reader/writer split between concurrent tool execution and exclusive
// rescans is implemented one layer up, in internal/facade.
package repomap

import (
	"sort"
	"sync"
	"time"

	"github.com/reposcope/repomap/internal/config"
	"github.com/reposcope/repomap/internal/rmerrors"
	"github.com/reposcope/repomap/internal/types"
)

// FunctionMatch is one search_functions result row.
type FunctionMatch struct {
	Name      string
	File      string
	StartLine int
	EndLine   int
	IsPublic  bool
	IsAsync   bool
}

// StructMatch is one search_structs result row.
type StructMatch struct {
	Name     string
	File     string
	Fields   []types.StructField
	IsPublic bool
}

// FuzzyMatch is one fuzzy_search result row.
type FuzzyMatch struct {
	Name  string
	Kind  string // "function" or "struct"
	File  string
	Score float64
}

// LanguageCount is one row of RepositoryTree's per-language breakdown.
type LanguageCount struct {
	Language string
	Files    int
}

// TreeNode is one entry of the nested directory tree returned by
// RepositoryTree.
type TreeNode struct {
	Name     string
	IsDir    bool
	Children []*TreeNode
}

// TreeSummary is repository_tree()'s return shape.
type TreeSummary struct {
	TotalFiles     int
	TotalFunctions int
	TotalStructs   int
	Languages      []LanguageCount
	Root           *TreeNode
}

// Metadata is the index's current summary counters.
type Metadata struct {
	TotalFiles     int
	TotalFunctions int
	TotalStructs   int
	LastUpdate     time.Time
	EstimatedBytes int64
}

// record is one slot in RepoMap.records. A nil record marks a tombstoned
// (removed) position; positions are never reused so secondary-index entries
// referencing them stay meaningful until explicitly rebuilt.
type record struct {
	analysis types.FileAnalysis
}

// entityRef locates one FunctionSignature or StructSignature: pos indexes
// RepoMap.records, idx indexes that record's Functions/Structs slice. Two
// refs are needed (rather than a bare position) because a single file may
// define more than one entity of the same name, and all of them must stay
// retrievable.
type entityRef struct {
	pos int
	idx int
}

// RepoMap is the facade's index: it owns every FileAnalysis and is mutated
// only by Ingest/Remove.
type RepoMap struct {
	mu sync.Mutex

	maxFiles int

	records    []*record
	pathIndex  map[string]int
	insertOrder []string // paths, oldest first, for FIFO eviction

	functionIndex map[string][]entityRef // function name -> (file position, index within file)
	structIndex   map[string][]entityRef // struct name -> (file position, index within file)
	importIndex   map[string][]int       // module path -> positions
	exportIndex   map[string][]int       // export name -> positions
	languageIndex map[string][]int       // language -> positions

	callGraph map[string][]types.CallSite // callee name -> call sites

	cache *queryCache

	totalFunctions int
	totalStructs   int
	lastUpdate     time.Time
}

// New builds an empty RepoMap. maxFiles <= 0 means no soft ceiling.
func New(cacheCfg config.Cache, maxFiles int) *RepoMap {
	return &RepoMap{
		maxFiles:      maxFiles,
		pathIndex:     make(map[string]int),
		functionIndex: make(map[string][]entityRef),
		structIndex:   make(map[string][]entityRef),
		importIndex:   make(map[string][]int),
		exportIndex:   make(map[string][]int),
		languageIndex: make(map[string][]int),
		callGraph:     make(map[string][]types.CallSite),
		cache:         newQueryCache(cacheCfg.TTL, cacheCfg.MaxEntries),
	}
}

// Ingest adds or replaces a FileAnalysis. Re-ingesting a path with an
// unchanged content hash is a no-op.
func (r *RepoMap) Ingest(a types.FileAnalysis) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pos, exists := r.pathIndex[a.Path]; exists {
		if r.records[pos] != nil && r.records[pos].analysis.ContentHash == a.ContentHash {
			return
		}
		r.removeIndexContributions(pos)
		r.records[pos] = &record{analysis: a}
		r.addIndexContributions(pos, a)
		r.recomputeTotals()
		r.lastUpdate = time.Now()
		r.cache.invalidateAll()
		return
	}

	pos := len(r.records)
	r.records = append(r.records, &record{analysis: a})
	r.pathIndex[a.Path] = pos
	r.insertOrder = append(r.insertOrder, a.Path)
	r.addIndexContributions(pos, a)
	r.recomputeTotals()
	r.lastUpdate = time.Now()
	r.cache.invalidateAll()

	r.evictOverflowLocked()
}

// Remove deletes path's record and every secondary-index contribution it
// made. Removing an unindexed path is a no-op and reports false.
func (r *RepoMap) Remove(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(path)
}

func (r *RepoMap) removeLocked(path string) bool {
	pos, exists := r.pathIndex[path]
	if !exists {
		return false
	}
	r.removeIndexContributions(pos)
	r.records[pos] = nil
	delete(r.pathIndex, path)
	r.recomputeTotals()
	r.lastUpdate = time.Now()
	r.cache.invalidateAll()
	return true
}

// evictOverflowLocked drops the oldest-inserted records until the optional
// max_files ceiling is satisfied. Callers must hold r.mu.
func (r *RepoMap) evictOverflowLocked() {
	if r.maxFiles <= 0 {
		return
	}
	for len(r.pathIndex) > r.maxFiles {
		var oldest string
		for len(r.insertOrder) > 0 {
			candidate := r.insertOrder[0]
			r.insertOrder = r.insertOrder[1:]
			if _, ok := r.pathIndex[candidate]; ok {
				oldest = candidate
				break
			}
		}
		if oldest == "" {
			return
		}
		r.removeIndexContributions(r.pathIndex[oldest])
		r.records[r.pathIndex[oldest]] = nil
		delete(r.pathIndex, oldest)
	}
	r.recomputeTotals()
}

func (r *RepoMap) addIndexContributions(pos int, a types.FileAnalysis) {
	for idx, fn := range a.Functions {
		r.functionIndex[fn.Name] = append(r.functionIndex[fn.Name], entityRef{pos: pos, idx: idx})
	}
	for idx, st := range a.Structs {
		r.structIndex[st.Name] = append(r.structIndex[st.Name], entityRef{pos: pos, idx: idx})
	}
	for _, imp := range a.Imports {
		r.importIndex[imp.ModulePath] = append(r.importIndex[imp.ModulePath], pos)
	}
	for _, exp := range a.Exports {
		r.exportIndex[exp.Name] = append(r.exportIndex[exp.Name], pos)
	}
	r.languageIndex[a.Language] = append(r.languageIndex[a.Language], pos)

	for _, cs := range buildCallSites(a) {
		r.callGraph[cs.Callee] = append(r.callGraph[cs.Callee], cs)
	}
}

func (r *RepoMap) removeIndexContributions(pos int) {
	if pos < 0 || pos >= len(r.records) || r.records[pos] == nil {
		return
	}
	a := r.records[pos].analysis

	for _, fn := range a.Functions {
		r.functionIndex[fn.Name] = dropRef(r.functionIndex[fn.Name], pos)
	}
	for _, st := range a.Structs {
		r.structIndex[st.Name] = dropRef(r.structIndex[st.Name], pos)
	}
	for _, imp := range a.Imports {
		r.importIndex[imp.ModulePath] = dropPosition(r.importIndex[imp.ModulePath], pos)
	}
	for _, exp := range a.Exports {
		r.exportIndex[exp.Name] = dropPosition(r.exportIndex[exp.Name], pos)
	}
	r.languageIndex[a.Language] = dropPosition(r.languageIndex[a.Language], pos)

	for _, cs := range buildCallSites(a) {
		r.callGraph[cs.Callee] = dropCallSitesFrom(r.callGraph[cs.Callee], a.Path)
	}
}

func dropPosition(positions []int, pos int) []int {
	out := positions[:0]
	for _, p := range positions {
		if p != pos {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dropRef(refs []entityRef, pos int) []entityRef {
	out := refs[:0]
	for _, ref := range refs {
		if ref.pos != pos {
			out = append(out, ref)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dropCallSitesFrom(sites []types.CallSite, file string) []types.CallSite {
	out := sites[:0]
	for _, s := range sites {
		if s.CallerFile != file {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// buildCallSites resolves each FunctionCall in a to a CallSite, attaching the
// enclosing function name by line-range containment when one exists.
func buildCallSites(a types.FileAnalysis) []types.CallSite {
	sites := make([]types.CallSite, 0, len(a.Calls))
	for _, call := range a.Calls {
		sites = append(sites, types.CallSite{
			Callee:     call.Callee,
			CallerFile: a.Path,
			CallerFunc: enclosingFunction(a.Functions, call.Line),
			Line:       call.Line,
			Column:     call.Column,
		})
	}
	return sites
}

func enclosingFunction(fns []types.FunctionSignature, line int) string {
	for _, fn := range fns {
		if line >= fn.StartLine && line <= fn.EndLine {
			return fn.Name
		}
	}
	return ""
}

func (r *RepoMap) recomputeTotals() {
	functions, structs := 0, 0
	for _, rec := range r.records {
		if rec == nil {
			continue
		}
		functions += len(rec.analysis.Functions)
		structs += len(rec.analysis.Structs)
	}
	r.totalFunctions = functions
	r.totalStructs = structs
}

// Metadata returns the index's current summary counters.
func (r *RepoMap) Metadata() Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Metadata{
		TotalFiles:     len(r.pathIndex),
		TotalFunctions: r.totalFunctions,
		TotalStructs:   r.totalStructs,
		LastUpdate:     r.lastUpdate,
		EstimatedBytes: r.estimatedBytesLocked(),
	}
}

func (r *RepoMap) estimatedBytesLocked() int64 {
	var total int64
	for _, rec := range r.records {
		if rec == nil {
			continue
		}
		total += rec.analysis.Size
	}
	return total
}

// FileAnalysisByPath returns the indexed record for path, used by
// get_dependencies (analyze_file re-reads the file from disk instead).
func (r *RepoMap) FileAnalysisByPath(path string) (types.FileAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, exists := r.pathIndex[path]
	if !exists || r.records[pos] == nil {
		return types.FileAnalysis{}, rmerrors.NewNotFoundError("file", path)
	}
	return r.records[pos].analysis, nil
}

// DependenciesOf returns the import module paths declared in path.
func (r *RepoMap) DependenciesOf(path string) ([]string, error) {
	a, err := r.FileAnalysisByPath(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(a.Imports))
	for _, imp := range a.Imports {
		out = append(out, imp.ModulePath)
	}
	return out, nil
}

// FilesByLanguage returns every record whose detected language matches lang.
func (r *RepoMap) FilesByLanguage(lang string) []types.FileAnalysis {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := "files_by_language:" + lang
	if cached, ok := r.cache.get(key); ok {
		return cached.([]types.FileAnalysis)
	}

	positions := r.languageIndex[lang]
	out := make([]types.FileAnalysis, 0, len(positions))
	for _, pos := range positions {
		if r.records[pos] != nil {
			out = append(out, r.records[pos].analysis)
		}
	}
	r.cache.set(key, out)
	return out
}

// CallersOf returns every CallSite recorded for callee name, sorted by file
// path then line.
func (r *RepoMap) CallersOf(name string, limit int) []types.CallSite {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey("callers_of", name, limit)
	if cached, ok := r.cache.get(key); ok {
		return cached.([]types.CallSite)
	}

	sites := append([]types.CallSite(nil), r.callGraph[name]...)
	sort.SliceStable(sites, func(i, j int) bool {
		if sites[i].CallerFile != sites[j].CallerFile {
			return sites[i].CallerFile < sites[j].CallerFile
		}
		return sites[i].Line < sites[j].Line
	})
	sites = capSlice(sites, limit)

	r.cache.set(key, sites)
	return sites
}
