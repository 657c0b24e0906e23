package repomap

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reposcope/repomap/internal/config"
	"github.com/reposcope/repomap/internal/types"
)

func testCache() config.Cache {
	return config.Cache{TTL: 300 * time.Second, MaxEntries: 1000}
}

func fileA() types.FileAnalysis {
	return types.FileAnalysis{
		Path:        "a.rs",
		Language:    "rust",
		ContentHash: 1,
		Functions: []types.FunctionSignature{
			{Name: "parse_config", StartLine: 1, EndLine: 3, IsPublic: true},
		},
	}
}

func fileB() types.FileAnalysis {
	return types.FileAnalysis{
		Path:        "b.rs",
		Language:    "rust",
		ContentHash: 2,
		Functions: []types.FunctionSignature{
			{Name: "main", StartLine: 1, EndLine: 10, IsPublic: true},
		},
		Calls: []types.FunctionCall{
			{Callee: "parse_config", Line: 2, Column: 1},
			{Callee: "parse_config", Receiver: "x", Line: 3, Column: 3},
		},
	}
}

func TestIngestAndFindFunctions(t *testing.T) {
	r := New(testCache(), 0)
	r.Ingest(fileA())

	matches := r.FindFunctions("parse_config", 0)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.rs", matches[0].File)
	assert.True(t, matches[0].IsPublic)
}

func TestIngestRemoveIsNoOp(t *testing.T) {
	r := New(testCache(), 0)
	r.Ingest(fileA())
	ok := r.Remove(fileA().Path)
	require.True(t, ok)

	assert.Empty(t, r.FindFunctions("parse_config", 0))
	assert.Equal(t, 0, r.Metadata().TotalFiles)
}

func TestIngestIdempotentOnUnchangedHash(t *testing.T) {
	r := New(testCache(), 0)
	r.Ingest(fileA())
	before := r.Metadata()

	r.Ingest(fileA())
	after := r.Metadata()

	assert.Equal(t, before.TotalFunctions, after.TotalFunctions)
	assert.Equal(t, 1, after.TotalFiles)
}

// TestCallersOrdering covers two files, A defines parse_config, B calls it
// twice; find_callers must return both call sites ordered by file path then
// line.
func TestCallersOrdering(t *testing.T) {
	r := New(testCache(), 0)
	r.Ingest(fileA())
	r.Ingest(fileB())

	sites := r.CallersOf("parse_config", 0)
	require.Len(t, sites, 2)
	assert.Equal(t, "b.rs", sites[0].CallerFile)
	assert.Equal(t, 2, sites[0].Line)
	assert.Equal(t, 3, sites[1].Line)
	assert.Equal(t, "main", sites[0].CallerFunc)
}

func TestCacheInvalidationOnIngest(t *testing.T) {
	r := New(testCache(), 0)
	r.Ingest(fileA())

	_ = r.FindFunctions("parse_config", 0)
	_, hit := r.cache.get(cacheKey("find_functions", "parse_config", 0))
	require.True(t, hit, "expected a cache hit after first query")

	r.Ingest(fileB())
	_, hit = r.cache.get(cacheKey("find_functions", "parse_config", 0))
	assert.False(t, hit, "ingest must invalidate the cache wholesale")
}

func TestFindFunctionsRanking(t *testing.T) {
	r := New(testCache(), 0)
	r.Ingest(types.FileAnalysis{
		Path:        "x.go",
		Language:    "go",
		ContentHash: 1,
		Functions: []types.FunctionSignature{
			{Name: "Get", StartLine: 1, EndLine: 2, IsPublic: true},
			{Name: "GetUser", StartLine: 3, EndLine: 4, IsPublic: true},
			{Name: "ForgetMe", StartLine: 5, EndLine: 6, IsPublic: true},
		},
	})

	matches := r.FindFunctions("get", 0)
	require.Len(t, matches, 3)
	assert.Equal(t, "Get", matches[0].Name, "exact match (case-folded) ranks first")
	assert.Equal(t, "GetUser", matches[1].Name, "prefix match ranks second")
	assert.Equal(t, "ForgetMe", matches[2].Name, "substring match ranks last")
}

func TestFindFunctionsRegexAndGlob(t *testing.T) {
	r := New(testCache(), 0)
	r.Ingest(types.FileAnalysis{
		Path:        "x.py",
		Language:    "python",
		ContentHash: 1,
		Functions: []types.FunctionSignature{
			{Name: "run_task", StartLine: 1, EndLine: 2, IsPublic: true},
			{Name: "_helper", StartLine: 3, EndLine: 4, IsPublic: false},
		},
	})

	assert.Len(t, r.FindFunctions("/^run_.*/", 0), 1)
	assert.Len(t, r.FindFunctions("run_*", 0), 1)
	assert.Len(t, r.FindFunctions("*_*", 0), 2)
}

func TestFuzzySearchScoreRange(t *testing.T) {
	r := New(testCache(), 0)
	r.Ingest(fileA())

	matches := r.FuzzySearch("parse_config", 0)
	require.NotEmpty(t, matches)
	assert.Equal(t, 1.0, matches[0].Score)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Score, 0.0)
		assert.LessOrEqual(t, m.Score, 1.0)
	}
}

func TestFIFOEvictionOnMaxFiles(t *testing.T) {
	r := New(testCache(), 2)
	r.Ingest(types.FileAnalysis{Path: "1.go", Language: "go", ContentHash: 1})
	r.Ingest(types.FileAnalysis{Path: "2.go", Language: "go", ContentHash: 2})
	r.Ingest(types.FileAnalysis{Path: "3.go", Language: "go", ContentHash: 3})

	assert.Equal(t, 2, r.Metadata().TotalFiles)
	_, err := r.FileAnalysisByPath("1.go")
	assert.Error(t, err, "oldest-inserted record must be evicted first")
	_, err = r.FileAnalysisByPath("3.go")
	assert.NoError(t, err)
}

func TestSecondaryIndexesAgreeAfterRemoval(t *testing.T) {
	r := New(testCache(), 0)
	r.Ingest(fileA())
	r.Ingest(fileB())
	r.Remove(fileA().Path)

	for _, m := range r.FindFunctions("parse_config", 0) {
		assert.NotEqual(t, fileA().Path, m.File, "removed file must leave no secondary-index residue")
	}
	sites := r.CallersOf("parse_config", 0)
	for _, s := range sites {
		assert.NotEqual(t, fileA().Path, s.CallerFile)
	}
}

// TestConcurrentScanAndQuery ingests many files concurrently with queries
// running against the same index; neither side may fail or race.
func TestConcurrentScanAndQuery(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := New(testCache(), 0)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			r.Ingest(types.FileAnalysis{
				Path:        fmt.Sprintf("file%d.go", i),
				Language:    "go",
				ContentHash: uint64(i),
				Functions:   []types.FunctionSignature{{Name: "main", StartLine: 1, EndLine: 2}},
			})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = r.FindFunctions("main", 0)
		}
	}()

	wg.Wait()
	assert.LessOrEqual(t, len(r.FindFunctions("main", 0)), 500)
}
