package recursive

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopExtractor struct{}

func (noopExtractor) Extract(path, content string) []SymbolSpan { return nil }

func TestRunRejectsZeroMaxChunks(t *testing.T) {
	_, err := Run(nil, noopExtractor{}, Query{}, Budget{MaxChunks: 0}, 0)
	require.Error(t, err)
}

func TestFallbackExtractFindsRustDeclarations(t *testing.T) {
	content := "pub fn spawn(f: Future) {\n    run(f);\n}\n\nstruct Runtime {\n    id: u32,\n}\n"
	files := []SourceFile{{Path: "src/lib.rs", Content: content}}
	result, err := Run(files, noopExtractor{}, Query{}, Budget{MaxDepth: 2, MaxChunks: 10, MaxBytesPerChunk: 1000, MaxTotalBytes: 100000}, 0)
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "fn", result.Hits[0].Kind)
	assert.Equal(t, "spawn", result.Hits[0].Name)
	assert.Equal(t, "struct", result.Hits[1].Kind)
	assert.Equal(t, "Runtime", result.Hits[1].Name)
}

func TestQueryFiltersByKindAndKeyword(t *testing.T) {
	content := "pub fn spawn(f: Future) {\n}\nstruct Runtime {\n}\n"
	files := []SourceFile{{Path: "src/lib.rs", Content: content}}
	q := Query{TargetKinds: []string{"struct"}}
	result, err := Run(files, noopExtractor{}, q, DefaultBudget(), 0)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Runtime", result.Hits[0].Name)

	q = Query{DocKeywords: []string{"SPAWN"}}
	result, err = Run(files, noopExtractor{}, q, DefaultBudget(), 0)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "spawn", result.Hits[0].Name)
}

func TestBudgetEnforcesMaxChunks(t *testing.T) {
	content := "fn a() {\n}\nfn b() {\n}\nfn c() {\n}\n"
	files := []SourceFile{{Path: "src/lib.rs", Content: content}}
	result, err := Run(files, noopExtractor{}, Query{}, Budget{MaxDepth: 2, MaxChunks: 2, MaxBytesPerChunk: 1000, MaxTotalBytes: 100000}, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Hits), 2)
	assert.LessOrEqual(t, result.BudgetUsed.ChunksProcessed, 2)
}

func TestBudgetEnforcesMaxTotalBytes(t *testing.T) {
	content := "fn a() {\n" + strings.Repeat("x", 5000) + "\n}\n"
	files := []SourceFile{{Path: "src/lib.rs", Content: content}}
	result, err := Run(files, noopExtractor{}, Query{}, Budget{MaxDepth: 2, MaxChunks: 200, MaxBytesPerChunk: 6000, MaxTotalBytes: 1000}, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, result.BudgetUsed.TotalBytes, 1000)
}

func TestEdgeCategoriesAcrossFiles(t *testing.T) {
	files := []SourceFile{
		{Path: "crate-a/src/a.rs", Content: "fn one() {\n}\nfn two() {\n}\n"},
		{Path: "crate-a/src/b.rs", Content: "fn three() {\n}\n"},
		{Path: "crate-b/src/c.rs", Content: "fn four() {\n}\n"},
	}
	result, err := Run(files, noopExtractor{}, Query{}, DefaultBudget(), 0)
	require.NoError(t, err)
	require.Len(t, result.Edges, 3)
	assert.Equal(t, CategorySameModule, result.Edges[0].Category)
	assert.Equal(t, CategoryOtherModuleSameCrate, result.Edges[1].Category)
	assert.Equal(t, CategoryOtherCrateWorkspace, result.Edges[2].Category)
}

func TestGenerateSummaryOnlyWhenRequested(t *testing.T) {
	files := []SourceFile{{Path: "src/lib.rs", Content: "fn a() {\n}\n"}}
	result, err := Run(files, noopExtractor{}, Query{}, DefaultBudget(), 0)
	require.NoError(t, err)
	assert.Nil(t, result.Summary)

	result, err = Run(files, noopExtractor{}, Query{GenerateSummary: true}, DefaultBudget(), 42)
	require.NoError(t, err)
	require.NotNil(t, result.Summary)
	assert.Equal(t, int64(42), result.Summary.ElapsedMs)
	assert.Equal(t, 1, result.Summary.HitCount)
}
