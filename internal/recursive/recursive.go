// Package recursive implements the budgeted recursive query engine
// (spec.md §4.12): given a directory or a previously indexed package's
// source files, it walks symbol definitions across files, matches them
// against a query, and links consecutive hits into a reference graph while
// strictly bounding how much it reads.
package recursive

import (
	"sort"
	"strconv"
	"strings"

	"github.com/zenith-dev/zenith/internal/zerr"
)

// Budget bounds how much work one Run call may do. MaxChunks == 0 is
// rejected outright: a budget that cannot process anything is a caller
// error, not an empty result.
type Budget struct {
	MaxDepth         int
	MaxChunks        int
	MaxBytesPerChunk int
	MaxTotalBytes    int
}

// DefaultBudget matches spec.md's stated defaults.
func DefaultBudget() Budget {
	return Budget{MaxDepth: 2, MaxChunks: 200, MaxBytesPerChunk: 6000, MaxTotalBytes: 750000}
}

func (b Budget) validate() error {
	if b.MaxChunks == 0 {
		return zerr.Wrapf(zerr.BudgetExceeded, "recursive: max_chunks must be non-zero")
	}
	return nil
}

// Query selects which symbols become hits.
type Query struct {
	TargetKinds     []string // empty means "any kind"
	DocKeywords     []string // case-insensitive; empty means "any content"
	IncludeExternal bool
	GenerateSummary bool
}

func (q Query) matches(sym SymbolSpan) bool {
	if len(q.TargetKinds) > 0 && !containsFold(q.TargetKinds, sym.Kind) {
		return false
	}
	if len(q.DocKeywords) == 0 {
		return true
	}
	haystack := strings.ToLower(sym.Signature + "\n" + sym.DocComment)
	for _, kw := range q.DocKeywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// SymbolSpan is one extracted symbol definition within a file.
type SymbolSpan struct {
	Kind       string
	Name       string
	LineStart  int
	LineEnd    int
	Signature  string
	DocComment string
}

// SourceFile is one file to scan, in the traversal order Run must honor.
type SourceFile struct {
	Path    string
	Content string
}

// Hit is one symbol that matched the query, trimmed to the budget's
// per-chunk byte cap.
type Hit struct {
	RefID     string
	File      string
	Kind      string
	Name      string
	LineStart int
	LineEnd   int
	Snippet   string
}

// Edge links two consecutive hits discovered during the walk, labeled by how
// their files relate to each other.
type Edge struct {
	FromRefID string
	ToRefID   string
	Category  string
}

// Edge categories.
const (
	CategorySameModule           = "same_module"
	CategoryExternal             = "external"
	CategoryOtherModuleSameCrate = "other_module_same_crate"
	CategoryOtherCrateWorkspace  = "other_crate_workspace"
)

// BudgetUsed reports how much of the budget a Run call actually consumed.
type BudgetUsed struct {
	DepthReached    int
	ChunksProcessed int
	TotalBytes      int
}

// Result is the reference graph produced by one Run call.
type Result struct {
	Hits          []Hit
	Edges         []Edge
	CategoryCount map[string]int
	BudgetUsed    BudgetUsed
	Summary       *Summary
}

// Summary is the optional JSON-ready digest produced when
// Query.GenerateSummary is set.
type Summary struct {
	HitCount    int
	EdgeCount   int
	TopHits     []Hit
	TopEdges    []Edge
	ElapsedMs   int64
}

// Extractor turns one file's content into its symbol definitions.
type Extractor interface {
	Extract(path, content string) []SymbolSpan
}

// Run walks files in lexicographic path order, extracts symbols with
// extractor (falling back to a line-scan heuristic when extraction yields
// nothing), matches each against query, and links consecutive hits into
// edges. Files nested deeper than MaxDepth are skipped; the walk stops once
// MaxChunks hits are collected or MaxTotalBytes is reached, the snippet that
// would overflow MaxTotalBytes being trimmed to fit.
func Run(files []SourceFile, extractor Extractor, query Query, budget Budget, elapsedMs int64) (Result, error) {
	if err := budget.validate(); err != nil {
		return Result{}, err
	}

	sorted := make([]SourceFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var (
		hits       []Hit
		edges      []Edge
		catCount   = map[string]int{}
		totalBytes int
		depth      int
	)

	var prev *Hit
	for _, f := range sorted {
		if len(hits) >= budget.MaxChunks {
			break
		}
		if totalBytes >= budget.MaxTotalBytes {
			break
		}
		d := pathDepth(f.Path)
		if d > depth {
			depth = d
		}
		if d > budget.MaxDepth {
			continue
		}

		spans := extractor.Extract(f.Path, f.Content)
		if len(spans) == 0 {
			spans = fallbackExtract(f.Content)
		}

		for _, sym := range spans {
			if len(hits) >= budget.MaxChunks || totalBytes >= budget.MaxTotalBytes {
				break
			}
			if !query.matches(sym) {
				continue
			}
			if !query.IncludeExternal && isExternalPath(f.Path) {
				continue
			}

			snippet := snippetOf(f.Content, sym, budget.MaxBytesPerChunk)
			if totalBytes+len(snippet) > budget.MaxTotalBytes {
				snippet = snippet[:budget.MaxTotalBytes-totalBytes]
			}
			hit := Hit{
				RefID:     refID(f.Path, sym),
				File:      f.Path,
				Kind:      sym.Kind,
				Name:      sym.Name,
				LineStart: sym.LineStart,
				LineEnd:   sym.LineEnd,
				Snippet:   snippet,
			}
			totalBytes += len(snippet)
			hits = append(hits, hit)

			if prev != nil {
				cat := edgeCategory(prev.File, hit.File, query.IncludeExternal)
				edges = append(edges, Edge{FromRefID: prev.RefID, ToRefID: hit.RefID, Category: cat})
				catCount[cat]++
			}
			h := hit
			prev = &h
		}
	}

	result := Result{
		Hits:          hits,
		Edges:         edges,
		CategoryCount: catCount,
		BudgetUsed:    BudgetUsed{DepthReached: depth, ChunksProcessed: len(hits), TotalBytes: totalBytes},
	}
	if query.GenerateSummary {
		result.Summary = buildSummary(hits, edges, elapsedMs)
	}
	return result, nil
}

func refID(path string, sym SymbolSpan) string {
	return path + "::" + sym.Kind + "::" + sym.Name + "::" + strconv.Itoa(sym.LineStart)
}

func snippetOf(content string, sym SymbolSpan, maxBytes int) string {
	lines := strings.Split(content, "\n")
	start := sym.LineStart - 1
	end := sym.LineEnd
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	snippet := strings.Join(lines[start:end], "\n")
	if len(snippet) > maxBytes {
		snippet = snippet[:maxBytes]
	}
	return snippet
}

func pathDepth(path string) int {
	return strings.Count(strings.Trim(path, "/"), "/")
}

func isExternalPath(path string) bool {
	return strings.Contains(path, "/.cargo/registry/src/")
}

func edgeCategory(fromPath, toPath string, includeExternal bool) string {
	if fromPath == toPath {
		return CategorySameModule
	}
	if includeExternal && isExternalPath(toPath) {
		return CategoryExternal
	}
	if rootDir(fromPath) == rootDir(toPath) {
		return CategoryOtherModuleSameCrate
	}
	return CategoryOtherCrateWorkspace
}

func rootDir(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.Index(trimmed, "/"); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

func buildSummary(hits []Hit, edges []Edge, elapsedMs int64) *Summary {
	top := hits
	if len(top) > 5 {
		top = top[:5]
	}
	topEdges := edges
	if len(topEdges) > 5 {
		topEdges = topEdges[:5]
	}
	return &Summary{
		HitCount:  len(hits),
		EdgeCount: len(edges),
		TopHits:   append([]Hit{}, top...),
		TopEdges:  append([]Edge{}, topEdges...),
		ElapsedMs: elapsedMs,
	}
}
