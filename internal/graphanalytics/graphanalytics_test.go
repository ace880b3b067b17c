package graphanalytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologicalSortIsDeterministicAcrossRuns(t *testing.T) {
	edges := []Edge{
		{From: Ref{"decision", "dec-001"}, To: Ref{"finding", "fnd-B"}},
		{From: Ref{"decision", "dec-002"}, To: Ref{"finding", "fnd-B"}},
		{From: Ref{"decision", "dec-003"}, To: Ref{"finding", "fnd-B"}},
		{From: Ref{"finding", "fnd-B"}, To: Ref{"hypothesis", "hyp-001"}},
		{From: Ref{"finding", "fnd-B"}, To: Ref{"hypothesis", "hyp-002"}},
	}

	var first []Ref
	for i := 0; i < 10; i++ {
		br := Build(edges, nil, Budget{})
		order, err := br.Graph.TopologicalSort()
		require.NoError(t, err)
		if i == 0 {
			first = order
		} else {
			assert.Equal(t, first, order, "run %d diverged", i)
		}
	}
}

func TestTopologicalSortDetectsCycle(t *testing.T) {
	edges := []Edge{
		{From: Ref{"task", "a"}, To: Ref{"task", "b"}},
		{From: Ref{"task", "b"}, To: Ref{"task", "c"}},
		{From: Ref{"task", "c"}, To: Ref{"task", "a"}},
	}
	br := Build(edges, nil, Budget{})
	_, err := br.Graph.TopologicalSort()
	require.Error(t, err)
}

func TestReadySetReturnsInDegreeZeroSorted(t *testing.T) {
	edges := []Edge{
		{From: Ref{"decision", "dec-002"}, To: Ref{"finding", "fnd-1"}},
	}
	refs := []Ref{{"decision", "dec-001"}}
	br := Build(edges, refs, Budget{})
	ready := br.Graph.ReadySet()
	require.Len(t, ready, 2)
	assert.Equal(t, Ref{"decision", "dec-001"}, ready[0])
	assert.Equal(t, Ref{"decision", "dec-002"}, ready[1])
}

func TestBetweennessOrdersHighestFirstWithDeterministicTieBreak(t *testing.T) {
	edges := []Edge{
		{From: Ref{"decision", "dec-001"}, To: Ref{"finding", "fnd-B"}},
		{From: Ref{"decision", "dec-002"}, To: Ref{"finding", "fnd-B"}},
		{From: Ref{"finding", "fnd-B"}, To: Ref{"hypothesis", "hyp-001"}},
		{From: Ref{"finding", "fnd-B"}, To: Ref{"hypothesis", "hyp-002"}},
	}
	br := Build(edges, nil, Budget{})
	scores := br.Graph.Betweenness()
	require.NotEmpty(t, scores)
	assert.Equal(t, Ref{"finding", "fnd-B"}, scores[0].Ref)
}

func TestShortestPathFindsUniformWeightPath(t *testing.T) {
	edges := []Edge{
		{From: Ref{"task", "a"}, To: Ref{"task", "b"}},
		{From: Ref{"task", "b"}, To: Ref{"task", "c"}},
	}
	br := Build(edges, nil, Budget{})
	path, weight, ok := br.Graph.ShortestPath(Ref{"task", "a"}, Ref{"task", "c"})
	require.True(t, ok)
	assert.Equal(t, 2.0, weight)
	require.Len(t, path, 3)
	assert.Equal(t, Ref{"task", "a"}, path[0])
	assert.Equal(t, Ref{"task", "c"}, path[2])
}

func TestShortestPathNoPathReturnsNotOk(t *testing.T) {
	edges := []Edge{{From: Ref{"task", "a"}, To: Ref{"task", "b"}}}
	br := Build(edges, nil, Budget{})
	_, _, ok := br.Graph.ShortestPath(Ref{"task", "b"}, Ref{"task", "a"})
	assert.False(t, ok)
}

func TestWeaklyConnectedComponentsGroupsAcrossDirection(t *testing.T) {
	edges := []Edge{
		{From: Ref{"task", "a"}, To: Ref{"task", "b"}},
		{From: Ref{"task", "c"}, To: Ref{"task", "b"}}, // reverse direction, same component
		{From: Ref{"task", "x"}, To: Ref{"task", "y"}}, // separate component
	}
	br := Build(edges, nil, Budget{})
	components := br.Graph.WeaklyConnectedComponents()
	require.Len(t, components, 2)
	assert.Len(t, components[0], 3)
	assert.Len(t, components[1], 2)
}

func TestBuildTruncatesOverMaxNodes(t *testing.T) {
	edges := []Edge{
		{From: Ref{"task", "a"}, To: Ref{"task", "b"}},
		{From: Ref{"task", "b"}, To: Ref{"task", "c"}},
	}
	br := Build(edges, nil, Budget{MaxNodes: 2})
	assert.True(t, br.Truncation.Truncated)
	assert.Equal(t, 1, br.Truncation.NodesDropped)
}

func TestBuildRecordsNoTruncationWhenWithinBudget(t *testing.T) {
	edges := []Edge{{From: Ref{"task", "a"}, To: Ref{"task", "b"}}}
	br := Build(edges, nil, Budget{MaxNodes: 10, MaxEdges: 10})
	assert.False(t, br.Truncation.Truncated)
}

func TestBFSStopsAtMaxDepth(t *testing.T) {
	edges := []Edge{
		{From: Ref{"task", "a"}, To: Ref{"task", "b"}},
		{From: Ref{"task", "b"}, To: Ref{"task", "c"}},
		{From: Ref{"task", "c"}, To: Ref{"task", "d"}},
	}
	br := Build(edges, nil, Budget{})
	visited, truncated := br.Graph.BFS(Ref{"task", "a"}, 1)
	assert.Len(t, visited, 2) // a, b
	assert.True(t, truncated)

	visited, truncated = br.Graph.BFS(Ref{"task", "a"}, 10)
	assert.Len(t, visited, 4)
	assert.False(t, truncated)
}
