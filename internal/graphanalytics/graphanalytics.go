// Package graphanalytics implements the read-only graph algorithms that run
// over the entity link graph (spec.md §4.14): topological ordering, cycle
// detection, ready-set computation, betweenness centrality, shortest path,
// and weakly connected components. Every algorithm that can produce ties
// (equal centrality score, equal in-degree, equal path cost) breaks them
// deterministically so running the same input ten times byte-for-byte
// reproduces the same output, independent of Go's randomized map iteration.
package graphanalytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/zenith-dev/zenith/internal/zerr"
)

// kindOrdinal fixes the tie-break order named by entity kind. Unknown kinds
// sort after every known kind, by name.
var kindOrdinal = map[string]int{
	"decision": 0, "finding": 1, "hypothesis": 2, "study": 3,
	"task": 4, "issue": 5, "research": 6, "insight": 7, "implog": 8,
}

func ordinalOf(kind string) int {
	if o, ok := kindOrdinal[kind]; ok {
		return o
	}
	return len(kindOrdinal) + 1
}

// Ref identifies one entity node: its kind and id, matching the (kind, id)
// pairs internal/links uses for edge endpoints.
type Ref struct {
	Kind string
	ID   string
}

func (r Ref) less(o Ref) bool {
	if r.Kind != o.Kind {
		ro, oo := ordinalOf(r.Kind), ordinalOf(o.Kind)
		if ro != oo {
			return ro < oo
		}
		return r.Kind < o.Kind
	}
	return r.ID < o.ID
}

// Edge is one directed edge between two entities, e.g. a links.Link
// projected down to its endpoints.
type Edge struct {
	From Ref
	To   Ref
}

// Budget bounds how large a graph Build will construct.
type Budget struct {
	MaxNodes int
	MaxEdges int
	MaxDepth int
}

// Graph is a built, analyzable entity graph: a gonum directed graph plus the
// Ref <-> int64 node-id mapping needed to translate algorithm output back to
// entity identities.
type Graph struct {
	g       *simple.DirectedGraph
	refByID map[int64]Ref
	idByRef map[Ref]int64
}

// Truncation records that Build had to drop nodes or edges to honor a
// Budget. It is always present in BuildResult, never inferred silently.
type Truncation struct {
	Truncated    bool
	Reason       string
	NodesDropped int
	EdgesDropped int
}

// BuildResult is the output of Build: the graph plus its truncation record.
type BuildResult struct {
	Graph      *Graph
	Truncation Truncation
}

// Build constructs a Graph from a flat edge list, assigning stable int64
// node ids by sorting every (kind, id) pair that appears (as either an
// endpoint or, via refs, an isolated node) before numbering them — so node
// numbering never depends on slice order or map iteration. Nodes beyond
// MaxNodes are dropped from the end of that sorted order; edges are taken in
// input order, skipping any with a dropped endpoint, until MaxEdges is
// reached. Every drop is recorded.
func Build(edges []Edge, refs []Ref, budget Budget) BuildResult {
	seen := map[Ref]bool{}
	var all []Ref
	for _, r := range refs {
		if !seen[r] {
			seen[r] = true
			all = append(all, r)
		}
	}
	for _, e := range edges {
		for _, r := range []Ref{e.From, e.To} {
			if !seen[r] {
				seen[r] = true
				all = append(all, r)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].less(all[j]) })

	trunc := Truncation{}
	if budget.MaxNodes > 0 && len(all) > budget.MaxNodes {
		trunc.Truncated = true
		trunc.Reason = "max_nodes exceeded"
		trunc.NodesDropped = len(all) - budget.MaxNodes
		all = all[:budget.MaxNodes]
	}
	kept := map[Ref]bool{}
	for _, r := range all {
		kept[r] = true
	}

	g := simple.NewDirectedGraph()
	refByID := map[int64]Ref{}
	idByRef := map[Ref]int64{}
	for i, r := range all {
		id := int64(i)
		refByID[id] = r
		idByRef[r] = id
		g.AddNode(simple.Node(id))
	}

	edgeCount := 0
	edgesDropped := 0
	for _, e := range edges {
		if !kept[e.From] || !kept[e.To] {
			edgesDropped++
			continue
		}
		if budget.MaxEdges > 0 && edgeCount >= budget.MaxEdges {
			edgesDropped++
			continue
		}
		fromID, toID := idByRef[e.From], idByRef[e.To]
		if fromID == toID {
			continue
		}
		if g.HasEdgeFromTo(fromID, toID) {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(fromID), T: simple.Node(toID)})
		edgeCount++
	}
	if edgesDropped > 0 {
		trunc.Truncated = true
		if trunc.Reason == "" {
			trunc.Reason = "max_edges exceeded"
		}
		trunc.EdgesDropped = edgesDropped
	}

	return BuildResult{
		Graph:      &Graph{g: g, refByID: refByID, idByRef: idByRef},
		Truncation: trunc,
	}
}

func (gr *Graph) refSort(ids []int64) []Ref {
	out := make([]Ref, len(ids))
	for i, id := range ids {
		out[i] = gr.refByID[id]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// TopologicalSort returns every node in a valid topological order, breaking
// ties among equally-ready nodes by (kind ordinal, id) so the result is
// identical across repeated runs regardless of Go's map iteration order.
// gonum's topo.Sort is not used directly here because its ready-queue order
// depends on internal map iteration and is not reproducible run to run; this
// implements Kahn's algorithm directly over the same graph.Directed
// interface with an explicit deterministic ready-set.
func (gr *Graph) TopologicalSort() ([]Ref, error) {
	indeg := map[int64]int{}
	nodes := gr.g.Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		indeg[id] = gr.g.To(id).Len()
	}

	var ready []int64
	for id, d := range indeg {
		if d == 0 {
			ready = append(ready, id)
		}
	}

	var order []Ref
	for len(ready) > 0 {
		sortByRef(gr, ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, gr.refByID[next])

		succ := gr.g.From(next)
		for succ.Next() {
			id := succ.Node().ID()
			indeg[id]--
			if indeg[id] == 0 {
				ready = append(ready, id)
			}
		}
	}

	total := 0
	nodes = gr.g.Nodes()
	for nodes.Next() {
		total++
	}
	if len(order) != total {
		return order, zerr.Wrapf(zerr.InvalidState, "graphanalytics: cycle detected, %d of %d nodes ordered", len(order), total)
	}
	return order, nil
}

func sortByRef(gr *Graph, ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return gr.refByID[ids[i]].less(gr.refByID[ids[j]]) })
}

// ReadySet returns every node with no unresolved predecessor, sorted by
// (kind ordinal, id).
func (gr *Graph) ReadySet() []Ref {
	var ready []int64
	nodes := gr.g.Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		if gr.g.To(id).Len() == 0 {
			ready = append(ready, id)
		}
	}
	return gr.refSort(ready)
}

// CentralityScore is one node's betweenness centrality score.
type CentralityScore struct {
	Ref   Ref
	Score float64
}

// Betweenness computes betweenness centrality for every node via
// gonum.org/v1/gonum/graph/network, then orders the result by
// (-score, kind ordinal, id) so the highest-centrality node comes first and
// ties resolve deterministically.
func (gr *Graph) Betweenness() []CentralityScore {
	scores := network.Betweenness(gr.g)
	out := make([]CentralityScore, 0, len(scores))
	for id, score := range scores {
		out = append(out, CentralityScore{Ref: gr.refByID[id], Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Ref.less(out[j].Ref)
	})
	return out
}

// ShortestPath returns the uniform-weight shortest path from "from" to "to"
// via gonum.org/v1/gonum/graph/path's Dijkstra implementation (every edge
// has weight 1, since Graph carries no weighted-edge data). ok is false when
// no path exists.
func (gr *Graph) ShortestPath(from, to Ref) (refs []Ref, weight float64, ok bool) {
	fromID, exists := gr.idByRef[from]
	if !exists {
		return nil, 0, false
	}
	toID, exists := gr.idByRef[to]
	if !exists {
		return nil, 0, false
	}
	shortest := path.DijkstraFrom(simple.Node(fromID), gr.g)
	nodes, w := shortest.To(toID)
	if len(nodes) == 0 || math.IsInf(w, 1) {
		return nil, 0, false
	}
	out := make([]Ref, len(nodes))
	for i, n := range nodes {
		out[i] = gr.refByID[n.ID()]
	}
	return out, w, true
}

// WeaklyConnectedComponents returns every weakly connected component (edge
// direction ignored), each sorted by (kind ordinal, id), and the components
// themselves ordered by their first node so output is fully deterministic.
// Built on a union-find over gr.g's edge set rather than
// topo.ConnectedComponents, since that requires a graph.Undirected view and
// every node here already carries a stable int64 id we can union directly.
func (gr *Graph) WeaklyConnectedComponents() [][]Ref {
	parent := map[int64]int64{}
	nodes := gr.g.Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		parent[id] = id
	}

	var find func(int64) int64
	find = func(x int64) int64 {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int64) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	edges := gr.g.Edges()
	for edges.Next() {
		e := edges.Edge()
		union(e.From().ID(), e.To().ID())
	}

	groups := map[int64][]int64{}
	for id := range parent {
		root := find(id)
		groups[root] = append(groups[root], id)
	}

	components := make([][]Ref, 0, len(groups))
	for _, ids := range groups {
		components = append(components, gr.refSort(ids))
	}
	sort.Slice(components, func(i, j int) bool {
		if len(components[i]) == 0 || len(components[j]) == 0 {
			return len(components[i]) < len(components[j])
		}
		return components[i][0].less(components[j][0])
	})
	return components
}

// BFS returns every node reachable from "from" within budget.MaxDepth hops,
// expanding successors in deterministic (kind ordinal, id) order at each
// level, along with whether the walk was truncated by MaxDepth before
// exhausting the graph.
func (gr *Graph) BFS(from Ref, maxDepth int) (visited []Ref, truncated bool) {
	startID, exists := gr.idByRef[from]
	if !exists {
		return nil, false
	}
	seen := map[int64]bool{startID: true}
	order := []Ref{from}
	frontier := []int64{startID}
	depth := 0
	for len(frontier) > 0 {
		if maxDepth > 0 && depth >= maxDepth {
			if hasUnvisitedSuccessor(gr, frontier, seen) {
				truncated = true
			}
			break
		}
		var next []int64
		sortByRef(gr, frontier)
		for _, id := range frontier {
			succ := gr.g.From(id)
			var succIDs []int64
			for succ.Next() {
				succIDs = append(succIDs, succ.Node().ID())
			}
			sortByRef(gr, succIDs)
			for _, sid := range succIDs {
				if !seen[sid] {
					seen[sid] = true
					order = append(order, gr.refByID[sid])
					next = append(next, sid)
				}
			}
		}
		frontier = next
		depth++
	}
	return order, truncated
}

func hasUnvisitedSuccessor(gr *Graph, frontier []int64, seen map[int64]bool) bool {
	for _, id := range frontier {
		succ := gr.g.From(id)
		for succ.Next() {
			if !seen[succ.Node().ID()] {
				return true
			}
		}
	}
	return false
}
