package graph

import (
	"fmt"
	"sort"

	"github.com/cuemby/reactix/pkg/keys"
)

// CycleError is returned by AssignLevels when the dependency graph is not a
// DAG. Witness is a minimal cycle path (first element repeated at the end),
// found by the first back edge a deterministic DFS encounters.
type CycleError struct {
	Witness []keys.ReactionKey
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reaction graph cycle: %v", e.Witness)
}

// Graph is the reaction dependency DAG: an edge A -> B means reaction A must
// run, at the same tag, before reaction B is eligible.
type Graph struct {
	adj   map[keys.ReactionKey][]keys.ReactionKey
	nodes map[keys.ReactionKey]bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{adj: make(map[keys.ReactionKey][]keys.ReactionKey), nodes: make(map[keys.ReactionKey]bool)}
}

// AddNode ensures k is present in the graph even if it has no edges yet
// (e.g. a reaction with no dependents still needs a level).
func (g *Graph) AddNode(k keys.ReactionKey) {
	g.nodes[k] = true
	if _, ok := g.adj[k]; !ok {
		g.adj[k] = nil
	}
}

// AddEdge records that from must run before to.
func (g *Graph) AddEdge(from, to keys.ReactionKey) {
	g.AddNode(from)
	g.AddNode(to)
	g.adj[from] = append(g.adj[from], to)
}

func (g *Graph) sortedNodes() []keys.ReactionKey {
	out := make([]keys.ReactionKey, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DetectCycle runs a deterministic DFS (nodes and edges visited in key
// order) and returns the first cycle it finds via a gray-node back edge.
func (g *Graph) DetectCycle() (witness []keys.ReactionKey, found bool) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[keys.ReactionKey]int, len(g.nodes))
	var stack []keys.ReactionKey
	var cycleStart keys.ReactionKey
	hasCycle := false

	var visit func(n keys.ReactionKey) bool
	visit = func(n keys.ReactionKey) bool {
		color[n] = gray
		stack = append(stack, n)
		for _, m := range g.adj[n] {
			if color[m] == gray {
				cycleStart = m
				return true
			}
			if color[m] == white {
				if visit(m) {
					return true
				}
			}
		}
		color[n] = black
		stack = stack[:len(stack)-1]
		return false
	}

	for _, n := range g.sortedNodes() {
		if color[n] == white {
			if visit(n) {
				hasCycle = true
				break
			}
		}
	}
	if !hasCycle {
		return nil, false
	}

	idx := 0
	for i, n := range stack {
		if n == cycleStart {
			idx = i
			break
		}
	}
	witness = append(witness, stack[idx:]...)
	witness = append(witness, cycleStart)
	return witness, true
}

// AssignLevels returns each node's Coffman–Graham level: the length of its
// longest incoming path, with sourceless nodes at level 0. Returns
// *CycleError if the graph is not a DAG.
func (g *Graph) AssignLevels() (map[keys.ReactionKey]int, error) {
	if witness, found := g.DetectCycle(); found {
		return nil, &CycleError{Witness: witness}
	}

	ordered := g.sortedNodes()
	indegree := make(map[keys.ReactionKey]int, len(ordered))
	for _, n := range ordered {
		indegree[n] = 0
	}
	for _, n := range ordered {
		for _, m := range g.adj[n] {
			indegree[m]++
		}
	}

	level := make(map[keys.ReactionKey]int, len(ordered))
	queue := make([]keys.ReactionKey, 0, len(ordered))
	for _, n := range ordered {
		level[n] = 0
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, m := range g.adj[n] {
			if level[n]+1 > level[m] {
				level[m] = level[n] + 1
			}
			indegree[m]--
			if indegree[m] == 0 {
				queue = append(queue, m)
			}
		}
	}
	return level, nil
}
