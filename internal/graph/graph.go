// Package graph holds the weighted adjacency map searched by the genetic
// algorithms, plus the path arithmetic they score candidates with.
//
// A Graph stores arcs exactly as they are added. Undirected maps are expressed
// by adding both directions with the same weight; Symmetric reports the first
// arc that has no matching reverse. Neighbor lists are kept sorted by node id so
// that a search driven by a seeded random source walks the graph in the same
// order on every run.
package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrUnknownNode is returned when a node id is not present in the graph.
	ErrUnknownNode = errors.New("graph: unknown node")
	// ErrBadWeight is returned for non-positive, NaN or infinite edge weights.
	ErrBadWeight = errors.New("graph: edge weight must be positive and finite")
	// ErrEmptyNodeID is returned when an empty string is used as a node id.
	ErrEmptyNodeID = errors.New("graph: node id is empty")
	// ErrSelfLoop is returned when an edge would connect a node to itself.
	ErrSelfLoop = errors.New("graph: self-loops are not allowed")
	// ErrNoEdge is returned when two nodes are not adjacent.
	ErrNoEdge = errors.New("graph: no edge between nodes")
)

// Neighbor is one outgoing arc of a node.
type Neighbor struct {
	ID     string
	Weight float64
}

// Graph is a weighted adjacency map keyed by node id. It is not safe for
// concurrent mutation, but any number of searches may read it at once.
type Graph struct {
	adj map[string]map[string]float64
	// sorted per-node arc lists, rebuilt on mutation so reads never write
	neighbors map[string][]Neighbor
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		adj:       make(map[string]map[string]float64),
		neighbors: make(map[string][]Neighbor),
	}
}

// FromAdjacency builds a graph from a nested node -> neighbor -> weight map,
// the same shape the JSON graph files use. Nodes that only appear as neighbors
// are added as well.
func FromAdjacency(adjacency map[string]map[string]float64) (*Graph, error) {
	g := New()
	ids := make([]string, 0, len(adjacency))
	for id := range adjacency {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, from := range ids {
		if err := g.AddNode(from); err != nil {
			return nil, err
		}
		for to, weight := range adjacency[from] {
			if err := g.AddArc(from, to, weight); err != nil {
				return nil, fmt.Errorf("arc %s->%s: %w", from, to, err)
			}
		}
	}
	return g, nil
}

// AddNode registers id with no arcs. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) error {
	if id == "" {
		return ErrEmptyNodeID
	}
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = make(map[string]float64)
		g.neighbors[id] = nil
	}
	return nil
}

// AddArc adds or replaces the directed arc from -> to.
func (g *Graph) AddArc(from, to string, weight float64) error {
	if from == "" || to == "" {
		return ErrEmptyNodeID
	}
	if from == to {
		return ErrSelfLoop
	}
	if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("%w: %v", ErrBadWeight, weight)
	}
	if err := g.AddNode(from); err != nil {
		return err
	}
	if err := g.AddNode(to); err != nil {
		return err
	}
	g.adj[from][to] = weight
	g.rebuildNeighbors(from)
	return nil
}

func (g *Graph) rebuildNeighbors(id string) {
	arcs := g.adj[id]
	list := make([]Neighbor, 0, len(arcs))
	for to, w := range arcs {
		list = append(list, Neighbor{ID: to, Weight: w})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	g.neighbors[id] = list
}

// AddEdge adds the undirected edge a <-> b as two arcs of equal weight.
func (g *Graph) AddEdge(a, b string, weight float64) error {
	if err := g.AddArc(a, b, weight); err != nil {
		return err
	}
	return g.AddArc(b, a, weight)
}

// HasNode reports whether id is a node of g.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.adj[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.adj)
}

// Nodes returns all node ids in ascending order.
func (g *Graph) Nodes() []string {
	ids := make([]string, 0, len(g.adj))
	for id := range g.adj {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Neighbors returns the outgoing arcs of id sorted by neighbor id. The returned
// slice is shared and must not be modified.
func (g *Graph) Neighbors(id string) ([]Neighbor, error) {
	if _, ok := g.adj[id]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}
	return g.neighbors[id], nil
}

// Weight returns the weight of the arc from -> to.
func (g *Graph) Weight(from, to string) (float64, error) {
	arcs, ok := g.adj[from]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNode, from)
	}
	if _, ok := g.adj[to]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNode, to)
	}
	w, ok := arcs[to]
	if !ok {
		return 0, fmt.Errorf("%w: %s->%s", ErrNoEdge, from, to)
	}
	return w, nil
}

// Symmetric reports whether every arc has a reverse arc of the same weight.
// When it does not, the first offending arc in node order is returned.
func (g *Graph) Symmetric() (bool, string, string) {
	for _, from := range g.Nodes() {
		arcs, _ := g.Neighbors(from)
		for _, arc := range arcs {
			back, ok := g.adj[arc.ID][from]
			if !ok || back != arc.Weight {
				return false, from, arc.ID
			}
		}
	}
	return true, "", ""
}

// Adjacency returns a deep copy of the arcs in the nested map form accepted by
// FromAdjacency.
func (g *Graph) Adjacency() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(g.adj))
	for from, arcs := range g.adj {
		copied := make(map[string]float64, len(arcs))
		for to, w := range arcs {
			copied[to] = w
		}
		out[from] = copied
	}
	return out
}

// Reachable reports whether to can be reached from from by following arcs.
func (g *Graph) Reachable(from, to string) (bool, error) {
	if !g.HasNode(from) {
		return false, fmt.Errorf("%w: %q", ErrUnknownNode, from)
	}
	if !g.HasNode(to) {
		return false, fmt.Errorf("%w: %q", ErrUnknownNode, to)
	}
	seen := map[string]struct{}{from: {}}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			return true, nil
		}
		for next := range g.adj[cur] {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return false, nil
}
