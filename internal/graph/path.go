package graph

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrEmptyPath is returned when a path has no nodes.
	ErrEmptyPath = errors.New("graph: path is empty")
	// ErrRepeatedNode is returned when a path visits a node twice.
	ErrRepeatedNode = errors.New("graph: path repeats a node")
	// ErrEndpointMismatch is returned when a path does not start or end where required.
	ErrEndpointMismatch = errors.New("graph: path endpoints mismatch")
)

// Path is an ordered sequence of node ids.
type Path []string

// Clone returns an independent copy of p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return append(Path(nil), p...)
}

// Equal reports whether p and other visit the same nodes in the same order.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Index returns the first position of id in p, or -1.
func (p Path) Index(id string) int {
	for i, node := range p {
		if node == id {
			return i
		}
	}
	return -1
}

// IsSimple reports whether no node repeats.
func (p Path) IsSimple() bool {
	seen := make(map[string]struct{}, len(p))
	for _, node := range p {
		if _, ok := seen[node]; ok {
			return false
		}
		seen[node] = struct{}{}
	}
	return true
}

// Key is a compact identity used to count distinct paths.
func (p Path) Key() string {
	return strings.Join(p, "\x00")
}

func (p Path) String() string {
	return strings.Join(p, " -> ")
}

// Distance sums arc weights along p. A missing arc or unknown node makes the
// path invalid and its distance +Inf.
func (g *Graph) Distance(p Path) float64 {
	total := 0.0
	for i := 0; i+1 < len(p); i++ {
		arcs, ok := g.adj[p[i]]
		if !ok {
			return math.Inf(1)
		}
		w, ok := arcs[p[i+1]]
		if !ok {
			return math.Inf(1)
		}
		total += w
	}
	return total
}

// Fitness scores a path as 1/distance; invalid paths and zero-length paths
// score 0.
func (g *Graph) Fitness(p Path) float64 {
	return FitnessOf(g.Distance(p))
}

// FitnessOf converts a distance into the inverse-distance fitness.
func FitnessOf(distance float64) float64 {
	if distance == 0 || math.IsInf(distance, 0) || math.IsNaN(distance) {
		return 0
	}
	return 1 / distance
}

// ValidatePath checks that p is a simple path from start to end whose
// consecutive nodes are adjacent in g.
func (g *Graph) ValidatePath(p Path, start, end string) error {
	if len(p) == 0 {
		return ErrEmptyPath
	}
	if p[0] != start || p[len(p)-1] != end {
		return fmt.Errorf("%w: got %s..%s want %s..%s", ErrEndpointMismatch, p[0], p[len(p)-1], start, end)
	}
	seen := make(map[string]struct{}, len(p))
	for i, node := range p {
		if !g.HasNode(node) {
			return fmt.Errorf("%w: %q", ErrUnknownNode, node)
		}
		if _, ok := seen[node]; ok {
			return fmt.Errorf("%w: %q at %d", ErrRepeatedNode, node, i)
		}
		seen[node] = struct{}{}
		if i > 0 {
			if _, err := g.Weight(p[i-1], node); err != nil {
				return err
			}
		}
	}
	return nil
}
