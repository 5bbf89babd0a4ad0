package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"pathga/internal/graph"
)

var (
	// ErrUnreachable is returned when no simple path from start to end could be
	// constructed.
	ErrUnreachable = errors.New("target unreachable")
	// ErrDegenerateEndpoints is returned when start and end are the same node.
	ErrDegenerateEndpoints = errors.New("start and end must differ")
)

// RandomWalk makes one randomized depth-first attempt from start to end,
// choosing uniformly among unvisited neighbors at every step. Nodes in avoid
// are never entered. ok is false when the walk dead-ends.
func RandomWalk(g *graph.Graph, rng *rand.Rand, start, end string, avoid map[string]struct{}) (graph.Path, bool, error) {
	path := graph.Path{start}
	visited := map[string]struct{}{start: {}}
	candidates := make([]string, 0, 8)
	current := start
	for current != end {
		arcs, err := g.Neighbors(current)
		if err != nil {
			return nil, false, err
		}
		candidates = candidates[:0]
		for _, arc := range arcs {
			if _, seen := visited[arc.ID]; seen {
				continue
			}
			if _, blocked := avoid[arc.ID]; blocked {
				continue
			}
			candidates = append(candidates, arc.ID)
		}
		if len(candidates) == 0 {
			return nil, false, nil
		}
		next := candidates[rng.Intn(len(candidates))]
		path = append(path, next)
		visited[next] = struct{}{}
		current = next
	}
	return path, true, nil
}

// ConstructPath retries RandomWalk until it reaches end, giving up with
// ErrUnreachable after maxAttempts dead ends in a row.
func ConstructPath(g *graph.Graph, rng *rand.Rand, start, end string, maxAttempts int) (graph.Path, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		path, ok, err := RandomWalk(g, rng, start, end, nil)
		if err != nil {
			return nil, err
		}
		if ok {
			return path, nil
		}
	}
	return nil, fmt.Errorf("%w: no path %s -> %s constructed in %d attempts", ErrUnreachable, start, end, maxAttempts)
}
