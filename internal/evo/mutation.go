package evo

import (
	"math/rand"

	"pathga/internal/graph"
)

// SegmentMutation replaces the stretch path[i-1..j] with a fresh random walk
// between the same two nodes, where 1 <= i <= j <= len-2. Drawing i == j is a
// no-op. The walk may not enter nodes kept outside the segment; a dead end
// leaves the path unchanged. The returned path is always a new slice.
func SegmentMutation(g *graph.Graph, rng *rand.Rand, path graph.Path) (graph.Path, bool, error) {
	n := len(path)
	if n <= 2 {
		return path.Clone(), false, nil
	}

	i := 1 + rng.Intn(n-2)
	j := i + rng.Intn(n-1-i)
	if i >= j {
		return path.Clone(), false, nil
	}

	from, to := path[i-1], path[j]
	avoid := make(map[string]struct{}, n)
	for _, node := range path[:i-1] {
		avoid[node] = struct{}{}
	}
	for _, node := range path[j+1:] {
		avoid[node] = struct{}{}
	}

	sub, ok, err := RandomWalk(g, rng, from, to, avoid)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return path.Clone(), false, nil
	}

	mutated := make(graph.Path, 0, i-1+len(sub)+n-j-1)
	mutated = append(mutated, path[:i-1]...)
	mutated = append(mutated, sub...)
	mutated = append(mutated, path[j+1:]...)
	if mutated[0] != path[0] || mutated[len(mutated)-1] != path[n-1] || !mutated.IsSimple() {
		return path.Clone(), false, nil
	}
	return mutated, true, nil
}
