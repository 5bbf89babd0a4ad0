package evo

import (
	"math/rand"

	"pathga/internal/graph"
)

// CommonNodeCrossover splices two parents at a node both visit in their
// interior. The draw against rate only happens when such a node exists; when
// there is none, or the draw exceeds rate, copies of the parents come back
// unchanged.
//
// Each offspring is passed through RemoveLoops, so it stays a simple path even
// when the prefix of one parent and the suffix of the other share nodes.
func CommonNodeCrossover(rng *rand.Rand, p1, p2 graph.Path, rate float64) (graph.Path, graph.Path, bool) {
	common := commonInterior(p1, p2)
	if len(common) == 0 || rng.Float64() > rate {
		return p1.Clone(), p2.Clone(), false
	}

	point := common[rng.Intn(len(common))]
	i1 := p1.Index(point)
	i2 := p2.Index(point)

	c1 := make(graph.Path, 0, i1+len(p2)-i2)
	c1 = append(c1, p1[:i1]...)
	c1 = append(c1, p2[i2:]...)

	c2 := make(graph.Path, 0, i2+len(p1)-i1)
	c2 = append(c2, p2[:i2]...)
	c2 = append(c2, p1[i1:]...)

	return RemoveLoops(c1), RemoveLoops(c2), true
}

// commonInterior lists the interior nodes of p1 that are also interior nodes
// of p2, in p1 order.
func commonInterior(p1, p2 graph.Path) []string {
	if len(p1) < 3 || len(p2) < 3 {
		return nil
	}
	inner := make(map[string]struct{}, len(p2)-2)
	for _, node := range p2[1 : len(p2)-1] {
		inner[node] = struct{}{}
	}
	common := make([]string, 0, len(inner))
	seen := make(map[string]struct{}, len(inner))
	for _, node := range p1[1 : len(p1)-1] {
		if _, ok := inner[node]; !ok {
			continue
		}
		if _, dup := seen[node]; dup {
			continue
		}
		seen[node] = struct{}{}
		common = append(common, node)
	}
	return common
}

// RemoveLoops cuts every cycle out of p: when a node reappears, everything
// after its first occurrence up to the repeat is dropped. Adjacency is kept
// because the node after the repeat follows the same node.
func RemoveLoops(p graph.Path) graph.Path {
	out := make(graph.Path, 0, len(p))
	pos := make(map[string]int, len(p))
	for _, node := range p {
		if at, ok := pos[node]; ok {
			for _, dropped := range out[at+1:] {
				delete(pos, dropped)
			}
			out = out[:at+1]
			continue
		}
		pos[node] = len(out)
		out = append(out, node)
	}
	return out
}
