package graph

import (
	"fmt"
	"math"

	gonumpath "gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// ShortestPath computes the exact minimum-distance path with Dijkstra's
// algorithm. The genetic searches never call it; it is the yardstick their
// results are measured against.
func ShortestPath(g *Graph, start, end string) (Path, float64, error) {
	if !g.HasNode(start) {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownNode, start)
	}
	if !g.HasNode(end) {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownNode, end)
	}

	ids := g.Nodes()
	index := make(map[string]int64, len(ids))
	dg := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for i, id := range ids {
		index[id] = int64(i)
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, from := range ids {
		for _, arc := range g.neighbors[from] {
			dg.SetWeightedEdge(dg.NewWeightedEdge(simple.Node(index[from]), simple.Node(index[arc.ID]), arc.Weight))
		}
	}

	shortest := gonumpath.DijkstraFrom(simple.Node(index[start]), dg)
	nodes, weight := shortest.To(index[end])
	if len(nodes) == 0 || math.IsInf(weight, 1) {
		return nil, math.Inf(1), nil
	}
	p := make(Path, 0, len(nodes))
	for _, n := range nodes {
		p = append(p, ids[n.ID()])
	}
	return p, weight, nil
}
