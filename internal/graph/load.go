package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Decode reads a graph encoded as a JSON object of node -> neighbor -> weight.
func Decode(r io.Reader) (*Graph, error) {
	var adjacency map[string]map[string]float64
	if err := json.NewDecoder(r).Decode(&adjacency); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	if len(adjacency) == 0 {
		return nil, fmt.Errorf("decode graph: no nodes")
	}
	return FromAdjacency(adjacency)
}

// LoadFile reads a JSON graph file.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Encode writes g in the format Decode accepts.
func Encode(w io.Writer, g *Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g.Adjacency())
}
