package graph

import (
	"fmt"
	"sort"
)

var builtinGraphs = map[string]map[string]map[string]float64{
	"romania": {
		"Oradea":         {"Zerind": 71, "Sibiu": 151},
		"Zerind":         {"Oradea": 71, "Arad": 75},
		"Arad":           {"Zerind": 75, "Sibiu": 140, "Timisoara": 118},
		"Timisoara":      {"Arad": 118, "Lugoj": 111},
		"Lugoj":          {"Timisoara": 111, "Mehadia": 70},
		"Mehadia":        {"Lugoj": 70, "Drobeta": 75},
		"Drobeta":        {"Mehadia": 75, "Craiova": 120},
		"Craiova":        {"Drobeta": 120, "Rimnicu Vilcea": 146, "Pitesti": 138},
		"Sibiu":          {"Arad": 140, "Oradea": 151, "Fagaras": 99, "Rimnicu Vilcea": 80},
		"Rimnicu Vilcea": {"Sibiu": 80, "Craiova": 146, "Pitesti": 97},
		"Fagaras":        {"Sibiu": 99, "Bucharest": 211},
		"Pitesti":        {"Rimnicu Vilcea": 97, "Craiova": 138, "Bucharest": 101},
		"Bucharest":      {"Fagaras": 211, "Pitesti": 101, "Giurgiu": 90, "Urziceni": 85},
		"Giurgiu":        {"Bucharest": 90},
		"Urziceni":       {"Bucharest": 85, "Hirsova": 98, "Vaslui": 142},
		"Hirsova":        {"Urziceni": 98, "Eforie": 86},
		"Eforie":         {"Hirsova": 86},
		"Vaslui":         {"Urziceni": 142, "Iasi": 92},
		"Iasi":           {"Vaslui": 92, "Neamt": 87},
		"Neamt":          {"Iasi": 87},
	},
	"exam-a": {
		"A": {"B": 2, "G": 6},
		"B": {"A": 2, "C": 7, "E": 2},
		"C": {"B": 7, "D": 3, "F": 3},
		"D": {"C": 3, "H": 2},
		"E": {"B": 2, "F": 2, "G": 1},
		"F": {"C": 3, "E": 2, "H": 2},
		"G": {"A": 6, "E": 1, "H": 4},
		"H": {"D": 2, "F": 2, "G": 4},
	},
	"exam-b": {
		"a": {"b": 16, "c": 10, "d": 5},
		"b": {"a": 16, "c": 2, "f": 4, "g": 6},
		"c": {"a": 10, "b": 2, "d": 4, "f": 12},
		"d": {"a": 5, "c": 4, "e": 15},
		"e": {"d": 15, "f": 3, "z": 5},
		"f": {"b": 4, "c": 12, "e": 3, "g": 8, "z": 16},
		"g": {"b": 6, "f": 8, "z": 7},
		"z": {"e": 5, "f": 16, "g": 7},
	},
}

// BuiltinEndpoints holds the start/end pairs each built-in graph was posed with.
var BuiltinEndpoints = map[string][][2]string{
	"romania": {{"Oradea", "Eforie"}, {"Arad", "Neamt"}},
	"exam-a":  {{"A", "D"}},
	"exam-b":  {{"a", "z"}},
}

// BuiltinNames lists the names accepted by Builtin.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinGraphs))
	for name := range builtinGraphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a fresh copy of a named fixture graph.
func Builtin(name string) (*Graph, error) {
	adjacency, ok := builtinGraphs[name]
	if !ok {
		return nil, fmt.Errorf("unknown built-in graph: %s", name)
	}
	return FromAdjacency(adjacency)
}
