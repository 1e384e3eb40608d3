// Package dag provides directed acyclic graph operations for dataflow plan
// structure: cycle detection, topological ordering of plan operations, and
// sink discovery.
package dag

import (
	"fmt"
	"sort"
)

// Node is one plan operation in the graph.
type Node struct {
	// ID is the unique identifier (the plan node ID)
	ID string
	// Data holds the underlying plan node
	Data any
}

// Graph is a directed acyclic graph of plan operations. Edges run from an
// operation's input to the operation consuming it.
type Graph struct {
	nodes     map[string]*Node
	consumers map[string][]string // input -> consuming operations
	inputs    map[string][]string // operation -> its inputs
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		consumers: make(map[string][]string),
		inputs:    make(map[string][]string),
	}
}

// AddNode adds an operation to the graph, replacing its data if it already
// exists.
func (g *Graph) AddNode(id string, data any) {
	if _, exists := g.nodes[id]; !exists {
		g.nodes[id] = &Node{ID: id, Data: data}
		g.consumers[id] = []string{}
		g.inputs[id] = []string{}
		return
	}
	g.nodes[id].Data = data
}

// AddEdge records that consumerID reads the output of inputID.
func (g *Graph) AddEdge(inputID, consumerID string) error {
	if _, exists := g.nodes[inputID]; !exists {
		return fmt.Errorf("input node %q does not exist", inputID)
	}
	if _, exists := g.nodes[consumerID]; !exists {
		return fmt.Errorf("consumer node %q does not exist", consumerID)
	}
	if inputID == consumerID {
		return fmt.Errorf("self-loop detected: %s", inputID)
	}

	if !contains(g.consumers[inputID], consumerID) {
		g.consumers[inputID] = append(g.consumers[inputID], consumerID)
	}
	if !contains(g.inputs[consumerID], inputID) {
		g.inputs[consumerID] = append(g.inputs[consumerID], inputID)
	}
	return nil
}

// GetNode returns an operation by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// NodeCount returns the number of operations in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// HasCycle returns true if the graph contains a cycle, along with the cycle
// path for error reporting.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, consumerID := range g.consumers[id] {
			if !visited[consumerID] {
				path[consumerID] = id
				if dfs(consumerID) {
					return true
				}
			} else if recStack[consumerID] {
				// Found cycle, reconstruct path
				cyclePath = []string{consumerID}
				for curr := id; curr != consumerID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{consumerID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	// Sort start nodes for a deterministic cycle report
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// TopologicalSort returns operations in dependency order (inputs before
// consumers). Returns an error if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	visited := make(map[string]bool)
	var result []*Node

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true

		for _, inputID := range g.inputs[id] {
			visit(inputID)
		}

		result = append(result, g.nodes[id])
	}

	// Sort node IDs first for deterministic order
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		visit(id)
	}

	return result, nil
}

// Sinks returns operations whose output nothing consumes. A well-formed
// plan has exactly one: its root.
func (g *Graph) Sinks() []string {
	var sinks []string
	for id := range g.nodes {
		if len(g.consumers[id]) == 0 {
			sinks = append(sinks, id)
		}
	}
	sort.Strings(sinks)
	return sinks
}

func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
