//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package graph provides a workflow engine for resumable, multi-turn
// conversations modeled as graphs of typed state transformations.
package graph

import (
	"context"
	"sync"
)

// Special node identifiers.
const (
	// Start is the virtual entry point of the graph.
	Start = "__start__"
	// End is the virtual exit point of the graph.
	End = "__end__"
)

// NodeFunc is a function that processes graph state.
// It returns one of three result variants:
//   - State: a state update to merge via the schema's reducers.
//   - *Command: a state update plus an explicit jump to another node.
//   - *Interrupt: a suspension awaiting external input.
//
// Returning nil with a nil error is a programming error.
type NodeFunc func(ctx context.Context, state State) (any, error)

// Node represents a single node in the graph.
type Node struct {
	ID          string
	Name        string
	Description string
	Function    NodeFunc

	// destinations declares the node IDs this node may jump to via
	// Command results. Declared targets are validated at compile time.
	destinations map[string]string
}

// Edge represents a static transition between two nodes.
type Edge struct {
	From string
	To   string
}

// ConditionalFunc decides which label to follow from a node.
type ConditionalFunc func(ctx context.Context, state State) (string, error)

// ConditionalEdge represents a branching transition. The condition returns a
// label which is resolved to a concrete node through PathMap.
type ConditionalEdge struct {
	From      string
	Condition ConditionalFunc
	PathMap   map[string]string
	// Labels optionally declares the condition's possible outputs so the
	// compiler can check that every declared label has a target.
	Labels []string
}

// Command is a node result that both updates state and redirects control
// flow to an explicit target node, bypassing the node's outgoing edges.
type Command struct {
	// Update is the state update to apply before jumping.
	Update State
	// GoTo is the ID of the node to execute next.
	GoTo string
}

// Graph is a compiled, immutable workflow graph. Build one via StateGraph.
type Graph struct {
	mu               sync.RWMutex
	schema           *StateSchema
	nodes            map[string]*Node
	edges            map[string][]*Edge
	conditionalEdges map[string]*ConditionalEdge
	entryPoint       string
}

// newGraph creates an empty graph with the given state schema.
func newGraph(schema *StateSchema) *Graph {
	return &Graph{
		schema:           schema,
		nodes:            make(map[string]*Node),
		edges:            make(map[string][]*Edge),
		conditionalEdges: make(map[string]*ConditionalEdge),
	}
}

// Schema returns the graph's state schema.
func (g *Graph) Schema() *StateSchema {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.schema
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[id]
	return node, ok
}

// EntryPoint returns the ID of the graph's entry node.
func (g *Graph) EntryPoint() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.entryPoint
}

// edgesFrom returns the static edges leaving the given node.
func (g *Graph) edgesFrom(id string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[id]
}

// conditionalEdgeFrom returns the conditional edge leaving the given node.
func (g *Graph) conditionalEdgeFrom(id string) (*ConditionalEdge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	edge, ok := g.conditionalEdges[id]
	return edge, ok
}

func (g *Graph) addNode(node *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[node.ID] = node
}

func (g *Graph) addEdge(edge *Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges[edge.From] = append(g.edges[edge.From], edge)
}

func (g *Graph) setConditionalEdge(edge *ConditionalEdge) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conditionalEdges[edge.From] = edge
}

func (g *Graph) setEntryPoint(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entryPoint = id
}
