//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"fmt"

	"trpc.group/trpc-go/trpc-cruise-agent-go/model"
)

// StateGraph is the builder for workflow graphs. All topology is declared
// through the builder; Compile validates the whole graph and returns an
// immutable Graph. Errors accumulate so a single Compile call reports every
// problem at once.
type StateGraph struct {
	graph    *Graph
	problems []string
}

// NewStateGraph creates a new graph builder with the given state schema.
func NewStateGraph(schema *StateSchema) *StateGraph {
	if schema == nil {
		schema = NewStateSchema()
	}
	return &StateGraph{graph: newGraph(schema)}
}

// NodeOption configures a node added to the builder.
type NodeOption func(*Node)

// WithName sets a human-readable name for the node.
func WithName(name string) NodeOption {
	return func(n *Node) { n.Name = name }
}

// WithDescription sets a description for the node.
func WithDescription(description string) NodeOption {
	return func(n *Node) { n.Description = description }
}

// WithDestinations declares the nodes this node may jump to via Command
// results. The map key is the destination node ID; the value is an optional
// human-readable label.
func WithDestinations(destinations map[string]string) NodeOption {
	return func(n *Node) { n.destinations = destinations }
}

// AddNode adds a node to the graph.
func (sg *StateGraph) AddNode(id string, fn NodeFunc, opts ...NodeOption) *StateGraph {
	if id == "" {
		sg.problems = append(sg.problems, "node ID cannot be empty")
		return sg
	}
	if id == Start || id == End {
		sg.problems = append(sg.problems, fmt.Sprintf("node ID %s is reserved", id))
		return sg
	}
	if fn == nil {
		sg.problems = append(sg.problems, fmt.Sprintf("node %s has nil function", id))
		return sg
	}
	if _, exists := sg.graph.nodes[id]; exists {
		sg.problems = append(sg.problems, fmt.Sprintf("node %s is already defined", id))
		return sg
	}
	node := &Node{ID: id, Name: id, Function: fn}
	for _, opt := range opts {
		opt(node)
	}
	sg.graph.addNode(node)
	return sg
}

// AddEdge adds a static edge between two nodes.
func (sg *StateGraph) AddEdge(from, to string) *StateGraph {
	if from == "" || to == "" {
		sg.problems = append(sg.problems, "edge endpoints cannot be empty")
		return sg
	}
	if from == End {
		sg.problems = append(sg.problems, "cannot add edge from End node")
		return sg
	}
	if from == Start {
		return sg.SetEntryPoint(to)
	}
	sg.graph.addEdge(&Edge{From: from, To: to})
	return sg
}

// AddConditionalEdges adds a conditional branch from a node. The condition's
// result label is resolved through pathMap to the next node.
func (sg *StateGraph) AddConditionalEdges(
	from string,
	condition ConditionalFunc,
	pathMap map[string]string,
	labels ...string,
) *StateGraph {
	if condition == nil {
		sg.problems = append(sg.problems, fmt.Sprintf("conditional edge from %s has nil condition", from))
		return sg
	}
	if len(pathMap) == 0 {
		sg.problems = append(sg.problems, fmt.Sprintf("conditional edge from %s has empty path map", from))
		return sg
	}
	if _, exists := sg.graph.conditionalEdges[from]; exists {
		sg.problems = append(sg.problems, fmt.Sprintf("node %s already has a conditional edge", from))
		return sg
	}
	sg.graph.setConditionalEdge(&ConditionalEdge{
		From:      from,
		Condition: condition,
		PathMap:   pathMap,
		Labels:    labels,
	})
	return sg
}

// Tool-loop routing labels used by AddToolsConditionalEdges.
const (
	labelTools    = "tools"
	labelFallback = "fallback"
)

// AddToolsConditionalEdges wires the standard assistant/tools loop: if the
// last message in state carries tool calls, control goes to toolsNode,
// otherwise to fallbackNode.
func (sg *StateGraph) AddToolsConditionalEdges(from, toolsNode, fallbackNode string) *StateGraph {
	condition := func(ctx context.Context, state State) (string, error) {
		msgs, _ := state[StateKeyMessages].([]model.Message)
		if len(msgs) > 0 && len(msgs[len(msgs)-1].ToolCalls) > 0 {
			return labelTools, nil
		}
		return labelFallback, nil
	}
	return sg.AddConditionalEdges(from, condition, map[string]string{
		labelTools:    toolsNode,
		labelFallback: fallbackNode,
	}, labelTools, labelFallback)
}

// SetEntryPoint sets the graph's entry node.
func (sg *StateGraph) SetEntryPoint(id string) *StateGraph {
	if sg.graph.entryPoint != "" && sg.graph.entryPoint != id {
		sg.problems = append(sg.problems, fmt.Sprintf(
			"entry point already set to %s", sg.graph.entryPoint))
		return sg
	}
	sg.graph.setEntryPoint(id)
	return sg
}

// SetFinishPoint adds an edge from the given node to End.
func (sg *StateGraph) SetFinishPoint(id string) *StateGraph {
	return sg.AddEdge(id, End)
}

// Compile validates the graph and returns an immutable compiled graph.
// All accumulated problems are reported together as a *ConfigError.
func (sg *StateGraph) Compile() (*Graph, error) {
	problems := append([]string{}, sg.problems...)

	if len(sg.graph.nodes) == 0 {
		problems = append(problems, "graph has no nodes")
	}
	if sg.graph.entryPoint == "" {
		problems = append(problems, "graph has no entry point")
	} else if _, ok := sg.graph.nodes[sg.graph.entryPoint]; !ok {
		problems = append(problems, fmt.Sprintf("entry point %s is not a node", sg.graph.entryPoint))
	}

	// Every edge endpoint must resolve to a node or End.
	for from, edges := range sg.graph.edges {
		if _, ok := sg.graph.nodes[from]; !ok {
			problems = append(problems, fmt.Sprintf("edge source %s is not a node", from))
		}
		for _, edge := range edges {
			if edge.To == End {
				continue
			}
			if _, ok := sg.graph.nodes[edge.To]; !ok {
				problems = append(problems, fmt.Sprintf(
					"edge %s -> %s targets unknown node", edge.From, edge.To))
			}
		}
	}

	// Conditional path maps must resolve, and declared labels must be
	// covered by the path map.
	for from, edge := range sg.graph.conditionalEdges {
		if _, ok := sg.graph.nodes[from]; !ok {
			problems = append(problems, fmt.Sprintf("conditional edge source %s is not a node", from))
		}
		for label, target := range edge.PathMap {
			if target == End {
				continue
			}
			if _, ok := sg.graph.nodes[target]; !ok {
				problems = append(problems, fmt.Sprintf(
					"conditional edge %s: label %s targets unknown node %s", from, label, target))
			}
		}
		for _, label := range edge.Labels {
			if _, ok := edge.PathMap[label]; !ok {
				problems = append(problems, fmt.Sprintf(
					"conditional edge %s: declared label %s has no path map entry", from, label))
			}
		}
	}

	// Declared Command destinations must resolve.
	for id, node := range sg.graph.nodes {
		for dest := range node.destinations {
			if dest == End {
				continue
			}
			if _, ok := sg.graph.nodes[dest]; !ok {
				problems = append(problems, fmt.Sprintf(
					"node %s declares unknown destination %s", id, dest))
			}
		}
	}

	if len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}
	return sg.graph, nil
}

// MustCompile compiles the graph and panics on configuration errors. Intended
// for statically-declared graphs whose topology is fixed at startup.
func (sg *StateGraph) MustCompile() *Graph {
	g, err := sg.Compile()
	if err != nil {
		panic(err)
	}
	return g
}
