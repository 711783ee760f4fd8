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

	"trpc.group/trpc-go/trpc-cruise-agent-go/log"
)

// defaultMaxSteps bounds the number of node executions within a single turn.
const defaultMaxSteps = 25

// Executor runs a compiled graph. It is stateless between calls and safe for
// concurrent use; all per-run data lives in the State it is given.
type Executor struct {
	graph    *Graph
	maxSteps int
}

// ExecutorOption configures an executor.
type ExecutorOption func(*Executor)

// WithMaxSteps overrides the per-turn step budget.
func WithMaxSteps(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// NewExecutor creates an executor for the given compiled graph.
func NewExecutor(graph *Graph, opts ...ExecutorOption) (*Executor, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}
	e := &Executor{graph: graph, maxSteps: defaultMaxSteps}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Graph returns the executor's compiled graph.
func (e *Executor) Graph() *Graph {
	return e.graph
}

// InterruptInfo describes a pending suspension surfaced by Execute.
type InterruptInfo struct {
	// NodeID is the node to re-execute when the answer arrives.
	NodeID string
	// Key is the await site within the node.
	Key string
	// Prompt is the question for the human.
	Prompt string
	// ToolCallID optionally links the suspension to an assistant tool call.
	ToolCallID string
}

// ExecutionResult is the outcome of one Execute call.
type ExecutionResult struct {
	// State is the final state after the run.
	State State
	// Interrupt is non-nil when the run suspended awaiting external input.
	Interrupt *InterruptInfo
	// Steps is the number of node executions performed.
	Steps int
}

// Execute runs the graph from startNode (or the entry point when startNode is
// empty) until it reaches End, suspends, errors, or exhausts the step budget.
func (e *Executor) Execute(ctx context.Context, state State, startNode string) (*ExecutionResult, error) {
	current := startNode
	if current == "" {
		current = e.graph.EntryPoint()
	}
	steps := 0
	for current != End {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if steps >= e.maxSteps {
			return nil, &StepLimitError{MaxSteps: e.maxSteps}
		}
		node, ok := e.graph.Node(current)
		if !ok {
			return nil, fmt.Errorf("node %s not found", current)
		}
		steps++
		log.Debugf("executing node %s (step %d)", current, steps)

		result, err := node.Function(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", current, err)
		}

		switch v := result.(type) {
		case State:
			state = e.graph.Schema().ApplyUpdate(state, v)
		case *Command:
			if v == nil {
				return nil, fmt.Errorf("node %s: %w", current, ErrEmptyNodeResult)
			}
			if v.Update != nil {
				state = e.graph.Schema().ApplyUpdate(state, v.Update)
			}
			if v.GoTo != End {
				if _, ok := e.graph.Node(v.GoTo); !ok {
					return nil, &RoutingError{Node: current, Label: v.GoTo}
				}
			}
			current = v.GoTo
			continue
		case *Interrupt:
			if v == nil {
				return nil, fmt.Errorf("node %s: %w", current, ErrEmptyNodeResult)
			}
			if v.Update != nil {
				state = e.graph.Schema().ApplyUpdate(state, v.Update)
			}
			return &ExecutionResult{
				State: state,
				Interrupt: &InterruptInfo{
					NodeID:     current,
					Key:        v.Key,
					Prompt:     v.Prompt,
					ToolCallID: v.ToolCallID,
				},
				Steps: steps,
			}, nil
		case nil:
			return nil, fmt.Errorf("node %s: %w", current, ErrEmptyNodeResult)
		default:
			return nil, fmt.Errorf("node %s returned unsupported result type %T", current, result)
		}

		next, err := e.nextNode(ctx, current, state)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return &ExecutionResult{State: state, Steps: steps}, nil
}

// nextNode resolves the node to execute after from, consulting the
// conditional edge first, then static edges, defaulting to End.
func (e *Executor) nextNode(ctx context.Context, from string, state State) (string, error) {
	if edge, ok := e.graph.conditionalEdgeFrom(from); ok {
		label, err := edge.Condition(ctx, state)
		if err != nil {
			return "", fmt.Errorf("condition at node %s: %w", from, err)
		}
		target, ok := edge.PathMap[label]
		if !ok {
			labels := make([]string, 0, len(edge.PathMap))
			for l := range edge.PathMap {
				labels = append(labels, l)
			}
			return "", &RoutingError{Node: from, Label: label, Labels: labels}
		}
		return target, nil
	}
	if edges := e.graph.edgesFrom(from); len(edges) > 0 {
		return edges[0].To, nil
	}
	return End, nil
}
