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
	"errors"
	"fmt"
	"strings"
)

// Errors.
var (
	// ErrThreadIDRequired is returned when a checkpoint operation is attempted
	// without a thread id.
	ErrThreadIDRequired = errors.New("thread_id is required")
	// ErrEmptyNodeResult is returned when a node function returns nil.
	ErrEmptyNodeResult = errors.New("node function returned nil result")
)

// ConfigError reports an invalid graph definition. It is produced at build
// time by StateGraph.Compile and is fatal: a graph carrying configuration
// errors must never be executed.
type ConfigError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid graph configuration: %s", strings.Join(e.Problems, "; "))
}

// RoutingError reports that a routing decision produced a label that is not
// among the declared edges of the current node. The turn fails and no
// checkpoint is advanced.
type RoutingError struct {
	Node   string
	Label  string
	Labels []string
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing from node %s: label %q is not among declared edges %v",
		e.Node, e.Label, e.Labels)
}

// StepLimitError reports that a single execution exceeded the per-turn step
// budget. The prior checkpoint remains authoritative.
type StepLimitError struct {
	MaxSteps int
}

// Error implements the error interface.
func (e *StepLimitError) Error() string {
	return fmt.Sprintf("maximum execution steps (%d) exceeded", e.MaxSteps)
}
