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
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CheckpointVersion is the serialization version written into checkpoints.
const CheckpointVersion = 1

// InterruptRecord persists a pending suspension across turns.
type InterruptRecord struct {
	// NodeID is the node to re-execute on resume.
	NodeID string `json:"node_id"`
	// Key is the await site waiting for an answer.
	Key string `json:"key"`
	// Prompt is the question that was surfaced.
	Prompt string `json:"prompt"`
	// ToolCallID optionally links the suspension to an assistant tool call.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// Used holds answers already claimed by earlier awaits in the node, so
	// re-execution replays them instead of re-asking.
	Used map[string]any `json:"used,omitempty"`
}

// Checkpoint is a durable snapshot of a thread's conversation state.
// Exactly one checkpoint exists per thread; each committed turn overwrites
// the previous one.
type Checkpoint struct {
	Version  int    `json:"version"`
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	Step     int    `json:"step"`
	// StateJSON is the schema-marshaled state snapshot.
	StateJSON json.RawMessage `json:"state"`
	// Cursor is empty when the thread is idle; when set it names the node
	// to re-execute for the pending suspension.
	Cursor    string           `json:"cursor,omitempty"`
	Interrupt *InterruptRecord `json:"interrupt,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewCheckpoint creates a checkpoint for the given thread.
func NewCheckpoint(threadID string, step int, stateJSON json.RawMessage) *Checkpoint {
	return &Checkpoint{
		Version:   CheckpointVersion,
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Step:      step,
		StateJSON: stateJSON,
		CreatedAt: time.Now().UTC(),
	}
}

// CheckpointSaver persists per-thread checkpoints. Implementations must be
// safe for concurrent use.
type CheckpointSaver interface {
	// Get returns the checkpoint for a thread, or (nil, nil) if none exists.
	Get(ctx context.Context, threadID string) (*Checkpoint, error)
	// Put stores the checkpoint for its thread, replacing any previous one.
	Put(ctx context.Context, checkpoint *Checkpoint) error
	// Delete removes the checkpoint for a thread. Deleting a missing thread
	// is not an error.
	Delete(ctx context.Context, threadID string) error
	// Close releases resources held by the saver.
	Close() error
}
