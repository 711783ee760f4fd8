//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory checkpoint saver for development
// and testing.
package inmemory

import (
	"context"
	"sync"

	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
)

// Saver stores checkpoints in process memory.
type Saver struct {
	mu          sync.RWMutex
	checkpoints map[string]*graph.Checkpoint
}

var _ graph.CheckpointSaver = (*Saver)(nil)

// NewSaver creates an empty in-memory saver.
func NewSaver() *Saver {
	return &Saver{checkpoints: make(map[string]*graph.Checkpoint)}
}

// Get returns the checkpoint for a thread, or (nil, nil) if none exists.
func (s *Saver) Get(ctx context.Context, threadID string) (*graph.Checkpoint, error) {
	if threadID == "" {
		return nil, graph.ErrThreadIDRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ckpt, ok := s.checkpoints[threadID]
	if !ok {
		return nil, nil
	}
	return copyCheckpoint(ckpt), nil
}

// Put stores the checkpoint, replacing any previous one for the thread.
func (s *Saver) Put(ctx context.Context, checkpoint *graph.Checkpoint) error {
	if checkpoint == nil || checkpoint.ThreadID == "" {
		return graph.ErrThreadIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[checkpoint.ThreadID] = copyCheckpoint(checkpoint)
	return nil
}

// Delete removes the checkpoint for a thread.
func (s *Saver) Delete(ctx context.Context, threadID string) error {
	if threadID == "" {
		return graph.ErrThreadIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, threadID)
	return nil
}

// Close releases the saver's resources.
func (s *Saver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints = make(map[string]*graph.Checkpoint)
	return nil
}

// copyCheckpoint deep-copies a checkpoint so callers cannot mutate stored
// snapshots.
func copyCheckpoint(ckpt *graph.Checkpoint) *graph.Checkpoint {
	cp := *ckpt
	if ckpt.StateJSON != nil {
		cp.StateJSON = append([]byte(nil), ckpt.StateJSON...)
	}
	if ckpt.Interrupt != nil {
		ir := *ckpt.Interrupt
		if ckpt.Interrupt.Used != nil {
			ir.Used = make(map[string]any, len(ckpt.Interrupt.Used))
			for k, v := range ckpt.Interrupt.Used {
				ir.Used[k] = v
			}
		}
		cp.Interrupt = &ir
	}
	return &cp
}
