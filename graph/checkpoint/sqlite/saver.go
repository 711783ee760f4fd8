//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package sqlite provides a SQLite-backed checkpoint saver. The caller owns
// the *sql.DB; the saver only manages its own table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS checkpoints (
	thread_id  TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	id         TEXT NOT NULL,
	step       INTEGER NOT NULL,
	state      BLOB NOT NULL,
	cursor     TEXT NOT NULL DEFAULT '',
	interrupt  BLOB,
	created_at TIMESTAMP NOT NULL
);
`

// Saver persists checkpoints in a SQLite table, one row per thread.
type Saver struct {
	db *sql.DB
}

var _ graph.CheckpointSaver = (*Saver)(nil)

// NewSaver creates a saver over the given database, creating the
// checkpoints table if needed. The saver does not close db.
func NewSaver(db *sql.DB) (*Saver, error) {
	if db == nil {
		return nil, errors.New("sqlite saver: db cannot be nil")
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("sqlite saver: create table: %w", err)
	}
	return &Saver{db: db}, nil
}

// Get returns the checkpoint for a thread, or (nil, nil) if none exists.
func (s *Saver) Get(ctx context.Context, threadID string) (*graph.Checkpoint, error) {
	if threadID == "" {
		return nil, graph.ErrThreadIDRequired
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT version, id, step, state, cursor, interrupt, created_at
		 FROM checkpoints WHERE thread_id = ?`, threadID)
	ckpt := &graph.Checkpoint{ThreadID: threadID}
	var state []byte
	var interrupt []byte
	var createdAt time.Time
	err := row.Scan(&ckpt.Version, &ckpt.ID, &ckpt.Step, &state, &ckpt.Cursor,
		&interrupt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite saver: get %s: %w", threadID, err)
	}
	ckpt.StateJSON = state
	ckpt.CreatedAt = createdAt
	if len(interrupt) > 0 {
		var record graph.InterruptRecord
		if err := json.Unmarshal(interrupt, &record); err != nil {
			return nil, fmt.Errorf("sqlite saver: decode interrupt for %s: %w", threadID, err)
		}
		ckpt.Interrupt = &record
	}
	return ckpt, nil
}

// Put stores the checkpoint, replacing any previous row for the thread.
func (s *Saver) Put(ctx context.Context, checkpoint *graph.Checkpoint) error {
	if checkpoint == nil || checkpoint.ThreadID == "" {
		return graph.ErrThreadIDRequired
	}
	var interrupt []byte
	if checkpoint.Interrupt != nil {
		data, err := json.Marshal(checkpoint.Interrupt)
		if err != nil {
			return fmt.Errorf("sqlite saver: encode interrupt: %w", err)
		}
		interrupt = data
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO checkpoints
		 (thread_id, version, id, step, state, cursor, interrupt, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		checkpoint.ThreadID, checkpoint.Version, checkpoint.ID, checkpoint.Step,
		[]byte(checkpoint.StateJSON), checkpoint.Cursor, interrupt, checkpoint.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite saver: put %s: %w", checkpoint.ThreadID, err)
	}
	return nil
}

// Delete removes the checkpoint row for a thread.
func (s *Saver) Delete(ctx context.Context, threadID string) error {
	if threadID == "" {
		return graph.ErrThreadIDRequired
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("sqlite saver: delete %s: %w", threadID, err)
	}
	return nil
}

// Close releases the saver. The underlying database stays open; it belongs
// to the caller.
func (s *Saver) Close() error {
	return nil
}
