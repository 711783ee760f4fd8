//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
)

func TestSaverRoundTrip(t *testing.T) {
	saver := NewSaver()
	defer saver.Close()
	ctx := context.Background()

	got, err := saver.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Nil(t, got, "missing thread returns nil without error")

	ckpt := graph.NewCheckpoint("t-1", 1, json.RawMessage(`{"a":1}`))
	require.NoError(t, saver.Put(ctx, ckpt))

	got, err = saver.Get(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ckpt.ID, got.ID)
	assert.Equal(t, 1, got.Step)
	assert.JSONEq(t, `{"a":1}`, string(got.StateJSON))
}

func TestSaverLatestWins(t *testing.T) {
	saver := NewSaver()
	defer saver.Close()
	ctx := context.Background()

	first := graph.NewCheckpoint("t-1", 1, json.RawMessage(`{"v":1}`))
	second := graph.NewCheckpoint("t-1", 2, json.RawMessage(`{"v":2}`))
	require.NoError(t, saver.Put(ctx, first))
	require.NoError(t, saver.Put(ctx, second))

	got, err := saver.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, 2, got.Step)
}

func TestSaverPreservesInterruptRecord(t *testing.T) {
	saver := NewSaver()
	defer saver.Close()
	ctx := context.Background()

	ckpt := graph.NewCheckpoint("t-1", 3, json.RawMessage(`{}`))
	ckpt.Cursor = "payment"
	ckpt.Interrupt = &graph.InterruptRecord{
		NodeID: "payment",
		Key:    "confirm",
		Prompt: "Proceed with payment?",
		Used:   map[string]any{"earlier": "yes"},
	}
	require.NoError(t, saver.Put(ctx, ckpt))

	got, err := saver.Get(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, got.Interrupt)
	assert.Equal(t, "payment", got.Cursor)
	assert.Equal(t, "confirm", got.Interrupt.Key)
	assert.Equal(t, "yes", got.Interrupt.Used["earlier"])

	// Mutating the returned copy must not affect the stored snapshot.
	got.Interrupt.Used["earlier"] = "no"
	again, err := saver.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "yes", again.Interrupt.Used["earlier"])
}

func TestSaverDelete(t *testing.T) {
	saver := NewSaver()
	defer saver.Close()
	ctx := context.Background()

	require.NoError(t, saver.Put(ctx, graph.NewCheckpoint("t-1", 1, json.RawMessage(`{}`))))
	require.NoError(t, saver.Delete(ctx, "t-1"))

	got, err := saver.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting a missing thread is not an error.
	require.NoError(t, saver.Delete(ctx, "t-1"))
}

func TestSaverRejectsEmptyThreadID(t *testing.T) {
	saver := NewSaver()
	defer saver.Close()
	ctx := context.Background()

	_, err := saver.Get(ctx, "")
	assert.ErrorIs(t, err, graph.ErrThreadIDRequired)
	assert.ErrorIs(t, saver.Put(ctx, &graph.Checkpoint{}), graph.ErrThreadIDRequired)
	assert.ErrorIs(t, saver.Delete(ctx, ""), graph.ErrThreadIDRequired)
}
