//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package runner drives one conversation turn through the agent graph and
// persists a checkpoint per thread, so a suspended conversation can be
// resumed by a later request on the same session.
package runner

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-cruise-agent-go/cruise"
	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
	"trpc.group/trpc-go/trpc-cruise-agent-go/log"
	"trpc.group/trpc-go/trpc-cruise-agent-go/model"
	"trpc.group/trpc-go/trpc-cruise-agent-go/store"
)

// ErrConcurrentTurn is returned when a turn arrives for a thread that is
// still executing a previous turn.
var ErrConcurrentTurn = errors.New("a turn is already running for this session")

// TurnRequest is one user message addressed to a session.
type TurnRequest struct {
	Message string `json:"message"`
	// SessionID identifies the conversation thread. Empty starts a new one.
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	// CurrentCruiseID pins the cruise the client UI currently shows.
	CurrentCruiseID string `json:"currentCruiseId,omitempty"`
	// Description pins the cabin the client UI currently shows.
	Description string `json:"description,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Country     string `json:"country,omitempty"`
	Locale      string `json:"locale,omitempty"`
}

// TurnResponse is the agent's answer plus the display state the client
// renders alongside it.
type TurnResponse struct {
	Message         string         `json:"message"`
	Cruises         []store.Cruise `json:"cruises"`
	Cabins          []store.Cabin  `json:"cabins"`
	SessionID       string         `json:"sessionId"`
	Currency        string         `json:"currency"`
	Country         string         `json:"country,omitempty"`
	CurrentCruiseID string         `json:"currentCruiseId"`
	Description     string         `json:"description"`
	Action          string         `json:"action"`
	// Suspended reports that the turn ended on a question for the user and
	// the next message on this session will answer it.
	Suspended bool `json:"suspended,omitempty"`
}

// Option configures a Runner.
type Option func(*options)

type options struct {
	maxSteps int
}

// WithMaxSteps caps node executions per turn.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		o.maxSteps = n
	}
}

// Runner executes turns against a compiled agent graph, one at a time per
// thread, committing a checkpoint after each successful turn.
type Runner struct {
	executor *graph.Executor
	schema   *graph.StateSchema
	saver    graph.CheckpointSaver

	mu    sync.Mutex
	turns map[string]*threadLock
}

// threadLock serializes turns on one thread. Reference counting lets the
// runner drop the map entry as soon as no turn holds or waits on it, so the
// lock map does not grow with the number of sessions ever seen.
type threadLock struct {
	mu   sync.Mutex
	refs int
}

// New compiles the agent's graph and wires it to the checkpoint saver.
func New(agent *cruise.Agent, saver graph.CheckpointSaver, opts ...Option) (*Runner, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	g, err := agent.BuildGraph()
	if err != nil {
		return nil, err
	}
	var execOpts []graph.ExecutorOption
	if o.maxSteps > 0 {
		execOpts = append(execOpts, graph.WithMaxSteps(o.maxSteps))
	}
	executor, err := graph.NewExecutor(g, execOpts...)
	if err != nil {
		return nil, err
	}
	return &Runner{
		executor: executor,
		schema:   g.Schema(),
		saver:    saver,
		turns:    map[string]*threadLock{},
	}, nil
}

// RunTurn executes one turn. A thread with a pending suspension treats the
// message as the answer to the pending question and re-enters the graph at
// the suspended node; otherwise the message starts a fresh pass from the
// entry point. The checkpoint is committed only after the turn succeeds, so
// a failed turn leaves the previous checkpoint as the recovery point.
func (r *Runner) RunTurn(ctx context.Context, req *TurnRequest) (*TurnResponse, error) {
	threadID := req.SessionID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	lock, ok := r.acquireThread(threadID)
	if !ok {
		return nil, ErrConcurrentTurn
	}
	defer func() {
		lock.mu.Unlock()
		r.releaseThread(threadID, lock)
	}()

	checkpoint, err := r.saver.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}

	var (
		state graph.State
		start string
		step  int
	)
	switch {
	case checkpoint != nil && checkpoint.Cursor != "":
		// Pending suspension: the message answers the stored question.
		state, err = r.schema.UnmarshalState(checkpoint.StateJSON)
		if err != nil {
			return nil, err
		}
		state[graph.StateKeyResume] = req.Message
		if checkpoint.Interrupt != nil && len(checkpoint.Interrupt.Used) > 0 {
			state[graph.StateKeyUsedInterrupts] = copyUsed(checkpoint.Interrupt.Used)
		}
		start = checkpoint.Cursor
		step = checkpoint.Step
	case checkpoint != nil:
		state, err = r.schema.UnmarshalState(checkpoint.StateJSON)
		if err != nil {
			return nil, err
		}
		r.seedTurn(state, req)
		step = checkpoint.Step
	default:
		state = r.schema.NewState()
		r.seedTurn(state, req)
	}

	result, err := r.executor.Execute(ctx, state, start)
	if err != nil {
		log.Errorf("turn failed for session %s: %v", threadID, err)
		return nil, err
	}

	stateJSON, err := r.schema.MarshalState(result.State)
	if err != nil {
		return nil, err
	}
	next := graph.NewCheckpoint(threadID, step+1, stateJSON)
	if result.Interrupt != nil {
		next.Cursor = result.Interrupt.NodeID
		next.Interrupt = &graph.InterruptRecord{
			NodeID:     result.Interrupt.NodeID,
			Key:        result.Interrupt.Key,
			Prompt:     result.Interrupt.Prompt,
			ToolCallID: result.Interrupt.ToolCallID,
		}
		if used, ok := result.State[graph.StateKeyUsedInterrupts].(map[string]any); ok {
			next.Interrupt.Used = copyUsed(used)
		}
	}
	if err := r.saver.Put(ctx, next); err != nil {
		return nil, err
	}

	return r.response(threadID, req, result), nil
}

// Reset discards the checkpoint of a thread.
func (r *Runner) Reset(ctx context.Context, threadID string) error {
	return r.saver.Delete(ctx, threadID)
}

// seedTurn merges the request into the state for a fresh (non-resume) pass.
func (r *Runner) seedTurn(state graph.State, req *TurnRequest) {
	update := graph.State{
		cruise.KeyMessages: []model.Message{model.NewUserMessage(req.Message)},
		cruise.KeyAction:   "",
	}
	if req.UserID != "" {
		update[cruise.KeyUserID] = req.UserID
	}
	if req.CurrentCruiseID != "" {
		update[cruise.KeyCurrentCruiseID] = req.CurrentCruiseID
	}
	if req.Description != "" {
		update[cruise.KeyCurrentCabin] = req.Description
	}
	if req.Currency != "" {
		update[cruise.KeyCurrency] = req.Currency
	}
	if req.Locale != "" {
		update[cruise.KeyLocale] = req.Locale
	}
	merged := r.schema.ApplyUpdate(state, update)
	for k, v := range merged {
		state[k] = v
	}
}

// response shapes the final state into what the client renders.
func (r *Runner) response(threadID string, req *TurnRequest, result *graph.ExecutionResult) *TurnResponse {
	resp := &TurnResponse{
		SessionID:       threadID,
		Country:         req.Country,
		Currency:        stateStr(result.State, cruise.KeyCurrency),
		CurrentCruiseID: stateStr(result.State, cruise.KeyCurrentCruiseID),
		Description:     stateStr(result.State, cruise.KeyCurrentCabin),
		Action:          stateStr(result.State, cruise.KeyAction),
	}
	resp.Cruises, _ = result.State[cruise.KeyListCruises].([]store.Cruise)
	resp.Cabins, _ = result.State[cruise.KeyListCabins].([]store.Cabin)
	if resp.Cruises == nil {
		resp.Cruises = []store.Cruise{}
	}
	if resp.Cabins == nil {
		resp.Cabins = []store.Cabin{}
	}
	if result.Interrupt != nil {
		resp.Message = result.Interrupt.Prompt
		resp.Suspended = true
		return resp
	}
	resp.Message = lastAssistantText(result.State)
	return resp
}

func stateStr(state graph.State, key string) string {
	s, _ := state[key].(string)
	return s
}

// lastAssistantText returns the content of the latest assistant message that
// carries text rather than tool calls.
func lastAssistantText(state graph.State) string {
	msgs, _ := state[cruise.KeyMessages].([]model.Message)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant && msgs[i].Content != "" {
			return msgs[i].Content
		}
	}
	return ""
}

func copyUsed(used map[string]any) map[string]any {
	out := make(map[string]any, len(used))
	for k, v := range used {
		out[k] = v
	}
	return out
}

// acquireThread takes the turn lock for a thread, reporting false when a
// turn is already running on it.
func (r *Runner) acquireThread(threadID string) (*threadLock, bool) {
	r.mu.Lock()
	lock, ok := r.turns[threadID]
	if !ok {
		lock = &threadLock{}
		r.turns[threadID] = lock
	}
	lock.refs++
	r.mu.Unlock()

	if !lock.mu.TryLock() {
		r.releaseThread(threadID, lock)
		return nil, false
	}
	return lock, true
}

// releaseThread drops a reference and evicts the map entry once unused.
func (r *Runner) releaseThread(threadID string, lock *threadLock) {
	r.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(r.turns, threadID)
	}
	r.mu.Unlock()
}
