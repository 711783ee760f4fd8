//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

package graph

// Interrupt is a node result that suspends execution and surfaces a prompt
// to the outside world. The executor persists the suspension point; the next
// turn re-executes the interrupted node from the top with the human's answer
// injected as the resume value.
type Interrupt struct {
	// Key identifies the await site within the node. A node with several
	// awaits uses distinct keys so replayed answers land on the right site.
	Key string
	// Prompt is the question surfaced to the human.
	Prompt string
	// ToolCallID optionally links the suspension to a dangling assistant
	// tool call so the conversation history stays well-formed on resume.
	ToolCallID string
	// Update is a state update applied before suspending. It is reflected
	// in the checkpoint so work done before the await is not repeated.
	Update State
}

// AwaitHuman requests external input from within a node. If an answer for
// key has already been recorded (either memoized from an earlier await in
// this node execution, or injected for the pending suspension), it is
// returned immediately. Otherwise AwaitHuman returns a non-nil *Interrupt
// which the node must return to the executor.
//
// The resume value is consumed exactly once: the first unanswered await of
// the re-executed node claims it and memoizes it under its key.
func AwaitHuman(state State, key, prompt string) (string, *Interrupt) {
	used := usedInterrupts(state)
	if answer, ok := used[key]; ok {
		if s, ok := answer.(string); ok {
			return s, nil
		}
	}
	if resume, ok := state[StateKeyResume]; ok {
		if s, ok := resume.(string); ok {
			used[key] = s
			delete(state, StateKeyResume)
			return s, nil
		}
	}
	return "", &Interrupt{Key: key, Prompt: prompt}
}

// Replayed reports whether key already has a memoized answer, i.e. the next
// AwaitHuman for it will replay an answer recorded by an earlier execution
// instead of consuming a fresh resume value.
func Replayed(state State, key string) bool {
	used, ok := state[StateKeyUsedInterrupts].(map[string]any)
	if !ok {
		return false
	}
	_, ok = used[key]
	return ok
}

// ClearUsed forgets the memoized answer for key, forcing the next AwaitHuman
// with that key to suspend again. Used when an answer turns out to be
// unusable and the same question must be re-asked.
func ClearUsed(state State, key string) {
	delete(usedInterrupts(state), key)
}

// usedInterrupts returns the memoization map, creating it in place if absent.
func usedInterrupts(state State) map[string]any {
	if used, ok := state[StateKeyUsedInterrupts].(map[string]any); ok {
		return used
	}
	used := make(map[string]any)
	state[StateKeyUsedInterrupts] = used
	return used
}
