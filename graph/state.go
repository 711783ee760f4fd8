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
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"trpc.group/trpc-go/trpc-cruise-agent-go/model"
)

// internalKeyPrefix marks ephemeral state keys that belong to the execution
// machinery. They are never serialized into checkpoints.
const internalKeyPrefix = "__"

// State keys used by the execution machinery.
const (
	// StateKeyMessages holds the conversation history as []model.Message.
	StateKeyMessages = "messages"
	// StateKeyResume holds the human-supplied value for a pending suspension.
	StateKeyResume = "__resume__"
	// StateKeyUsedInterrupts memoizes answered awaits within a node so that
	// re-entering the node after a resume replays earlier answers.
	StateKeyUsedInterrupts = "__used_interrupts__"
)

// State represents the state that flows through the graph.
// This is the shared data structure that flows between nodes.
type State map[string]any

// Clone creates a shallow copy of the state.
func (s State) Clone() State {
	clone := make(State, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// StateReducer is a function that determines how state updates are merged.
// It takes existing and new values and returns the merged result.
type StateReducer func(existing, update any) any

// StateField defines a field in the state schema with its type and reducer.
type StateField struct {
	Type     reflect.Type
	Reducer  StateReducer
	Default  func() any
	Required bool
}

// StateSchema defines the structure and behavior of graph state.
type StateSchema struct {
	mu     sync.RWMutex
	Fields map[string]StateField
}

// NewStateSchema creates a new state schema.
func NewStateSchema() *StateSchema {
	return &StateSchema{
		Fields: make(map[string]StateField),
	}
}

// AddField adds a field to the state schema.
func (s *StateSchema) AddField(name string, field StateField) *StateSchema {
	s.mu.Lock()
	defer s.mu.Unlock()
	if field.Reducer == nil {
		field.Reducer = DefaultReducer
	}
	s.Fields[name] = field
	return s
}

// NewState creates a state populated with the schema's default values.
func (s *StateSchema) NewState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := make(State, len(s.Fields))
	for name, field := range s.Fields {
		if field.Default != nil {
			state[name] = field.Default()
		}
	}
	return state
}

// ApplyUpdate applies a state update using the defined reducers.
func (s *StateSchema) ApplyUpdate(currentState State, update State) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := currentState.Clone()
	for key, updateValue := range update {
		field, exists := s.Fields[key]
		if !exists {
			// If no field definition, use default behavior (override).
			result[key] = updateValue
			continue
		}
		currentValue, hasCurrentValue := result[key]
		if !hasCurrentValue && field.Default != nil {
			currentValue = field.Default()
		}
		result[key] = field.Reducer(currentValue, updateValue)
	}
	return result
}

// Validate validates a state against the schema.
func (s *StateSchema) Validate(state State) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, field := range s.Fields {
		value, exists := state[name]
		if field.Required && !exists {
			return fmt.Errorf("required field %s is missing", name)
		}
		if exists && value != nil && field.Type != nil {
			valueType := reflect.TypeOf(value)
			if !valueType.AssignableTo(field.Type) {
				return fmt.Errorf("field %s has wrong type: expected %v, got %v",
					name, field.Type, valueType)
			}
		}
	}
	return nil
}

// MarshalState serializes a state to JSON for checkpointing.
// Internal (double-underscore) keys are skipped.
func (s *StateSchema) MarshalState(state State) ([]byte, error) {
	out := make(map[string]any, len(state))
	for k, v := range state {
		if strings.HasPrefix(k, internalKeyPrefix) {
			continue
		}
		out[k] = v
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

// UnmarshalState rebuilds a typed state from checkpointed JSON. Fields that
// are declared in the schema are decoded into their declared Go types;
// undeclared fields are decoded generically.
func (s *StateSchema) UnmarshalState(data []byte) (State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := make(State, len(raw))
	for key, value := range raw {
		field, declared := s.Fields[key]
		if !declared || field.Type == nil {
			var generic any
			if err := json.Unmarshal(value, &generic); err != nil {
				return nil, fmt.Errorf("unmarshal state field %s: %w", key, err)
			}
			state[key] = generic
			continue
		}
		typed := reflect.New(field.Type)
		if err := json.Unmarshal(value, typed.Interface()); err != nil {
			return nil, fmt.Errorf("unmarshal state field %s: %w", key, err)
		}
		state[key] = typed.Elem().Interface()
	}
	return state, nil
}

// Common reducer functions.

// DefaultReducer overwrites the existing value with the update.
func DefaultReducer(existing, update any) any {
	return update
}

// ReplaceReducer replaces the existing value wholesale. It is the same
// operation as DefaultReducer; the distinct name documents fields whose
// producers deliberately replace (and clear) list values each run.
func ReplaceReducer(existing, update any) any {
	return update
}

// MergeReducer merges update map into existing map.
func MergeReducer(existing, update any) any {
	if existing == nil {
		existing = make(map[string]any)
	}
	existingMap, ok1 := existing.(map[string]any)
	updateMap, ok2 := update.(map[string]any)
	if !ok1 || !ok2 {
		// Fallback to default behavior if not maps
		return update
	}
	result := make(map[string]any, len(existingMap)+len(updateMap))
	for k, v := range existingMap {
		result[k] = v
	}
	for k, v := range updateMap {
		result[k] = v
	}
	return result
}

// MessageReducer appends new messages to the existing history. Message
// history is append-only; it never shrinks and existing entries are never
// rewritten.
func MessageReducer(existing, update any) any {
	if existing == nil {
		existing = []model.Message{}
	}
	existingMsgs, ok1 := existing.([]model.Message)
	updateMsgs, ok2 := update.([]model.Message)
	if !ok1 || !ok2 {
		return update
	}
	merged := make([]model.Message, 0, len(existingMsgs)+len(updateMsgs))
	merged = append(merged, existingMsgs...)
	merged = append(merged, updateMsgs...)
	return merged
}
