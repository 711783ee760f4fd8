//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

package model

import "trpc.group/trpc-go/trpc-cruise-agent-go/tool"

// Role represents the author of a message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// Message represents a single message in a conversation.
type Message struct {
	Role      Role       `json:"role"`                 // The role of the message author
	Content   string     `json:"content"`              // The message content
	Name      string     `json:"name,omitempty"`       // Optional producer name (node id)
	ToolID    string     `json:"tool_id,omitempty"`    // Used by tool response
	ToolName  string     `json:"tool_name,omitempty"`  // Used by tool response
	ToolCalls []ToolCall `json:"tool_calls,omitempty"` // Optional tool calls for the message
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolMessage creates a tool response message.
func NewToolMessage(toolID, toolName, content string) Message {
	return Message{Role: RoleTool, ToolID: toolID, ToolName: toolName, Content: content}
}

// ToolCall represents a tool invocation requested by the assistant.
type ToolCall struct {
	// Type of the tool. Currently, only `function` is supported.
	Type string `json:"type"`
	// Function definition for the tool
	Function FunctionCall `json:"function,omitempty"`
	// The ID of the tool call returned by the model.
	ID string `json:"id,omitempty"`
}

// FunctionCall carries the function name and serialized arguments of a tool call.
type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments []byte `json:"arguments,omitempty"`
}

// GenerationConfig contains per-request generation configuration.
type GenerationConfig struct {
	// Temperature controls the randomness of the output.
	Temperature *float64 `json:"temperature,omitempty"`
	// MaxTokens limits the number of generated tokens.
	MaxTokens *int `json:"max_tokens,omitempty"`
	// JSONOutput asks the model to answer with a single JSON object.
	JSONOutput bool `json:"json_output,omitempty"`
}

// Request is a request to a Model.
type Request struct {
	Messages         []Message            `json:"messages"`
	Tools            map[string]tool.Tool `json:"-"`
	GenerationConfig `json:"generation_config,omitempty"`
}

// Response is the complete answer of a Model.
type Response struct {
	Message Message `json:"message"`
	// Usage is optional provider-reported token accounting.
	Usage *Usage `json:"usage,omitempty"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
