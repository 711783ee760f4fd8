//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-cruise-agent-go/model"
)

// LLMClassifier implements Classifier on top of a language model using
// JSON-mode completions.
type LLMClassifier struct {
	model       model.Model
	temperature float64
}

var _ Classifier = (*LLMClassifier)(nil)

// LLMOption configures an LLMClassifier.
type LLMOption func(*LLMClassifier)

// WithTemperature overrides the sampling temperature. Classification
// defaults to 0 for deterministic answers.
func WithTemperature(t float64) LLMOption {
	return func(c *LLMClassifier) { c.temperature = t }
}

// NewLLM creates a model-backed classifier.
func NewLLM(m model.Model, opts ...LLMOption) *LLMClassifier {
	c := &LLMClassifier{model: m}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const classifyPromptFormat = `%s

Answer with a JSON object of the form {"label": "<label>"} where <label> is exactly one of: %s.
Do not output anything else.`

// Classify returns exactly one label from req.Labels.
func (c *LLMClassifier) Classify(ctx context.Context, req *Request) (string, error) {
	if len(req.Labels) == 0 {
		return "", fmt.Errorf("classify: empty label set")
	}
	system := fmt.Sprintf(classifyPromptFormat, req.Instruction, strings.Join(req.Labels, ", "))
	rsp, err := c.generate(ctx, system, req.Input)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	var answer struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal([]byte(rsp), &answer); err != nil {
		return "", fmt.Errorf("classify: decode answer %q: %w", rsp, err)
	}
	label := strings.TrimSpace(answer.Label)
	for _, l := range req.Labels {
		if strings.EqualFold(label, l) {
			return l, nil
		}
	}
	return "", &LabelError{Label: label, Labels: req.Labels}
}

// Extract fills out with fields extracted from input.
func (c *LLMClassifier) Extract(ctx context.Context, instruction, input string, out any) error {
	system := instruction + "\n\nAnswer with a single JSON object. Do not output anything else."
	rsp, err := c.generate(ctx, system, input)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if err := json.Unmarshal([]byte(rsp), out); err != nil {
		return fmt.Errorf("extract: decode answer %q: %w", rsp, err)
	}
	return nil
}

func (c *LLMClassifier) generate(ctx context.Context, system, input string) (string, error) {
	temperature := c.temperature
	rsp, err := c.model.GenerateContent(ctx, &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage(system),
			model.NewUserMessage(input),
		},
		GenerationConfig: model.GenerationConfig{
			Temperature: &temperature,
			JSONOutput:  true,
		},
	})
	if err != nil {
		return "", err
	}
	return rsp.Message.Content, nil
}
