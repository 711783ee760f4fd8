//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package classify provides label classification and structured extraction
// over a language model. Graph nodes depend on the Classifier interface, not
// on a concrete model, so tests can substitute deterministic fakes.
package classify

import (
	"context"
	"fmt"
	"strings"
)

// Request is a single-label classification request.
type Request struct {
	// Instruction describes the classification task.
	Instruction string
	// Input is the text to classify.
	Input string
	// Labels is the closed set of permitted answers.
	Labels []string
}

// Classifier classifies text into a label set and extracts structured data.
type Classifier interface {
	// Classify returns exactly one label from req.Labels. If the
	// underlying model answers outside the set, a *LabelError is returned.
	Classify(ctx context.Context, req *Request) (string, error)
	// Extract fills out (a pointer to a JSON-taggable struct) with fields
	// extracted from input according to instruction.
	Extract(ctx context.Context, instruction, input string, out any) error
}

// LabelError reports a model answer outside the permitted label set.
type LabelError struct {
	Label  string
	Labels []string
}

// Error implements the error interface.
func (e *LabelError) Error() string {
	return fmt.Sprintf("label %q not in permitted set %v", e.Label, e.Labels)
}

// Yes/no answers returned by ResolveYesNo.
const (
	Yes = "yes"
	No  = "no"
)

var (
	yesWords = []string{"yes", "y", "yeah", "yep", "sure", "ok", "okay", "confirm", "confirmed", "proceed", "是", "好", "确认", "可以"}
	noWords  = []string{"no", "n", "nope", "cancel", "cancelled", "stop", "abort", "否", "不", "取消", "不要"}
)

// ResolveYesNo interprets free-form text as a yes/no answer. Unambiguous
// phrasings resolve lexically without a model call; everything else is
// classified. Any failure or ambiguity resolves to No so that irreversible
// actions never proceed on an unclear answer.
func ResolveYesNo(ctx context.Context, c Classifier, text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.Trim(normalized, ".!。！")
	for _, w := range yesWords {
		if normalized == w {
			return Yes
		}
	}
	for _, w := range noWords {
		if normalized == w {
			return No
		}
	}
	if c == nil {
		return No
	}
	label, err := c.Classify(ctx, &Request{
		Instruction: "Decide whether the user's reply expresses agreement (yes) or refusal (no).",
		Input:       text,
		Labels:      []string{Yes, No},
	})
	if err != nil || label != Yes {
		return No
	}
	return Yes
}
