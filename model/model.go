//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package model provides interfaces for working with LLMs.
package model

import "context"

// Model is the interface for all language models.
//
// Every invocation in this repository is synchronous from the caller's
// perspective: a node hands over a request and blocks until the full
// response (or an error) is available.
type Model interface {
	// GenerateContent generates content from the given request.
	GenerateContent(ctx context.Context, request *Request) (*Response, error)

	// Info returns basic information about the model.
	Info() Info
}

// Info contains basic information about a Model.
type Info struct {
	Name string
}
