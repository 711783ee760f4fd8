//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

package function

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addInput struct {
	A int `json:"a"`
	B int `json:"b"`
}

type addOutput struct {
	Sum int `json:"sum"`
}

func TestFunctionTool_Call(t *testing.T) {
	ft := NewFunctionTool(
		func(_ context.Context, in addInput) (addOutput, error) {
			return addOutput{Sum: in.A + in.B}, nil
		},
		WithName("add"),
		WithDescription("Adds two integers."),
	)

	result, err := ft.Call(context.Background(), []byte(`{"a": 2, "b": 3}`))
	require.NoError(t, err)
	assert.Equal(t, addOutput{Sum: 5}, result)
}

func TestFunctionTool_CallEmptyArgs(t *testing.T) {
	ft := NewFunctionTool(
		func(_ context.Context, in addInput) (addOutput, error) {
			return addOutput{Sum: in.A + in.B}, nil
		},
		WithName("add"),
	)
	result, err := ft.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, addOutput{Sum: 0}, result)
}

func TestFunctionTool_CallInvalidJSON(t *testing.T) {
	ft := NewFunctionTool(
		func(_ context.Context, in addInput) (addOutput, error) {
			return addOutput{}, nil
		},
		WithName("add"),
	)
	_, err := ft.Call(context.Background(), []byte(`{`))
	require.Error(t, err)
}

func TestFunctionTool_Declaration(t *testing.T) {
	type input struct {
		Name  string   `json:"name"`
		Tags  []string `json:"tags,omitempty"`
		Limit *int     `json:"limit,omitempty"`
	}
	ft := NewFunctionTool(
		func(_ context.Context, in input) (string, error) { return in.Name, nil },
		WithName("lookup"),
		WithDescription("Does a lookup."),
	)

	decl := ft.Declaration()
	require.NotNil(t, decl)
	assert.Equal(t, "lookup", decl.Name)
	assert.Equal(t, "Does a lookup.", decl.Description)
	require.NotNil(t, decl.InputSchema)
	assert.Equal(t, "object", decl.InputSchema.Type)
	assert.Contains(t, decl.InputSchema.Properties, "name")
	assert.Contains(t, decl.InputSchema.Properties, "tags")
	assert.Equal(t, "array", decl.InputSchema.Properties["tags"].Type)
	assert.Equal(t, []string{"name"}, decl.InputSchema.Required)
}
