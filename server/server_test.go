//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
	"trpc.group/trpc-go/trpc-cruise-agent-go/runner"
)

type stubRunner struct {
	resp      *runner.TurnResponse
	err       error
	lastReq   *runner.TurnRequest
	resetWith string
}

func (s *stubRunner) RunTurn(ctx context.Context, req *runner.TurnRequest) (*runner.TurnResponse, error) {
	s.lastReq = req
	return s.resp, s.err
}

func (s *stubRunner) Reset(ctx context.Context, threadID string) error {
	s.resetWith = threadID
	return nil
}

func doChat(t *testing.T, stub *stubRunner, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := New(stub)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatOK(t *testing.T) {
	stub := &stubRunner{resp: &runner.TurnResponse{
		Message:   "I found 2 cruises.",
		SessionID: "s-1",
		Action:    "",
	}}
	rec := doChat(t, stub, `{"message": "cruises to Alaska", "sessionId": "s-1", "userId": "u-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp runner.TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "I found 2 cruises.", resp.Message)
	assert.Equal(t, "s-1", resp.SessionID)

	require.NotNil(t, stub.lastReq)
	assert.Equal(t, "cruises to Alaska", stub.lastReq.Message)
	assert.Equal(t, "u-1", stub.lastReq.UserID)
}

func TestChatRequiresMessage(t *testing.T) {
	rec := doChat(t, &stubRunner{}, `{"sessionId": "s-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsMalformedBody(t *testing.T) {
	rec := doChat(t, &stubRunner{}, `{"message": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatConcurrentTurnConflict(t *testing.T) {
	stub := &stubRunner{err: runner.ErrConcurrentTurn}
	rec := doChat(t, stub, `{"message": "hi", "sessionId": "s-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestChatStepLimitStaysConversational(t *testing.T) {
	stub := &stubRunner{err: &graph.StepLimitError{MaxSteps: 25}}
	rec := doChat(t, stub, `{"message": "hm", "sessionId": "s-9", "currency": "EUR"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp runner.TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, stepLimitMessage, resp.Message)
	assert.Equal(t, "s-9", resp.SessionID)
	assert.Equal(t, "EUR", resp.Currency)
}

func TestChatInternalError(t *testing.T) {
	stub := &stubRunner{err: assert.AnError}
	rec := doChat(t, stub, `{"message": "hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResetSession(t *testing.T) {
	stub := &stubRunner{}
	srv := New(stub)
	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/s-42", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s-42", stub.resetWith)
}

func TestHealth(t *testing.T) {
	srv := New(&stubRunner{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
