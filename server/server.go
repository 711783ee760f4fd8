//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package server exposes the booking assistant over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
	"trpc.group/trpc-go/trpc-cruise-agent-go/log"
	"trpc.group/trpc-go/trpc-cruise-agent-go/runner"
)

// stepLimitMessage is returned to the user when a turn exhausts its node
// execution budget instead of surfacing an internal error.
const stepLimitMessage = "I'm sorry, that request was taking me too long to work out. Could you rephrase it?"

// TurnRunner executes conversation turns. *runner.Runner satisfies it.
type TurnRunner interface {
	RunTurn(ctx context.Context, req *runner.TurnRequest) (*runner.TurnResponse, error)
	Reset(ctx context.Context, threadID string) error
}

// Server routes chat requests to the runner.
type Server struct {
	runner TurnRunner
	router *mux.Router
}

// New creates the HTTP server around a turn runner.
func New(r TurnRunner) *Server {
	s := &Server{
		runner: r,
		router: mux.NewRouter(),
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)
	s.router.HandleFunc("/api/sessions/{sessionId}", s.handleReset).Methods(http.MethodDelete)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	s.router.HandleFunc("/api/chat", preflight).Methods(http.MethodOptions)
	s.router.HandleFunc("/api/sessions/{sessionId}", preflight).Methods(http.MethodOptions)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req runner.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := s.runner.RunTurn(r.Context(), &req)
	if err != nil {
		s.writeTurnError(w, &req, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeTurnError maps runner failures to HTTP responses. A step budget
// overrun stays a normal chat answer so the client UI keeps working.
func (s *Server) writeTurnError(w http.ResponseWriter, req *runner.TurnRequest, err error) {
	if errors.Is(err, runner.ErrConcurrentTurn) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	var stepErr *graph.StepLimitError
	if errors.As(err, &stepErr) {
		log.Warnf("session %s hit the step limit: %v", req.SessionID, err)
		writeJSON(w, http.StatusOK, &runner.TurnResponse{
			Message:   stepLimitMessage,
			SessionID: req.SessionID,
			Currency:  req.Currency,
			Country:   req.Country,
		})
		return
	}
	log.Errorf("chat turn failed: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	if err := s.runner.Reset(r.Context(), sessionID); err != nil {
		log.Errorf("reset session %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID, "status": "reset"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
