//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "memory", cfg.Saver.Backend)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9090"
log_level: debug
model:
  name: gpt-4o
checkpoint:
  backend: sqlite
  path: /tmp/agent.db
store:
  backend: redis
  addr: localhost:6379
`), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "gpt-4o", cfg.Model.Name)
	assert.Equal(t, "sqlite", cfg.Saver.Backend)
	assert.Equal(t, "/tmp/agent.db", cfg.Saver.Path)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "localhost:6379", cfg.Store.Addr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "cruises": [{"id": "c-1", "name": "Test Cruise"}],
  "cabins": {"c-1": [{"cruiseId": "c-1", "name": "Suite", "price": 1000}]}
}`), 0o644))

	seed, err := loadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Cruises, 1)
	assert.Equal(t, "c-1", seed.Cruises[0].ID)
	require.Len(t, seed.Cabins["c-1"], 1)
	assert.Equal(t, 1000.0, seed.Cabins["c-1"][0].Price)
}
