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
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-cruise-agent-go/store"
)

// Config is the service configuration loaded from YAML.
type Config struct {
	// Listen is the HTTP listen address.
	Listen   string      `yaml:"listen"`
	LogLevel string      `yaml:"log_level"`
	MaxSteps int         `yaml:"max_steps"`
	Model    ModelConfig `yaml:"model"`
	Store    StoreConfig `yaml:"store"`
	Saver    SaverConfig `yaml:"checkpoint"`
}

// ModelConfig selects the chat model endpoint.
type ModelConfig struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// StoreConfig selects the cruise inventory backend.
type StoreConfig struct {
	// Backend is "memory" or "redis".
	Backend  string `yaml:"backend"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	// SeedFile optionally points at a JSON inventory to load at startup.
	SeedFile string `yaml:"seed_file"`
}

// SaverConfig selects where per-session checkpoints live.
type SaverConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

// SeedData is the on-disk inventory format.
type SeedData struct {
	Cruises []store.Cruise           `json:"cruises"`
	Cabins  map[string][]store.Cabin `json:"cabins"`
}

func defaultConfig() *Config {
	return &Config{
		Listen:   ":8080",
		LogLevel: "info",
		Model:    ModelConfig{Name: "gpt-4o-mini"},
		Store:    StoreConfig{Backend: "memory"},
		Saver:    SaverConfig{Backend: "memory"},
	}
}

// loadConfig reads the YAML config file, falling back to defaults for
// anything it leaves out. An empty path yields the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

// loadSeed reads the JSON inventory file.
func loadSeed(path string) (*SeedData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return &seed, nil
}
