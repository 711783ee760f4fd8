//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

// Command cruise-agent serves the cruise booking assistant over HTTP.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-cruise-agent-go/classify"
	"trpc.group/trpc-go/trpc-cruise-agent-go/cruise"
	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
	checkpointinmemory "trpc.group/trpc-go/trpc-cruise-agent-go/graph/checkpoint/inmemory"
	checkpointsqlite "trpc.group/trpc-go/trpc-cruise-agent-go/graph/checkpoint/sqlite"
	"trpc.group/trpc-go/trpc-cruise-agent-go/log"
	"trpc.group/trpc-go/trpc-cruise-agent-go/model/openai"
	"trpc.group/trpc-go/trpc-cruise-agent-go/runner"
	"trpc.group/trpc-go/trpc-cruise-agent-go/server"
	"trpc.group/trpc-go/trpc-cruise-agent-go/store"
	storememory "trpc.group/trpc-go/trpc-cruise-agent-go/store/memory"
	storeredis "trpc.group/trpc-go/trpc-cruise-agent-go/store/redis"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cruise-agent",
		Short:        "Cruise booking assistant service",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	return cmd
}

func serve(ctx context.Context, cfg *Config) error {
	log.SetLevel(cfg.LogLevel)

	st, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	saver, err := buildSaver(cfg.Saver)
	if err != nil {
		return err
	}
	defer saver.Close()

	var modelOpts []openai.Option
	if cfg.Model.APIKey != "" {
		modelOpts = append(modelOpts, openai.WithAPIKey(cfg.Model.APIKey))
	}
	if cfg.Model.BaseURL != "" {
		modelOpts = append(modelOpts, openai.WithBaseURL(cfg.Model.BaseURL))
	}
	m := openai.New(cfg.Model.Name, modelOpts...)

	agent := cruise.New(m, classify.NewLLM(m), st)
	var runnerOpts []runner.Option
	if cfg.MaxSteps > 0 {
		runnerOpts = append(runnerOpts, runner.WithMaxSteps(cfg.MaxSteps))
	}
	r, err := runner.New(agent, saver, runnerOpts...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.New(r).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Infof("received %s, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func buildStore(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		var opts []storememory.Option
		if cfg.SeedFile != "" {
			seed, err := loadSeed(cfg.SeedFile)
			if err != nil {
				return nil, err
			}
			opts = append(opts, storememory.WithCruises(seed.Cruises...))
			for cruiseID, cabins := range seed.Cabins {
				opts = append(opts, storememory.WithCabins(cruiseID, cabins...))
			}
		}
		return storememory.New(opts...), nil
	case "redis":
		s, err := storeredis.New(storeredis.Config{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			Prefix:   cfg.Prefix,
		})
		if err != nil {
			return nil, err
		}
		if cfg.SeedFile != "" {
			seed, err := loadSeed(cfg.SeedFile)
			if err != nil {
				return nil, err
			}
			if err := s.Seed(ctx, seed.Cruises, seed.Cabins); err != nil {
				return nil, err
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func buildSaver(cfg SaverConfig) (graph.CheckpointSaver, error) {
	switch cfg.Backend {
	case "", "memory":
		return checkpointinmemory.NewSaver(), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "cruise-agent.db"
		}
		db, err := sql.Open("sqlite3", path)
		if err != nil {
			return nil, err
		}
		saver, err := checkpointsqlite.NewSaver(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &dbOwningSaver{Saver: saver, db: db}, nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}

// dbOwningSaver closes the SQLite handle the service opened for the saver.
type dbOwningSaver struct {
	*checkpointsqlite.Saver
	db *sql.DB
}

func (s *dbOwningSaver) Close() error {
	return s.db.Close()
}
