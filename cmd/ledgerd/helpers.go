package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ledgermirror/ledgerd/internal/config"
	"github.com/ledgermirror/ledgerd/internal/engine"
	"github.com/ledgermirror/ledgerd/internal/storage"
	ledgersync "github.com/ledgermirror/ledgerd/internal/sync"
	"github.com/ledgermirror/ledgerd/internal/upstream"

	"github.com/spf13/viper"
)

// app bundles the wired collaborators a command needs, plus the storage
// handle for cleanup.
type app struct {
	store        *storage.SQLiteStorage
	orchestrator *ledgersync.Orchestrator
	refs         *ledgersync.RefSyncer
	engine       *engine.Engine
}

func (a *app) Close() {
	_ = a.store.Close()
}

// resolveDBPath returns the configured cache database location, expanded,
// falling back to the default path.
func resolveDBPath() string {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	return config.ExpandPath(dbPath)
}

// openStorage opens and migrates the cache database.
func openStorage() (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(resolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := store.Migrate(rootCmd.Context()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}

	return store, nil
}

// buildApp wires storage, upstream client, sync engine and the operation
// layer from configuration.
func buildApp() (*app, error) {
	store, err := openStorage()
	if err != nil {
		return nil, err
	}

	client, err := upstream.NewClient(
		viper.GetString("upstream.url"),
		viper.GetString("upstream.token"),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	orchestrator := ledgersync.NewOrchestrator(store, client)
	refs := ledgersync.NewRefSyncer(store, client)

	eng := engine.New(store, orchestrator, refs, client, engine.Options{
		TransactionMaxStale: durationSetting("sync.max_stale", 5*time.Minute),
		RefDataMaxAge:       durationSetting("sync.ref_max_age", 24*time.Hour),
	})

	return &app{
		store:        store,
		orchestrator: orchestrator,
		refs:         refs,
		engine:       eng,
	}, nil
}

func durationSetting(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}

// printJSON renders a command result to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
