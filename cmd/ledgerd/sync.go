package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgermirror/ledgerd/internal/storage"
	ledgersync "github.com/ledgermirror/ledgerd/internal/sync"

	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull new and changed transactions from the upstream ledger",
		Long: `Performs an incremental sync from the stored watermark, or the initial
full history pull if the cache has never synced. Use --full to force a
complete repull from the anchor date.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			if full {
				return application.orchestrator.SyncFull(cmd.Context())
			}
			return application.orchestrator.SyncIncremental(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "force a full history sync")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the mirror fresh until interrupted",
		Long: `Runs the initial sync if needed, then keeps background timers pulling
incremental transaction updates and reference data on their configured
cadences until the process is interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			ctx := cmd.Context()

			// The initial pull must not block the timers from starting.
			go func() {
				if err := application.orchestrator.EnsureInitialized(ctx); err != nil {
					slog.Error("Initial sync failed", "error", err)
				}
			}()

			scheduler := ledgersync.NewScheduler(
				application.orchestrator,
				application.refs,
				durationSetting("sync.interval", 15*time.Minute),
				durationSetting("sync.ref_interval", 6*time.Hour),
			)
			scheduler.Start(ctx)

			slog.Info("Watching for ledger changes")
			<-ctx.Done()
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending cache database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := resolveDBPath()
			store, err := storage.NewSQLiteStorage(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open cache database: %w", err)
			}
			defer func() { _ = store.Close() }()

			before, err := store.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to migrate cache database: %w", err)
			}

			if before == storage.ExpectedSchemaVersion {
				slog.Info("Cache database is up to date", "path", dbPath, "schema_version", before)
			} else {
				slog.Info("Cache database migrated", "path", dbPath, "from_version", before, "to_version", storage.ExpectedSchemaVersion)
			}
			return nil
		},
	}
}
