package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beneple/bx-migrate/internal/legacy"
	"github.com/beneple/bx-migrate/internal/migrate"
	"github.com/beneple/bx-migrate/internal/resolve"
	"github.com/beneple/bx-migrate/internal/store"
	"github.com/beneple/bx-migrate/pkg/configuration"
	"github.com/beneple/bx-migrate/pkg/schema"
)

type migrateOptions struct {
	input      string
	schemasDir string
	backend    string
	debug      bool
}

func newRootCmd() *cobra.Command {
	var opts migrateOptions

	cmd := &cobra.Command{
		Use:           "bx-migrate",
		Short:         "Migrate the legacy flat export into the new entity store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Path to the legacy export JSON (default from MIGRATE_INPUT)")
	cmd.Flags().StringVar(&opts.schemasDir, "schemas", "", "Directory with schema documents (default: embedded)")
	cmd.Flags().StringVar(&opts.backend, "store", "", "Target store: postgres or memory (default from MIGRATE_STORE)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Stop each pass after its first record")

	return cmd
}

func runMigration(ctx context.Context, cmd *cobra.Command, opts migrateOptions) error {
	cfg := configuration.Use()
	logger := cfg.Logger()

	if opts.input == "" {
		opts.input = cfg.InputPath
	}
	if opts.schemasDir == "" {
		opts.schemasDir = cfg.SchemasDir
	}
	if opts.backend == "" {
		opts.backend = cfg.StoreBackend
	}
	debug := opts.debug || cfg.Debug

	registry, err := schema.NewRegistry(opts.schemasDir)
	if err != nil {
		return withCode(exitValidation, err)
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("open export: %w", err))
	}
	defer f.Close()

	data, err := legacy.Load(f)
	if err != nil {
		return withCode(exitValidation, err)
	}
	logger.Info("data for import loaded")

	var target store.Store
	switch opts.backend {
	case "memory":
		target = store.NewMemory()
	default:
		pool, err := store.Connect(ctx, cfg.Database.Opts)
		if err != nil {
			return withCode(exitDB, err)
		}
		defer pool.Close()

		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return withCode(exitDB, err)
		}
		target = pg
	}

	if err := migrate.New(data, registry, target, logger, debug).Run(ctx); err != nil {
		return withCode(classify(err), err)
	}
	return nil
}

func classify(err error) int {
	var (
		schemaErr *schema.ValidationError
		refErr    *resolve.MissingReferenceError
		formatErr *legacy.FormatError
	)
	switch {
	case errorsAs(err, &schemaErr), errorsAs(err, &refErr), errorsAs(err, &formatErr):
		return exitValidation
	default:
		return exitDB
	}
}
