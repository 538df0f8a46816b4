package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oldrooster/simple-budget/internal/database"
	"github.com/oldrooster/simple-budget/internal/database/repository"
)

// Importer runs the full import pipeline: parse each file into staging,
// then resolve accounts and payees and reconcile the whole batch once.
type Importer struct {
	Staging    *repository.StagingRepo
	Runs       *repository.ImportRunRepo
	Resolver   *Resolver
	Reconciler *Reconciler
	Log        zerolog.Logger

	// KeepFiles disables deletion of source files after processing.
	KeepFiles bool
}

// ImportFiles processes the given export files sequentially, then runs
// resolution and reconciliation once for the whole batch.
func (i *Importer) ImportFiles(ctx context.Context, paths []string) error {
	for _, path := range paths {
		if err := i.importFile(ctx, path); err != nil {
			return err
		}
	}
	if err := i.Resolver.Resolve(ctx); err != nil {
		return err
	}
	return i.Reconciler.Run(ctx)
}

func (i *Importer) importFile(ctx context.Context, path string) error {
	i.Log.Info().Str("file", path).Msg("processing upload file")

	runID := uuid.NewString()
	if err := i.Runs.Start(ctx, runID, filepath.Base(path), database.Now()); err != nil {
		return fmt.Errorf("record import run: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		ferr := fmt.Errorf("open %s: %w", path, err)
		_ = i.Runs.Fail(ctx, runID, ferr, database.Now())
		return ferr
	}
	records, skipped := ParseRecords(f, i.Log)
	_ = f.Close()

	if err := i.Staging.BulkInsert(ctx, records); err != nil {
		ferr := fmt.Errorf("stage %s: %w", path, err)
		_ = i.Runs.Fail(ctx, runID, ferr, database.Now())
		return ferr
	}
	if err := i.Runs.Finish(ctx, runID, len(records), skipped, database.Now()); err != nil {
		return fmt.Errorf("finish import run: %w", err)
	}

	if !i.KeepFiles {
		if err := os.Remove(path); err != nil {
			i.Log.Error().Str("file", path).Err(err).Msg("error deleting file")
		} else {
			i.Log.Info().Str("file", path).Msg("deleted file")
		}
	}
	return nil
}
