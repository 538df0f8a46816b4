package repository

import (
	"context"
	"database/sql"
	"time"
)

// ImportRunRepo records each processed export file.
type ImportRunRepo struct {
	db *sql.DB
}

func NewImportRunRepo(db *sql.DB) *ImportRunRepo { return &ImportRunRepo{db: db} }

func (r *ImportRunRepo) Start(ctx context.Context, id, filename string, startedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO import_runs(id, filename, status, started_at)
	VALUES(?, ?, ?, ?);
	`, id, filename, RunStatusRunning, startedAt.Format(time.RFC3339))
	return err
}

func (r *ImportRunRepo) Finish(ctx context.Context, id string, inserted, skipped int, finishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE import_runs
	SET status = ?, rows_inserted = ?, rows_skipped = ?, finished_at = ?
	WHERE id = ?;
	`, RunStatusSucceeded, inserted, skipped, finishedAt.Format(time.RFC3339), id)
	return err
}

func (r *ImportRunRepo) Fail(ctx context.Context, id string, cause error, finishedAt time.Time) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := r.db.ExecContext(ctx, `
	UPDATE import_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?;
	`, RunStatusFailed, msg, finishedAt.Format(time.RFC3339), id)
	return err
}

func (r *ImportRunRepo) List(ctx context.Context) ([]ImportRun, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, filename, rows_inserted, rows_skipped, status, error, started_at, finished_at
	FROM import_runs ORDER BY started_at;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ImportRun
	for rows.Next() {
		var run ImportRun
		var started string
		var finished sql.NullString
		if err := rows.Scan(&run.ID, &run.Filename, &run.RowsInserted, &run.RowsSkipped,
			&run.Status, &run.Error, &started, &finished); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			run.StartedAt = t
		}
		if finished.Valid {
			if t, err := time.Parse(time.RFC3339, finished.String); err == nil {
				run.FinishedAt = &t
			}
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
