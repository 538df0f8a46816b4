package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// StagingRepo holds parsed export rows pending reconciliation.
type StagingRepo struct {
	db *sql.DB
}

func NewStagingRepo(db *sql.DB) *StagingRepo { return &StagingRepo{db: db} }

// BulkInsert writes one batch of parsed rows in a single transaction.
// A nil amount is coerced to 0 at insert; a nil date stays NULL.
func (r *StagingRepo) BulkInsert(ctx context.Context, records []StagedRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO staging_records(
	 record_type, internal_reference, source_account_number, amount, unknown,
	 transaction_reference, particulars, code, reference, payee, date, optional,
	 transaction_type, misc_field, destination_account_number, consecutive_duplicates)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0);
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		amount := 0.0
		if rec.Amount != nil {
			amount = *rec.Amount
		}
		if _, err := stmt.ExecContext(ctx,
			rec.RecordType, rec.InternalReference, rec.SourceAccountNumber, amount,
			rec.Unknown, rec.TransactionReference, rec.Particulars, rec.Code,
			rec.Reference, rec.Payee, nullDate(rec.Date), rec.Optional,
			rec.TransactionType, rec.MiscField, rec.DestinationAccountNumber,
		); err != nil {
			return fmt.Errorf("insert staged row: %w", err)
		}
	}
	return tx.Commit()
}

// ListTransactionRows returns staged transaction-kind rows in insertion order.
func (r *StagingRepo) ListTransactionRows(ctx context.Context) ([]StagedRecord, error) {
	rows, err := r.db.QueryContext(ctx, stagedSelect+` WHERE record_type = ? ORDER BY id`, RecordKindTransaction)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStagedRows(rows)
}

// GetByIDs returns the staged rows for the given ids, in id order.
func (r *StagingRepo) GetByIDs(ctx context.Context, ids []int64) ([]StagedRecord, error) {
	placeholders, args := int64Clause(ids)
	if placeholders == "" {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, stagedSelect+` WHERE id IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStagedRows(rows)
}

// Get returns a single staged row or ErrNotFound.
func (r *StagingRepo) Get(ctx context.Context, id int64) (StagedRecord, error) {
	recs, err := r.GetByIDs(ctx, []int64{id})
	if err != nil {
		return StagedRecord{}, err
	}
	if len(recs) == 0 {
		return StagedRecord{}, fmt.Errorf("staged row %d: %w", id, ErrNotFound)
	}
	return recs[0], nil
}

func (r *StagingRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM staging_records WHERE id = ?`, id)
	return err
}

func (r *StagingRepo) DeleteByIDs(ctx context.Context, ids []int64) error {
	placeholders, args := int64Clause(ids)
	if placeholders == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM staging_records WHERE id IN (`+placeholders+`)`, args...)
	return err
}

func (r *StagingRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM staging_records`)
	return err
}

// PurgeNonTransaction removes rows that only existed to seed accounts and
// payees. Runs after payee discovery.
func (r *StagingRepo) PurgeNonTransaction(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM staging_records WHERE record_type != ?`, RecordKindTransaction)
	return err
}

// SetConsecutiveDuplicates persists the running duplicate counter on a row.
func (r *StagingRepo) SetConsecutiveDuplicates(ctx context.Context, id int64, count int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE staging_records SET consecutive_duplicates = ? WHERE id = ?`, count, id)
	return err
}

// ReviewRows lists remaining staged rows joined with account names for
// operator review.
func (r *StagingRepo) ReviewRows(ctx context.Context) ([]StagedReviewRow, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT s.id, COALESCE(a.account_name, ''), s.date, s.amount, s.payee,
	       s.particulars, s.code, s.reference, s.consecutive_duplicates
	FROM staging_records s
	LEFT JOIN accounts a ON s.source_account_number = a.account_number
	ORDER BY s.id;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StagedReviewRow
	for rows.Next() {
		var row StagedReviewRow
		var date sql.NullString
		if err := rows.Scan(&row.ID, &row.AccountName, &date, &row.Amount, &row.Payee,
			&row.Particulars, &row.Code, &row.Reference, &row.ConsecutiveDuplicates); err != nil {
			return nil, err
		}
		if date.Valid {
			t, err := time.Parse(dateLayout, date.String)
			if err != nil {
				return nil, fmt.Errorf("staged row %d date: %w", row.ID, err)
			}
			row.Date = &t
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const stagedSelect = `
	SELECT id, record_type, internal_reference, source_account_number, amount,
	       unknown, transaction_reference, particulars, code, reference, payee,
	       date, optional, transaction_type, misc_field,
	       destination_account_number, consecutive_duplicates
	FROM staging_records`

func scanStagedRows(rows *sql.Rows) ([]StagedRecord, error) {
	var out []StagedRecord
	for rows.Next() {
		var rec StagedRecord
		var amount float64
		var date sql.NullString
		if err := rows.Scan(&rec.ID, &rec.RecordType, &rec.InternalReference,
			&rec.SourceAccountNumber, &amount, &rec.Unknown, &rec.TransactionReference,
			&rec.Particulars, &rec.Code, &rec.Reference, &rec.Payee, &date,
			&rec.Optional, &rec.TransactionType, &rec.MiscField,
			&rec.DestinationAccountNumber, &rec.ConsecutiveDuplicates); err != nil {
			return nil, err
		}
		rec.Amount = &amount
		if date.Valid {
			t, err := time.Parse(dateLayout, date.String)
			if err != nil {
				return nil, fmt.Errorf("staged row %d date: %w", rec.ID, err)
			}
			rec.Date = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func int64Clause(ids []int64) (string, []interface{}) {
	if len(ids) == 0 {
		return "", nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return placeholders, args
}
