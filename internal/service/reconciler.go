package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"

	"github.com/oldrooster/simple-budget/internal/database/repository"
)

// checkpointInterval bounds log volume on large batches. It is a count-only
// checkpoint, not a transactional boundary.
const checkpointInterval = 200

// Reconciler commits novel staged transaction rows into the ledger and
// holds exact-tuple duplicates back for manual review.
type Reconciler struct {
	Transactions *repository.TransactionRepo
	Staging      *repository.StagingRepo
	Log          zerolog.Logger
}

// Run walks the remaining staged transaction rows in insertion order. A row
// with no ledger entry matching its field tuple is committed and removed
// from staging; a row that matches an existing entry is retained with the
// incremented running consecutive-duplicate counter persisted onto it.
//
// This is a heuristic filter: two genuinely distinct transactions sharing
// every visible field are merged.
func (r *Reconciler) Run(ctx context.Context) error {
	rows, err := r.Staging.ListTransactionRows(ctx)
	if err != nil {
		return fmt.Errorf("list staged transactions: %w", err)
	}

	processed := 0
	consecutive := 0
	for _, row := range rows {
		processed++
		if processed%checkpointInterval == 0 {
			r.Log.Info().Int("processed", processed).Msg("reconciling transactions")
		}

		t, err := stagedToTransaction(row)
		if err != nil {
			return err
		}
		exists, err := r.Transactions.ExistsTuple(ctx, t)
		if err != nil {
			return err
		}
		if !exists {
			if err := r.Transactions.Insert(ctx, t); err != nil {
				return err
			}
			if err := r.Staging.Delete(ctx, row.ID); err != nil {
				return err
			}
			consecutive = 0
			continue
		}
		r.Log.Info().Int64("staged_id", row.ID).Msg("transaction already exists or potential duplicate")
		consecutive++
		if err := r.Staging.SetConsecutiveDuplicates(ctx, row.ID, consecutive); err != nil {
			return err
		}
	}
	return nil
}

// CommitStaged force-commits the selected staged rows into the ledger,
// bypassing the duplicate check, and removes them from staging.
func (r *Reconciler) CommitStaged(ctx context.Context, ids []int64) error {
	rows, err := r.Staging.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	return r.commitRows(ctx, rows)
}

// CommitAll force-commits every remaining staged transaction row.
func (r *Reconciler) CommitAll(ctx context.Context) error {
	rows, err := r.Staging.ListTransactionRows(ctx)
	if err != nil {
		return err
	}
	return r.commitRows(ctx, rows)
}

func (r *Reconciler) commitRows(ctx context.Context, rows []repository.StagedRecord) error {
	for _, row := range rows {
		t, err := stagedToTransaction(row)
		if err != nil {
			return err
		}
		if err := r.Transactions.Insert(ctx, t); err != nil {
			return err
		}
		if err := r.Staging.Delete(ctx, row.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteStaged force-deletes the selected staged rows.
func (r *Reconciler) DeleteStaged(ctx context.Context, ids []int64) error {
	return r.Staging.DeleteByIDs(ctx, ids)
}

// DeleteAllStaged removes every remaining staged row unconditionally.
func (r *Reconciler) DeleteAllStaged(ctx context.Context) error {
	return r.Staging.DeleteAll(ctx)
}

// ReviewRows lists unresolved staged rows joined with account names.
func (r *Reconciler) ReviewRows(ctx context.Context) ([]repository.StagedReviewRow, error) {
	return r.Staging.ReviewRows(ctx)
}

// SimilarLedger lists ledger entries that look like the held staged row:
// same amount, dated within a week, description edit distance under 40%.
// An operator aid only; nothing is ever merged automatically.
func (r *Reconciler) SimilarLedger(ctx context.Context, stagedID int64) ([]repository.Transaction, error) {
	row, err := r.Staging.Get(ctx, stagedID)
	if err != nil {
		return nil, err
	}
	if row.Amount == nil {
		return nil, nil
	}
	candidates, err := r.Transactions.ListByAmount(ctx, *row.Amount)
	if err != nil {
		return nil, err
	}
	var out []repository.Transaction
	for _, t := range candidates {
		if row.Date != nil && daysApart(*row.Date, t.Date) > 7 {
			continue
		}
		if !descriptionsClose(stagedDescription(row), ledgerDescription(t)) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func stagedToTransaction(row repository.StagedRecord) (repository.Transaction, error) {
	if row.Date == nil {
		return repository.Transaction{}, fmt.Errorf("staged row %d has no date", row.ID)
	}
	amount := 0.0
	if row.Amount != nil {
		amount = *row.Amount
	}
	return repository.Transaction{
		AccountNumber:            row.SourceAccountNumber,
		Date:                     *row.Date,
		Amount:                   amount,
		Particulars:              row.Particulars,
		Code:                     row.Code,
		Reference:                row.Reference,
		Payee:                    row.Payee,
		TransactionType:          row.TransactionType,
		DestinationAccountNumber: row.DestinationAccountNumber,
	}, nil
}

func stagedDescription(row repository.StagedRecord) string {
	return strings.TrimSpace(row.Payee + " " + row.Particulars)
}

func ledgerDescription(t repository.Transaction) string {
	return strings.TrimSpace(t.Payee + " " + t.Particulars)
}

func descriptionsClose(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	dist := levenshtein.ComputeDistance(strings.ToUpper(a), strings.ToUpper(b))
	maxlen := len(a)
	if len(b) > maxlen {
		maxlen = len(b)
	}
	return float64(dist)/float64(maxlen) < 0.4
}

func daysApart(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
