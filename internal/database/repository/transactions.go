package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TransactionRepo handles the permanent ledger.
type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO transactions(
	 account_number, date, amount, particulars, code, reference, payee,
	 transaction_type, destination_account_number)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, t.AccountNumber, t.Date.Format(dateLayout), t.Amount, t.Particulars,
		t.Code, t.Reference, t.Payee, t.TransactionType, t.DestinationAccountNumber)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ExistsTuple reports whether a ledger entry with an identical field tuple
// already exists. Reference numbers are deliberately absent from the tuple,
// so two distinct real-world transfers sharing every visible field are
// treated as one. A nil date never matches.
func (r *TransactionRepo) ExistsTuple(ctx context.Context, t Transaction) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
	SELECT 1 FROM transactions
	WHERE account_number = ?
	  AND amount = ?
	  AND date = ?
	  AND payee = ?
	  AND particulars = ?
	  AND code = ?
	  AND reference = ?
	  AND transaction_type = ?
	  AND destination_account_number = ?
	LIMIT 1;
	`, t.AccountNumber, t.Amount, t.Date.Format(dateLayout), t.Payee,
		t.Particulars, t.Code, t.Reference, t.TransactionType,
		t.DestinationAccountNumber).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("tuple lookup: %w", err)
	}
	return true, nil
}

func (r *TransactionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n)
	return n, err
}

// ListByAmount returns ledger entries with an exact amount, used for
// near-duplicate hints on held staged rows.
func (r *TransactionRepo) ListByAmount(ctx context.Context, amount float64) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, account_number, date, amount, particulars, code, reference,
	       payee, transaction_type, destination_account_number
	FROM transactions WHERE amount = ? ORDER BY date;
	`, amount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// SetCategory links a transaction to a category, replacing nothing on
// repeat application.
func (r *TransactionRepo) SetCategory(ctx context.Context, transactionID, categoryID int64, subcategoryID *int64) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT OR IGNORE INTO transaction_categories(transaction_id, category_id, subcategory_id)
	VALUES(?, ?, ?);
	`, transactionID, categoryID, subcategoryID)
	return err
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	var out []Transaction
	for rows.Next() {
		var t Transaction
		var date string
		if err := rows.Scan(&t.ID, &t.AccountNumber, &date, &t.Amount,
			&t.Particulars, &t.Code, &t.Reference, &t.Payee,
			&t.TransactionType, &t.DestinationAccountNumber); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("transaction %d date: %w", t.ID, err)
		}
		t.Date = parsed
		out = append(out, t)
	}
	return out, rows.Err()
}
