package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// AccountRepo handles accounts.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Insert(ctx context.Context, a Account) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO accounts(account_number, account_name, opening_balance)
	VALUES (?, ?, ?);
	`, a.AccountNumber, a.AccountName, a.OpeningBalance)
	return err
}

// DiscoverFromStaging creates one account per distinct source account number
// seen in account-opening staged rows not already known. The account name
// comes from the row's payee field, the opening balance from its amount.
// When a number appears on several staged rows, any one of them wins.
func (r *AccountRepo) DiscoverFromStaging(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO accounts(account_number, account_name, opening_balance)
	SELECT source_account_number, payee, amount
	FROM staging_records
	WHERE record_type = ?
	  AND source_account_number NOT IN (SELECT account_number FROM accounts)
	GROUP BY source_account_number;
	`, RecordKindAccountOpening)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *AccountRepo) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, account_number, account_name, opening_balance
	FROM accounts ORDER BY account_name;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.AccountNumber, &a.AccountName, &a.OpeningBalance); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Summary returns the derived per-account view: opening balance plus the sum
// of all ledger transaction amounts, rounded to 2 decimal places.
func (r *AccountRepo) Summary(ctx context.Context) ([]AccountSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT a.id, a.account_name, a.account_number, a.opening_balance,
	       a.opening_balance + COALESCE(SUM(t.amount), 0)
	FROM accounts a
	LEFT JOIN transactions t ON a.account_number = t.account_number
	GROUP BY a.id, a.account_name, a.account_number, a.opening_balance
	ORDER BY a.account_name;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountSummary
	for rows.Next() {
		var s AccountSummary
		var raw float64
		if err := rows.Scan(&s.ID, &s.AccountName, &s.AccountNumber, &s.OpeningBalance, &raw); err != nil {
			return nil, err
		}
		s.Balance = decimal.NewFromFloat(raw).Round(2).InexactFloat64()
		out = append(out, s)
	}
	return out, rows.Err()
}
