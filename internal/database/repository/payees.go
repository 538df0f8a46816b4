package repository

import (
	"context"
	"database/sql"
)

// PayeeRepo handles payees.
type PayeeRepo struct {
	db *sql.DB
}

func NewPayeeRepo(db *sql.DB) *PayeeRepo {
	return &PayeeRepo{db: db}
}

func (r *PayeeRepo) Insert(ctx context.Context, p Payee) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO payees(account_number, account_name) VALUES (?, ?);
	`, p.AccountNumber, p.AccountName)
	return err
}

// DiscoverFromStaging creates one payee per distinct destination account
// number seen in staged transaction rows, using the payee name from the
// latest-dated row for that number, skipping numbers already known.
func (r *PayeeRepo) DiscoverFromStaging(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	WITH ranked_payees AS (
	    SELECT destination_account_number,
	           payee,
	           ROW_NUMBER() OVER (
	               PARTITION BY destination_account_number
	               ORDER BY date DESC
	           ) AS rn
	    FROM staging_records
	    WHERE record_type = ?
	)
	INSERT INTO payees(account_number, account_name)
	SELECT destination_account_number, payee
	FROM ranked_payees
	WHERE rn = 1
	  AND destination_account_number NOT IN (SELECT account_number FROM payees);
	`, RecordKindTransaction)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PayeeRepo) List(ctx context.Context) ([]Payee, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, account_number, account_name FROM payees ORDER BY account_name;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payee
	for rows.Next() {
		var p Payee
		if err := rows.Scan(&p.ID, &p.AccountNumber, &p.AccountName); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
