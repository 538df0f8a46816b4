// Package rules evaluates user-defined field conditions against the
// transaction ledger. Field names and operators come from user input, so
// both are checked against closed allow-lists before any SQL is assembled;
// condition values are always bound as parameters.
package rules

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oldrooster/simple-budget/internal/database/repository"
)

// Errors returned before any query is built or executed.
var (
	ErrNoConditions    = fmt.Errorf("rule has no conditions")
	ErrUnknownOperator = fmt.Errorf("unsupported operator")
	ErrUnknownField    = fmt.Errorf("unsupported field")
)

// PreviewLimit caps preview results. Display safeguard only; callers must
// not assume the result set is complete.
const PreviewLimit = 100

// operators maps each supported comparison to its SQL form.
var operators = map[string]string{
	"=":    "=",
	"!=":   "!=",
	"<":    "<",
	"<=":   "<=",
	">":    ">",
	">=":   ">=",
	"like": "LIKE",
}

// queryableFields is the allow-list of ledger columns a condition may name.
var queryableFields = map[string]bool{
	"account_number":             true,
	"date":                       true,
	"amount":                     true,
	"particulars":                true,
	"code":                       true,
	"reference":                  true,
	"payee":                      true,
	"transaction_type":           true,
	"destination_account_number": true,
}

// MatchRow is a matched ledger entry joined with its account name.
type MatchRow struct {
	Transaction repository.Transaction
	AccountName string
}

// BuildPredicate turns an ordered condition list into a parameterized WHERE
// clause. Condition 0 contributes "field OP ?"; each later condition is
// prefixed with AND or OR per its own flag. The first condition's flag is
// ignored, there is nothing for it to join to.
func BuildPredicate(conditions []repository.RuleCondition) (string, []interface{}, error) {
	if len(conditions) == 0 {
		return "", nil, ErrNoConditions
	}
	for _, c := range conditions {
		if _, ok := operators[strings.ToLower(strings.TrimSpace(c.Operator))]; !ok {
			return "", nil, fmt.Errorf("%w: %q", ErrUnknownOperator, c.Operator)
		}
		if !queryableFields[c.Field] {
			return "", nil, fmt.Errorf("%w: %q", ErrUnknownField, c.Field)
		}
	}

	var b strings.Builder
	args := make([]interface{}, 0, len(conditions))
	for i, c := range conditions {
		op := operators[strings.ToLower(strings.TrimSpace(c.Operator))]
		if i > 0 {
			if c.OrPrev {
				b.WriteString(" OR ")
			} else {
				b.WriteString(" AND ")
			}
		}
		fmt.Fprintf(&b, "t.%s %s ?", c.Field, op)
		if op == "LIKE" {
			args = append(args, "%"+c.Value+"%")
		} else {
			args = append(args, conditionArg(c))
		}
	}
	return b.String(), args, nil
}

// conditionArg binds amount comparisons numerically so that "100" compares
// as a number, not a string. Everything else binds as text.
func conditionArg(c repository.RuleCondition) interface{} {
	if c.Field == "amount" {
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(c.Value), "%g", &f); err == nil {
			return f
		}
	}
	return c.Value
}

// Match evaluates the conditions against the ledger and returns up to
// PreviewLimit rows joined with account names for display.
func Match(ctx context.Context, db *sql.DB, conditions []repository.RuleCondition) ([]MatchRow, error) {
	where, args, err := BuildPredicate(conditions)
	if err != nil {
		return nil, err
	}
	query := `
	SELECT t.id, t.account_number, t.date, t.amount, t.particulars, t.code,
	       t.reference, t.payee, t.transaction_type, t.destination_account_number,
	       COALESCE(a.account_name, '')
	FROM transactions t
	LEFT JOIN accounts a ON a.account_number = t.account_number
	WHERE ` + where + `
	ORDER BY t.date, t.id
	LIMIT ?;`
	args = append(args, PreviewLimit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

// Apply runs the rule over the full ledger (no preview cap) and records its
// actions against every matched transaction. Repeat application is a no-op
// for already-linked categories.
func Apply(ctx context.Context, db *sql.DB, rule repository.Rule) (int, error) {
	where, args, err := BuildPredicate(rule.Conditions)
	if err != nil {
		return 0, err
	}
	if len(rule.Actions) == 0 {
		return 0, nil
	}
	rows, err := db.QueryContext(ctx, `SELECT t.id FROM transactions t WHERE `+where, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	txRepo := repository.NewTransactionRepo(db)
	for _, id := range ids {
		for _, action := range rule.Actions {
			if err := txRepo.SetCategory(ctx, id, action.CategoryID, action.SubcategoryID); err != nil {
				return 0, fmt.Errorf("apply rule %d to transaction %d: %w", rule.ID, id, err)
			}
		}
	}
	return len(ids), nil
}

func scanMatches(rows *sql.Rows) ([]MatchRow, error) {
	var out []MatchRow
	for rows.Next() {
		var m MatchRow
		var date string
		if err := rows.Scan(&m.Transaction.ID, &m.Transaction.AccountNumber, &date,
			&m.Transaction.Amount, &m.Transaction.Particulars, &m.Transaction.Code,
			&m.Transaction.Reference, &m.Transaction.Payee, &m.Transaction.TransactionType,
			&m.Transaction.DestinationAccountNumber, &m.AccountName); err != nil {
			return nil, err
		}
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("match row %d date: %w", m.Transaction.ID, err)
		}
		m.Transaction.Date = parsed
		out = append(out, m)
	}
	return out, rows.Err()
}
