package rules

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oldrooster/simple-budget/internal/database"
	"github.com/oldrooster/simple-budget/internal/database/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrationsWithDB(db))
	return db
}

func insertTxn(t *testing.T, db *sql.DB, dateISO string, amount float64, payee, code string) {
	t.Helper()
	d, err := time.Parse("2006-01-02", dateISO)
	require.NoError(t, err)
	require.NoError(t, repository.NewTransactionRepo(db).Insert(context.Background(), repository.Transaction{
		AccountNumber: "01-0001",
		Date:          d,
		Amount:        amount,
		Payee:         payee,
		Code:          code,
	}))
}

func TestBuildPredicateRejectsUnknownOperator(t *testing.T) {
	t.Parallel()
	_, _, err := BuildPredicate([]repository.RuleCondition{
		{Field: "payee", Operator: "; DROP TABLE transactions --", Value: "x"},
	})
	require.ErrorIs(t, err, ErrUnknownOperator)
}

func TestBuildPredicateRejectsUnknownField(t *testing.T) {
	t.Parallel()
	_, _, err := BuildPredicate([]repository.RuleCondition{
		{Field: "payee; DELETE FROM transactions", Operator: "=", Value: "x"},
	})
	require.ErrorIs(t, err, ErrUnknownField)

	_, _, err = BuildPredicate([]repository.RuleCondition{
		{Field: "id", Operator: "=", Value: "1"},
	})
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestBuildPredicateRejectsEmptyConditions(t *testing.T) {
	t.Parallel()
	_, _, err := BuildPredicate(nil)
	require.ErrorIs(t, err, ErrNoConditions)
}

func TestBuildPredicateValueNeverReachesSQL(t *testing.T) {
	t.Parallel()
	where, args, err := BuildPredicate([]repository.RuleCondition{
		{Field: "payee", Operator: "=", Value: "'; DROP TABLE transactions; --"},
	})
	require.NoError(t, err)
	require.Equal(t, "t.payee = ?", where)
	require.Equal(t, []interface{}{"'; DROP TABLE transactions; --"}, args)
}

func TestBuildPredicateAndOrChain(t *testing.T) {
	t.Parallel()
	where, args, err := BuildPredicate([]repository.RuleCondition{
		{Field: "amount", Operator: "<", Value: "0", OrPrev: true}, // flag on first is ignored
		{Field: "payee", Operator: "like", Value: "SHOP"},
		{Field: "code", Operator: "=", Value: "DD", OrPrev: true},
	})
	require.NoError(t, err)
	require.Equal(t, "t.amount < ? AND t.payee LIKE ? OR t.code = ?", where)
	require.Equal(t, []interface{}{0.0, "%SHOP%", "DD"}, args)
}

func TestMatchOrCombination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	insertTxn(t, db, "2024-01-01", 150, "SALARY", "")
	insertTxn(t, db, "2024-01-02", -20, "RENT", "")
	insertTxn(t, db, "2024-01-03", -5, "CAFE", "")

	matches, err := Match(ctx, db, []repository.RuleCondition{
		{Field: "amount", Operator: ">", Value: "100"},
		{Field: "payee", Operator: "=", Value: "RENT", OrPrev: true},
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "SALARY", matches[0].Transaction.Payee)
	require.Equal(t, "RENT", matches[1].Transaction.Payee)
}

func TestMatchLikeWrapsValue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	insertTxn(t, db, "2024-01-01", -10, "COUNTDOWN AKL", "")
	insertTxn(t, db, "2024-01-02", -10, "NEW WORLD", "")

	matches, err := Match(ctx, db, []repository.RuleCondition{
		{Field: "payee", Operator: "like", Value: "COUNTDOWN"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "COUNTDOWN AKL", matches[0].Transaction.Payee)
}

func TestMatchAmountComparesNumerically(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	insertTxn(t, db, "2024-01-01", 99, "A", "")
	insertTxn(t, db, "2024-01-02", 100.5, "B", "")

	matches, err := Match(ctx, db, []repository.RuleCondition{
		{Field: "amount", Operator: ">", Value: "100"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "B", matches[0].Transaction.Payee)
}

func TestMatchCapsPreview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	for i := 0; i < PreviewLimit+20; i++ {
		insertTxn(t, db, "2024-01-01", -1, fmt.Sprintf("SHOP %d", i), "")
	}

	matches, err := Match(ctx, db, []repository.RuleCondition{
		{Field: "amount", Operator: "=", Value: "-1"},
	})
	require.NoError(t, err)
	require.Len(t, matches, PreviewLimit)
}

func TestApplyCategorisesMatches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	insertTxn(t, db, "2024-01-01", -10, "COUNTDOWN AKL", "")
	insertTxn(t, db, "2024-01-02", -10, "CAFE", "")

	cats := repository.NewCategoryRepo(db)
	catID, err := cats.Create(ctx, "Groceries")
	require.NoError(t, err)

	rule := repository.Rule{
		ID:         1,
		Conditions: []repository.RuleCondition{{Field: "payee", Operator: "like", Value: "COUNTDOWN"}},
		Actions:    []repository.RuleAction{{CategoryID: catID}},
	}
	n, err := Apply(ctx, db, rule)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// reapplying is a no-op for the link table
	n, err = Apply(ctx, db, rule)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var linked int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transaction_categories`).Scan(&linked))
	require.Equal(t, 1, linked)
}
