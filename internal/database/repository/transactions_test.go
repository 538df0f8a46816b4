package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExistsTupleMatchesFullTuple(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	txns := NewTransactionRepo(db)
	base := Transaction{
		AccountNumber:            "01-0001",
		Date:                     day(t, "2024-03-05"),
		Amount:                   -42.50,
		Particulars:              "EFTPOS",
		Code:                     "4321",
		Reference:                "INV-99",
		Payee:                    "BOOKSHOP",
		TransactionType:          "POS",
		DestinationAccountNumber: "99-0002",
	}
	require.NoError(t, txns.Insert(ctx, base))

	exists, err := txns.ExistsTuple(ctx, base)
	require.NoError(t, err)
	require.True(t, exists)

	// any single field difference makes it a new transaction
	other := base
	other.DestinationAccountNumber = "99-0003"
	exists, err = txns.ExistsTuple(ctx, other)
	require.NoError(t, err)
	require.False(t, exists)

	other = base
	other.Amount = -42.51
	exists, err = txns.ExistsTuple(ctx, other)
	require.NoError(t, err)
	require.False(t, exists)

	other = base
	other.Date = day(t, "2024-03-06")
	exists, err = txns.ExistsTuple(ctx, other)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestTransactionCountAndListByAmount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	txns := NewTransactionRepo(db)
	require.NoError(t, txns.Insert(ctx, Transaction{
		AccountNumber: "01", Date: day(t, "2024-01-01"), Amount: -5, Payee: "A",
	}))
	require.NoError(t, txns.Insert(ctx, Transaction{
		AccountNumber: "01", Date: day(t, "2024-01-02"), Amount: -5, Payee: "B",
	}))
	require.NoError(t, txns.Insert(ctx, Transaction{
		AccountNumber: "01", Date: day(t, "2024-01-03"), Amount: 100, Payee: "C",
	}))

	n, err := txns.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	matches, err := txns.ListByAmount(ctx, -5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
}

func TestSetCategoryIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	txns := NewTransactionRepo(db)
	cats := NewCategoryRepo(db)

	require.NoError(t, txns.Insert(ctx, Transaction{
		AccountNumber: "01", Date: day(t, "2024-01-01"), Amount: -5, Payee: "A",
	}))
	rows, err := txns.ListByAmount(ctx, -5)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	catID, err := cats.Create(ctx, "Food")
	require.NoError(t, err)

	require.NoError(t, txns.SetCategory(ctx, rows[0].ID, catID, nil))
	require.NoError(t, txns.SetCategory(ctx, rows[0].ID, catID, nil))
}
