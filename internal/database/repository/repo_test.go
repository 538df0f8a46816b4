package repository

import (
	"database/sql"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oldrooster/simple-budget/internal/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrationsWithDB(db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func day(t *testing.T, iso string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", iso)
	require.NoError(t, err)
	return parsed
}

func stagedTxn(source, amount, payee, dateISO, destination string) StagedRecord {
	a, _ := strconv.ParseFloat(amount, 64)
	date, _ := time.Parse("2006-01-02", dateISO)
	return StagedRecord{
		RecordType:               RecordKindTransaction,
		SourceAccountNumber:      source,
		Amount:                   &a,
		Payee:                    payee,
		Date:                     &date,
		TransactionType:          "EFTPOS",
		DestinationAccountNumber: destination,
	}
}
