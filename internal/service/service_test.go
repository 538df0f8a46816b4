package service

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/oldrooster/simple-budget/internal/database"
	"github.com/oldrooster/simple-budget/internal/database/repository"
)

// harness wires the service layer against a throwaway sqlite file.
type harness struct {
	db           *sql.DB
	staging      *repository.StagingRepo
	accounts     *repository.AccountRepo
	payees       *repository.PayeeRepo
	transactions *repository.TransactionRepo
	runs         *repository.ImportRunRepo
	resolver     *Resolver
	reconciler   *Reconciler
	importer     *Importer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrationsWithDB(db))

	log := zerolog.Nop()
	h := &harness{
		db:           db,
		staging:      repository.NewStagingRepo(db),
		accounts:     repository.NewAccountRepo(db),
		payees:       repository.NewPayeeRepo(db),
		transactions: repository.NewTransactionRepo(db),
		runs:         repository.NewImportRunRepo(db),
	}
	h.resolver = &Resolver{Accounts: h.accounts, Payees: h.payees, Staging: h.staging, Log: log}
	h.reconciler = &Reconciler{Transactions: h.transactions, Staging: h.staging, Log: log}
	h.importer = &Importer{
		Staging:    h.staging,
		Runs:       h.runs,
		Resolver:   h.resolver,
		Reconciler: h.reconciler,
		Log:        log,
	}
	return h
}

func day(t *testing.T, iso string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", iso)
	require.NoError(t, err)
	return d
}

func stagedTxn(source string, amount float64, payee, dateISO, destination string) repository.StagedRecord {
	d, _ := time.Parse("2006-01-02", dateISO)
	return repository.StagedRecord{
		RecordType:               repository.RecordKindTransaction,
		SourceAccountNumber:      source,
		Amount:                   &amount,
		Payee:                    payee,
		Date:                     &d,
		TransactionType:          "EFTPOS",
		DestinationAccountNumber: destination,
	}
}
