package repository

import "time"

// Record kinds found in bank export files. Other kinds are parsed into
// staging but never survive payee resolution.
const (
	RecordKindAccountOpening = 5
	RecordKindTransaction    = 3
)

// StagedRecord is one parsed line from an export file, awaiting
// reconciliation into an account, payee or ledger transaction.
type StagedRecord struct {
	ID                       int64
	RecordType               int
	InternalReference        int
	SourceAccountNumber      string
	Amount                   *float64 // nil when the field was blank; stored as 0
	Unknown                  int
	TransactionReference     int
	Particulars              string
	Code                     string
	Reference                string
	Payee                    string
	Date                     *time.Time
	Optional                 string
	TransactionType          string
	MiscField                int
	DestinationAccountNumber string
	ConsecutiveDuplicates    int
}

// StagedReviewRow is a staged row joined with its account name for
// operator review of unresolved imports.
type StagedReviewRow struct {
	ID                    int64
	AccountName           string
	Date                  *time.Time
	Amount                float64
	Payee                 string
	Particulars           string
	Code                  string
	Reference             string
	ConsecutiveDuplicates int
}

// Account is a ledger account discovered from account-opening records.
type Account struct {
	ID             int64
	AccountNumber  string
	AccountName    string
	OpeningBalance float64
}

// AccountSummary is the derived per-account view: opening balance plus the
// sum of all ledger transactions, rounded to 2 decimal places.
type AccountSummary struct {
	ID             int64
	AccountName    string
	AccountNumber  string
	OpeningBalance float64
	Balance        float64
}

// Payee is a counterparty keyed by destination account number.
type Payee struct {
	ID            int64
	AccountNumber string
	AccountName   string
}

// Transaction is an immutable ledger entry. Identity for deduplication is
// the full field tuple; the row id never participates.
type Transaction struct {
	ID                       int64
	AccountNumber            string
	Date                     time.Time
	Amount                   float64
	Particulars              string
	Code                     string
	Reference                string
	Payee                    string
	TransactionType          string
	DestinationAccountNumber string
}

// Category is a simple label; subcategories belong to exactly one category.
type Category struct {
	ID   int64
	Name string
}

type Subcategory struct {
	ID         int64
	CategoryID int64
	Name       string
}

// Rule is a named predicate over ledger transactions with categorisation
// actions applied to matches.
type Rule struct {
	ID          int64
	Name        string
	Description string
	Conditions  []RuleCondition
	Actions     []RuleAction
}

// RuleCondition is one field comparison. OrPrev joins it to the previous
// condition with OR instead of AND; the first condition's flag is ignored.
type RuleCondition struct {
	ID       int64
	RuleID   int64
	Position int
	Field    string
	Operator string
	Value    string
	OrPrev   bool
}

type RuleAction struct {
	ID            int64
	RuleID        int64
	CategoryID    int64
	SubcategoryID *int64
}

// ImportRun records one processed export file.
type ImportRun struct {
	ID           string
	Filename     string
	RowsInserted int
	RowsSkipped  int
	Status       string
	Error        string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Import run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)
