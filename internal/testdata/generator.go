// Package testdata builds export-format fixture files for tests.
package testdata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Line describes one export row worth of interesting fields; the remaining
// positional fields are filled with blanks.
type Line struct {
	RecordType  int
	Source      string
	Amount      string
	Particulars string
	Code        string
	Reference   string
	Payee       string
	Date        string // DD/MM/YY
	Type        string
	Destination string
}

// Render produces one 15-field export row.
func (l Line) Render() string {
	fields := []string{
		fmt.Sprintf("%d", l.RecordType),
		"1", // internal_reference
		l.Source,
		l.Amount,
		"0", // unknown
		"0", // transaction_reference
		l.Particulars,
		l.Code,
		l.Reference,
		l.Payee,
		l.Date,
		"", // optional
		l.Type,
		"0", // misc_field
		l.Destination,
	}
	return strings.Join(fields, ",")
}

// ExportFile renders lines into a content string.
func ExportFile(lines ...Line) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Render())
	}
	return strings.Join(out, "\n") + "\n"
}

// WriteExportFile writes a fixture export file into dir and returns its path.
func WriteExportFile(dir, name string, lines ...Line) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(ExportFile(lines...)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// OpeningRecord is a ready-made account-opening line.
func OpeningRecord(accountNumber, name, openingBalance string) Line {
	return Line{RecordType: 5, Source: accountNumber, Payee: name, Amount: openingBalance}
}

// TransactionRecord is a ready-made transaction line.
func TransactionRecord(source, amount, payee, date, destination string) Line {
	return Line{
		RecordType:  3,
		Source:      source,
		Amount:      amount,
		Payee:       payee,
		Date:        date,
		Type:        "EFTPOS",
		Destination: destination,
	}
}
