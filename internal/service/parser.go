package service

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/oldrooster/simple-budget/internal/database/repository"
)

// Export files carry 15 fixed positional fields, no header row.
const exportFieldCount = 15

const exportDateLayout = "02/01/06"

// ParseRecords parses one export file into staged records. A row whose
// fields fail type conversion is logged and skipped; the rest of the file
// keeps processing. Returns the parsed rows and the number skipped.
func ParseRecords(r io.Reader, log zerolog.Logger) ([]repository.StagedRecord, int) {
	csvr := csv.NewReader(bufio.NewReader(r))
	csvr.FieldsPerRecord = -1

	var out []repository.StagedRecord
	skipped := 0
	line := 0
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Error().Int("line", line).Err(err).Msg("read export row")
			skipped++
			continue
		}
		if len(rec) < exportFieldCount {
			log.Error().Int("line", line).Int("fields", len(rec)).Msg("short export row")
			skipped++
			continue
		}
		staged, err := convertRow(rec)
		if err != nil {
			log.Error().Int("line", line).Err(err).Msg("data type conversion error")
			skipped++
			continue
		}
		out = append(out, staged)
	}
	return out, skipped
}

// convertRow applies the per-field type conversions. Blank integer fields
// default to 0; a blank amount stays nil until insert; a blank date stays nil.
func convertRow(rec []string) (repository.StagedRecord, error) {
	recordType, err := blankInt(rec[0], "record_type")
	if err != nil {
		return repository.StagedRecord{}, err
	}
	internalRef, err := blankInt(rec[1], "internal_reference")
	if err != nil {
		return repository.StagedRecord{}, err
	}
	unknown, err := blankInt(rec[4], "unknown")
	if err != nil {
		return repository.StagedRecord{}, err
	}
	transactionRef, err := blankInt(rec[5], "transaction_reference")
	if err != nil {
		return repository.StagedRecord{}, err
	}
	miscField, err := blankInt(rec[13], "misc_field")
	if err != nil {
		return repository.StagedRecord{}, err
	}

	var amount *float64
	if strings.TrimSpace(rec[3]) != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
		if err != nil {
			return repository.StagedRecord{}, fmt.Errorf("amount %q: %w", rec[3], err)
		}
		amount = &v
	}

	var date *time.Time
	if strings.TrimSpace(rec[10]) != "" {
		t, err := time.Parse(exportDateLayout, strings.TrimSpace(rec[10]))
		if err != nil {
			return repository.StagedRecord{}, fmt.Errorf("date %q: %w", rec[10], err)
		}
		date = &t
	}

	return repository.StagedRecord{
		RecordType:               recordType,
		InternalReference:        internalRef,
		SourceAccountNumber:      rec[2],
		Amount:                   amount,
		Unknown:                  unknown,
		TransactionReference:     transactionRef,
		Particulars:              rec[6],
		Code:                     rec[7],
		Reference:                rec[8],
		Payee:                    rec[9],
		Date:                     date,
		Optional:                 rec[11],
		TransactionType:          rec[12],
		MiscField:                miscField,
		DestinationAccountNumber: rec[14],
	}, nil
}

func blankInt(s, field string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, s, err)
	}
	return v, nil
}
