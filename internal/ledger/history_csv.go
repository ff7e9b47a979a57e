package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/stellarpay-dev/stellarpay/internal/model"
)

// HistoryHeader is the CSV header written by WriteHistory.
const HistoryHeader = "hash,created_at,successful,ledger"

const (
	numHistoryFields = 4
	colHash          = 0
	colCreatedAt     = 1
	colSuccessful    = 2
	colLedger        = 3
)

// MarshalRecord converts a TransactionRecord to a CSV row.
func MarshalRecord(r model.TransactionRecord) []string {
	row := make([]string, numHistoryFields)
	row[colHash] = r.Hash
	row[colCreatedAt] = r.CreatedAt.UTC().Format(time.RFC3339)
	row[colSuccessful] = strconv.FormatBool(r.Successful)
	row[colLedger] = strconv.FormatInt(int64(r.Ledger), 10)
	return row
}

// UnmarshalRecord converts a CSV row to a TransactionRecord.
func UnmarshalRecord(row []string) (model.TransactionRecord, error) {
	if len(row) != numHistoryFields {
		return model.TransactionRecord{}, fmt.Errorf("expected %d fields, got %d", numHistoryFields, len(row))
	}

	createdAt, err := time.Parse(time.RFC3339, row[colCreatedAt])
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing created_at %q: %w", row[colCreatedAt], err)
	}
	ok, err := strconv.ParseBool(row[colSuccessful])
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing successful %q: %w", row[colSuccessful], err)
	}
	ledgerSeq, err := strconv.ParseInt(row[colLedger], 10, 32)
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing ledger %q: %w", row[colLedger], err)
	}

	return model.TransactionRecord{
		Hash:       row[colHash],
		CreatedAt:  createdAt,
		Successful: ok,
		Ledger:     int32(ledgerSeq),
	}, nil
}

// WriteHistory writes records with a header row.
func WriteHistory(w io.Writer, records []model.TransactionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(HistoryHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(MarshalRecord(r)); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadHistory parses rows written by WriteHistory.
func ReadHistory(r io.Reader) ([]model.TransactionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numHistoryFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading history CSV: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	var records []model.TransactionRecord
	for i, row := range rows[1:] {
		rec, err := UnmarshalRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
