package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"

	"jichul/internal/amqp"
	"jichul/internal/core"
	"jichul/internal/log"
	"jichul/internal/storage"
)

// ErrImportFailed marks an upload that could not be read at all. Nothing is
// imported when it is returned.
var ErrImportFailed = errors.New("import failed")

// ImportResult reports how many rows were added and which rows were rejected.
type ImportResult struct {
	Inserted int      `json:"inserted"`
	Errors   []string `json:"errors"`
}

// decodeUpload returns raw as UTF-8 text without a BOM. Input that is not
// valid UTF-8 is read as EUC-KR, the encoding of most card statement exports.
func decodeUpload(raw []byte) ([]byte, error) {
	raw = storage.StripBOM(raw)
	if utf8.Valid(raw) {
		return raw, nil
	}
	decoded, err := korean.EUCKR.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode upload: %w", err)
	}
	if !utf8.Valid(decoded) {
		return nil, errors.New("decode upload: not UTF-8 or EUC-KR text")
	}
	return decoded, nil
}

// ImportBatch merges the expense rows of a CSV upload into the store in one
// load and one save.
//
// Rows without a merchant or date are skipped. A date that does not parse to
// a calendar date is reported as a row error. A row equal to an existing
// expense, or to one inserted earlier in the same batch, on (merchant,
// amount, approval_date) is skipped silently, so importing a file twice adds
// nothing the second time.
func (l *Ledger) ImportBatch(ctx context.Context, raw []byte) (ImportResult, error) {
	text, err := decodeUpload(raw)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrImportFailed, err)
	}
	rows, err := storage.ReadExpenseRows(bytes.NewReader(text))
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrImportFailed, err)
	}

	result := ImportResult{Errors: []string{}}
	err = l.store.Update(ctx, func(s *core.Snapshot) error {
		seen := make(map[core.ExpenseKey]bool, len(s.Expenses)+len(rows))
		for _, e := range s.Expenses {
			seen[core.KeyOfExpense(e)] = true
		}

		now := core.Now()
		for _, row := range rows {
			if row.Merchant == "" || row.ApprovalDate == "" {
				continue
			}
			date := core.CanonicalDate(row.ApprovalDate)
			if !core.IsISODate(date) {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%d행: 날짜 형식 오류 (%s)", row.Line, row.ApprovalDate))
				continue
			}
			e := core.Expense{
				Merchant:      row.Merchant,
				Amount:        core.ParseAmount(row.Amount),
				ApprovalDate:  date,
				PaymentMethod: row.PaymentMethod,
				PaymentCycle:  core.Cycle(row.PaymentCycle),
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			key := core.KeyOfExpense(e)
			if seen[key] {
				continue
			}
			seen[key] = true
			s.AddExpense(e)
			result.Inserted++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("import batch: %w", err)
	}

	l.logger.InfoContext(ctx, "CSV import finished",
		log.NewFields().
			WithOperation(log.OpImport).
			With(log.FieldInserted, result.Inserted).
			With(log.FieldRowErrors, len(result.Errors)).
			ToSlice()...)
	if result.Inserted > 0 {
		l.notify(ctx, amqp.EntityExpense, amqp.OpImported, 0)
	}
	return result, nil
}
