package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"jichul/internal/core"
)

// Column labels of the row-oriented files. The expense labels are also the
// upload format accepted by the importer.
const (
	ColMerchant      = "학원"
	ColAmount        = "금액"
	ColApprovalDate  = "승인 날짜"
	ColPaymentMethod = "거래처"
	ColPaymentCycle  = "결제 주기"

	ColPayeeID       = "ID"
	ColPayeeName     = "거래처명"
	ColBankName      = "은행명"
	ColAccountNumber = "계좌번호"
	ColOwnerName     = "예금주"
)

var (
	ExpenseHeader = []string{ColMerchant, ColAmount, ColApprovalDate, ColPaymentMethod, ColPaymentCycle}
	PayeeHeader   = []string{ColPayeeID, ColPayeeName, ColBankName, ColAccountNumber, ColOwnerName, ColPaymentCycle, ColAmount}

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	ErrMissingColumns = errors.New("missing required columns")
)

// ExpenseRow is one raw data row of an expense table. Line is the 1-based
// record number counting the header as 1.
type ExpenseRow struct {
	Line          int
	Merchant      string
	Amount        string
	ApprovalDate  string
	PaymentMethod string
	PaymentCycle  string
}

// PayeeRow is one raw data row of the payee table.
type PayeeRow struct {
	Line          int
	ID            string
	Name          string
	BankName      string
	AccountNumber string
	OwnerName     string
	PaymentCycle  string
	Amount        string
}

// StripBOM removes a leading UTF-8 byte order mark.
func StripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, utf8BOM)
}

// table is a header-addressed view over csv records.
type table struct {
	index   map[string]int
	records [][]string
}

func readTable(r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &table{index: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &table{index: make(map[string]int, len(header))}
	for i, h := range header {
		h = core.CleanText(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	var missing []string
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(t.records)+2, err)
		}
		t.records = append(t.records, rec)
	}
	return t, nil
}

func (t *table) get(rec []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ReadExpenseRows parses an expense table. Input without any header yields no
// rows; a header lacking the merchant or date column is an error.
func ReadExpenseRows(r io.Reader) ([]ExpenseRow, error) {
	t, err := readTable(r, ColMerchant, ColApprovalDate)
	if err != nil {
		return nil, err
	}
	rows := make([]ExpenseRow, 0, len(t.records))
	for i, rec := range t.records {
		rows = append(rows, ExpenseRow{
			Line:          i + 2,
			Merchant:      core.CleanText(t.get(rec, ColMerchant)),
			Amount:        t.get(rec, ColAmount),
			ApprovalDate:  t.get(rec, ColApprovalDate),
			PaymentMethod: core.CleanText(t.get(rec, ColPaymentMethod)),
			PaymentCycle:  t.get(rec, ColPaymentCycle),
		})
	}
	return rows, nil
}

// ReadPayeeRows parses the payee table.
func ReadPayeeRows(r io.Reader) ([]PayeeRow, error) {
	t, err := readTable(r, ColPayeeName, ColOwnerName)
	if err != nil {
		return nil, err
	}
	rows := make([]PayeeRow, 0, len(t.records))
	for i, rec := range t.records {
		rows = append(rows, PayeeRow{
			Line:          i + 2,
			ID:            t.get(rec, ColPayeeID),
			Name:          core.CleanText(t.get(rec, ColPayeeName)),
			BankName:      core.CleanText(t.get(rec, ColBankName)),
			AccountNumber: t.get(rec, ColAccountNumber),
			OwnerName:     core.CleanText(t.get(rec, ColOwnerName)),
			PaymentCycle:  t.get(rec, ColPaymentCycle),
			Amount:        t.get(rec, ColAmount),
		})
	}
	return rows, nil
}

// ExpenseRecords renders expenses as table rows, header first, sorted by
// approval date ascending.
func ExpenseRecords(expenses []core.Expense) [][]string {
	sorted := make([]core.Expense, len(expenses))
	copy(sorted, expenses)
	core.SortByApprovalDate(sorted)

	out := make([][]string, 0, len(sorted)+1)
	out = append(out, ExpenseHeader)
	for _, e := range sorted {
		out = append(out, []string{
			e.Merchant,
			core.FormatAmount(e.Amount),
			core.FormatShortDate(e.ApprovalDate),
			e.PaymentMethod,
			string(e.PaymentCycle),
		})
	}
	return out
}

// PayeeRecords renders payees as table rows, header first, sorted by name.
// A zero amount is written as an empty cell.
func PayeeRecords(payees []core.Payee) [][]string {
	sorted := make([]core.Payee, len(payees))
	copy(sorted, payees)
	core.SortPayeesByName(sorted)

	out := make([][]string, 0, len(sorted)+1)
	out = append(out, PayeeHeader)
	for _, p := range sorted {
		amount := ""
		if !p.Amount.IsZero() {
			amount = core.FormatAmount(p.Amount)
		}
		out = append(out, []string{
			fmt.Sprint(p.ID),
			p.Name,
			p.BankName,
			p.AccountNumber,
			p.OwnerName,
			string(p.PaymentCycle),
			amount,
		})
	}
	return out
}

// WriteTable writes records as UTF-8 CSV with a BOM and CRLF line endings,
// the dialect spreadsheet programs open without an import dialog.
func WriteTable(w io.Writer, records [][]string) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ExportExpenses writes expenses to path in the same layout as the expenses
// CSV, replacing any existing file.
func ExportExpenses(path string, expenses []core.Expense) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return WriteTable(w, ExpenseRecords(expenses))
	})
}
