package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"jichul/internal/core"
)

const (
	ExpensesCSVFileName = "expenses_data.csv"
	PayeesCSVFileName   = "payees_data.csv"
)

// CSVBackend is the row-oriented pair of files. It is authoritative for
// expenses, but cannot represent expense ids or timestamps, so on load it
// recovers them from the JSON cache by content key.
type CSVBackend struct {
	expensesPath string
	payeesPath   string
	cache        *JSONBackend
}

// NewCSVBackend builds the backend. cache may be nil, in which case every row
// receives a fresh id on load.
func NewCSVBackend(expensesPath, payeesPath string, cache *JSONBackend) *CSVBackend {
	return &CSVBackend{
		expensesPath: expensesPath,
		payeesPath:   payeesPath,
		cache:        cache,
	}
}

func (b *CSVBackend) Name() string { return "csv" }

func (b *CSVBackend) Load(ctx context.Context) (*core.Snapshot, error) {
	raw, err := os.ReadFile(b.expensesPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, unavailable(b.Name(), fmt.Errorf("%s does not exist", b.expensesPath))
		}
		return nil, unavailable(b.Name(), err)
	}
	raw = StripBOM(raw)
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, unavailable(b.Name(), fmt.Errorf("%s is empty", b.expensesPath))
	}
	rows, err := ReadExpenseRows(bytes.NewReader(raw))
	if err != nil {
		return nil, unavailable(b.Name(), err)
	}

	var hints *core.Snapshot
	if b.cache != nil {
		// A missing or corrupt cache only costs the ids.
		hints, _ = b.cache.read()
	}
	if hints == nil {
		hints = core.NewSnapshot()
	}

	s := core.NewSnapshot()
	s.NextExpenseID = hints.NextExpenseID
	s.Expenses = recoverExpenses(rows, hints, &s.NextExpenseID)

	payees, err := b.loadPayees(hints, &s.NextPayeeID)
	if err != nil {
		return nil, unavailable(b.Name(), err)
	}
	if len(payees) == 0 && len(hints.Payees) > 0 {
		payees = hints.Payees
	}
	s.Payees = payees
	s.Normalize()
	return s, nil
}

func recoverExpenses(rows []ExpenseRow, hints *core.Snapshot, next *int64) []core.Expense {
	byKey := make(map[core.ExpenseKey][]core.Expense)
	for _, e := range hints.Expenses {
		k := core.KeyOfExpense(e)
		byKey[k] = append(byKey[k], e)
	}

	now := core.Now()
	used := make(map[int64]bool)
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		if row.Merchant == "" || row.ApprovalDate == "" {
			continue
		}
		e := core.Expense{
			Merchant:      row.Merchant,
			Amount:        core.ParseAmount(row.Amount),
			ApprovalDate:  core.ParseDate(row.ApprovalDate),
			PaymentMethod: row.PaymentMethod,
			PaymentCycle:  core.Cycle(row.PaymentCycle),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		k := core.KeyOfExpense(e)
		// Identical rows each take the next unused cached record.
		for len(byKey[k]) > 0 && e.ID == 0 {
			cand := byKey[k][0]
			byKey[k] = byKey[k][1:]
			if used[cand.ID] || cand.ID < 1 {
				continue
			}
			e.ID = cand.ID
			e.CreatedAt = cand.CreatedAt
			e.UpdatedAt = cand.UpdatedAt
		}
		if e.ID == 0 {
			for used[*next] {
				*next++
			}
			e.ID = *next
		}
		used[e.ID] = true
		if e.ID >= *next {
			*next = e.ID + 1
		}
		out = append(out, e)
	}
	return out
}

func (b *CSVBackend) loadPayees(hints *core.Snapshot, next *int64) ([]core.Payee, error) {
	raw, err := os.ReadFile(b.payeesPath)
	if errors.Is(err, fs.ErrNotExist) {
		*next = hints.NextPayeeID
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.payeesPath, err)
	}
	rows, err := ReadPayeeRows(bytes.NewReader(StripBOM(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.payeesPath, err)
	}

	byKey := make(map[core.PayeeKey]core.Payee)
	byID := make(map[int64]core.Payee)
	for _, p := range hints.Payees {
		byKey[core.KeyOfPayee(p)] = p
		byID[p.ID] = p
	}

	*next = hints.NextPayeeID
	now := core.Now()
	used := make(map[int64]bool)
	out := make([]core.Payee, 0, len(rows))
	for _, row := range rows {
		if row.Name == "" || row.OwnerName == "" {
			continue
		}
		p := core.Payee{
			Name:          row.Name,
			BankName:      row.BankName,
			AccountNumber: row.AccountNumber,
			OwnerName:     row.OwnerName,
			PaymentCycle:  core.Cycle(row.PaymentCycle),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if row.Amount != "" {
			p.Amount = core.ParseAmount(row.Amount)
		}

		if id, err := strconv.ParseInt(row.ID, 10, 64); err == nil && id > 0 && !used[id] {
			p.ID = id
		} else if cached, ok := byKey[core.KeyOfPayee(p)]; ok && cached.ID > 0 && !used[cached.ID] {
			p.ID = cached.ID
		}
		if cached, ok := byID[p.ID]; ok && p.ID > 0 {
			p.CreatedAt = cached.CreatedAt
			p.UpdatedAt = cached.UpdatedAt
		}
		if p.ID == 0 {
			for used[*next] {
				*next++
			}
			p.ID = *next
		}
		used[p.ID] = true
		if p.ID >= *next {
			*next = p.ID + 1
		}
		out = append(out, p)
	}
	return out, nil
}

func (b *CSVBackend) Save(ctx context.Context, s *core.Snapshot) error {
	if err := writeFileAtomic(b.expensesPath, func(w io.Writer) error {
		return WriteTable(w, ExpenseRecords(s.Expenses))
	}); err != nil {
		return fmt.Errorf("save %s: %w", b.expensesPath, err)
	}
	if err := writeFileAtomic(b.payeesPath, func(w io.Writer) error {
		return WriteTable(w, PayeeRecords(s.Payees))
	}); err != nil {
		return fmt.Errorf("save %s: %w", b.payeesPath, err)
	}
	return nil
}
