// Domain types for expenses, payees and the snapshot that holds them, plus
// the validation and not-found errors the services return.

package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	CycleMonthly    Cycle = "1M"
	CycleQuarterly  Cycle = "3M"
	CycleSemiannual Cycle = "6M"
	CycleYearly     Cycle = "1Y"
)

// TimestampLayout is the on-disk layout of created_at/updated_at.
const TimestampLayout = "2006-01-02 15:04:05"

type (
	// Cycle is a payment cycle code. Values outside the known set are kept
	// verbatim and simply never projected.
	Cycle string

	// Timestamp is a wall-clock time persisted as "2006-01-02 15:04:05".
	Timestamp struct {
		time.Time
	}

	Expense struct {
		ID            int64     `json:"id"`
		Merchant      string    `json:"merchant"`
		Amount        Money     `json:"amount"`
		ApprovalDate  string    `json:"approval_date"` // YYYY-MM-DD when well formed
		PaymentMethod string    `json:"payment_method"`
		PaymentCycle  Cycle     `json:"payment_cycle"`
		CreatedAt     Timestamp `json:"created_at"`
		UpdatedAt     Timestamp `json:"updated_at"`
	}

	Payee struct {
		ID            int64     `json:"id"`
		Name          string    `json:"name"`
		BankName      string    `json:"bank_name"`
		AccountNumber string    `json:"account_number"`
		OwnerName     string    `json:"owner_name"`
		PaymentCycle  Cycle     `json:"payment_cycle"`
		Amount        Money     `json:"amount"`
		CreatedAt     Timestamp `json:"created_at"`
		UpdatedAt     Timestamp `json:"updated_at"`
	}

	// Snapshot is the unit of persistence: every backend stores and returns
	// the whole thing.
	Snapshot struct {
		Expenses      []Expense `json:"expenses"`
		Payees        []Payee   `json:"payees"`
		NextExpenseID int64     `json:"next_expense_id"`
		NextPayeeID   int64     `json:"next_payee_id"`
	}
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrBackendUnavailable = errors.New("backend unavailable")

	ErrMissingMerchant      = errors.New("merchant is required")
	ErrMissingApprovalDate  = errors.New("approval date is required")
	ErrMissingPaymentMethod = errors.New("payment method is required")
	ErrMissingPaymentCycle  = errors.New("payment cycle is required")
	ErrMissingPayeeName     = errors.New("payee name is required")
	ErrMissingOwnerName     = errors.New("owner name is required")
)

// ValidationError reports a blank required field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// NotFoundError reports a reference to an id that is not in the snapshot.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (c Cycle) String() string { return string(c) }

// IsKnown reports whether c has a registered projection.
func (c Cycle) IsKnown() bool {
	_, ok := lookupCycle(c)
	return ok
}

// Now returns the current time truncated to seconds, the resolution of the
// persisted layout.
func Now() Timestamp {
	return Timestamp{Time: time.Now().Truncate(time.Second)}
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimestamp accepts the persisted layout and RFC 3339.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	if v, err := time.ParseInLocation(TimestampLayout, s, time.Local); err == nil {
		return Timestamp{Time: v}, nil
	}
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return Timestamp{Time: v}, nil
}

// Validate checks the required expense fields after normalization.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.Merchant) == "" {
		return &ValidationError{Field: "merchant", Err: ErrMissingMerchant}
	}
	if strings.TrimSpace(e.ApprovalDate) == "" {
		return &ValidationError{Field: "approval_date", Err: ErrMissingApprovalDate}
	}
	if strings.TrimSpace(e.PaymentMethod) == "" {
		return &ValidationError{Field: "payment_method", Err: ErrMissingPaymentMethod}
	}
	if strings.TrimSpace(string(e.PaymentCycle)) == "" {
		return &ValidationError{Field: "payment_cycle", Err: ErrMissingPaymentCycle}
	}
	return nil
}

func (p Payee) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Err: ErrMissingPayeeName}
	}
	if strings.TrimSpace(p.OwnerName) == "" {
		return &ValidationError{Field: "owner_name", Err: ErrMissingOwnerName}
	}
	if strings.TrimSpace(string(p.PaymentCycle)) == "" {
		return &ValidationError{Field: "payment_cycle", Err: ErrMissingPaymentCycle}
	}
	return nil
}

// NewSnapshot returns an empty snapshot with both id counters at 1.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Expenses:      []Expense{},
		Payees:        []Payee{},
		NextExpenseID: 1,
		NextPayeeID:   1,
	}
}

// Normalize repairs the id counters so they are strictly greater than every
// existing id, and replaces nil slices with empty ones.
func (s *Snapshot) Normalize() {
	if s.Expenses == nil {
		s.Expenses = []Expense{}
	}
	if s.Payees == nil {
		s.Payees = []Payee{}
	}
	if s.NextExpenseID < 1 {
		s.NextExpenseID = 1
	}
	if s.NextPayeeID < 1 {
		s.NextPayeeID = 1
	}
	for _, e := range s.Expenses {
		if e.ID >= s.NextExpenseID {
			s.NextExpenseID = e.ID + 1
		}
	}
	for _, p := range s.Payees {
		if p.ID >= s.NextPayeeID {
			s.NextPayeeID = p.ID + 1
		}
	}
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Expenses:      make([]Expense, len(s.Expenses)),
		Payees:        make([]Payee, len(s.Payees)),
		NextExpenseID: s.NextExpenseID,
		NextPayeeID:   s.NextPayeeID,
	}
	copy(out.Expenses, s.Expenses)
	copy(out.Payees, s.Payees)
	return out
}

// AddExpense assigns the next id to e, appends it and advances the counter.
func (s *Snapshot) AddExpense(e Expense) Expense {
	e.ID = s.NextExpenseID
	s.NextExpenseID++
	s.Expenses = append(s.Expenses, e)
	return e
}

// AddPayee assigns the next id to p, appends it and advances the counter.
func (s *Snapshot) AddPayee(p Payee) Payee {
	p.ID = s.NextPayeeID
	s.NextPayeeID++
	s.Payees = append(s.Payees, p)
	return p
}

func (s *Snapshot) FindExpense(id int64) (int, bool) {
	for i := range s.Expenses {
		if s.Expenses[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *Snapshot) FindPayee(id int64) (int, bool) {
	for i := range s.Payees {
		if s.Payees[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// RemoveExpense filters out the expense with the given id. It reports whether
// anything was removed.
func (s *Snapshot) RemoveExpense(id int64) bool {
	kept := s.Expenses[:0]
	removed := false
	for _, e := range s.Expenses {
		if e.ID == id {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	s.Expenses = kept
	return removed
}

func (s *Snapshot) RemovePayee(id int64) bool {
	kept := s.Payees[:0]
	removed := false
	for _, p := range s.Payees {
		if p.ID == id {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	s.Payees = kept
	return removed
}
