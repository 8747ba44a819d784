package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"25/5/28", "2025-05-28"},
		{"25/05/28", "2025-05-28"},
		{"2024/12/01", "2024-12-01"},
		{" 24/1/9 ", "2024-01-09"},
		{"not-a-date", "not-a-date"},
		{"2025-05-28", "2025-05-28"},
		{"25/05", "25/05"},
		{"aa/bb/cc", "aa/bb/cc"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ParseDate(tc.in); got != tc.out {
			t.Fatalf("ParseDate(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestIsISODate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-05-28", true},
		{"2024-02-29", true},
		{"2025-02-29", false},
		{"2025-13-01", false},
		{"25/05/28", false},
		{"2025-5-28", false},
	}
	for _, tc := range cases {
		if got := IsISODate(tc.in); got != tc.ok {
			t.Fatalf("IsISODate(%q) = %v, want %v", tc.in, got, tc.ok)
		}
	}
}

func TestFormatShortDate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2025-05-28", "25/05/28"},
		{"2099-12-31", "99/12/31"},
		{"1999-12-31", "1999/12/31"},
		{"2100-01-01", "2100/01/01"},
		{"0099-01-01", "0099-01-01"},
		{"2025-5-8", "2025-5-8"},
		{"someday", "someday"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := FormatShortDate(tc.in); got != tc.want {
			t.Errorf("FormatShortDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if got := ParseDate(FormatShortDate(tc.in)); got != tc.in {
			t.Errorf("ParseDate(FormatShortDate(%q)) = %q, want the input back", tc.in, got)
		}
	}
}

func TestCanonicalDate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2025-5-8", "2025-05-08"},
		{" 2025-05-08 ", "2025-05-08"},
		{"1999/12/31", "1999-12-31"},
		{"25/5/28", "2025-05-28"},
		{"2025-2-30", "2025-2-30"},
		{"not-a-date", "not-a-date"},
		{"5월 쯤", "5월 쯤"},
	}
	for _, tc := range cases {
		if got := CanonicalDate(tc.in); got != tc.want {
			t.Errorf("CanonicalDate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(2025, 12)
	if start != "2025-12-01" || end != "2026-01-01" {
		t.Fatalf("got [%s, %s)", start, end)
	}
	start, end = MonthBounds(2025, 2)
	if start != "2025-02-01" || end != "2025-03-01" {
		t.Fatalf("got [%s, %s)", start, end)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{Merchant: "농구", ApprovalDate: "2025-05-28", PaymentMethod: "카드", PaymentCycle: CycleMonthly}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		field string
		e     Expense
	}{
		{"merchant", Expense{Merchant: " ", ApprovalDate: "2025-05-28", PaymentMethod: "카드", PaymentCycle: "1M"}},
		{"approval_date", Expense{Merchant: "a", PaymentMethod: "카드", PaymentCycle: "1M"}},
		{"payment_method", Expense{Merchant: "a", ApprovalDate: "2025-05-28", PaymentCycle: "1M"}},
		{"payment_cycle", Expense{Merchant: "a", ApprovalDate: "2025-05-28", PaymentMethod: "카드"}},
	}
	for _, tc := range bads {
		err := tc.e.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field {
			t.Fatalf("expected validation error on %s, got %v", tc.field, err)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation in chain for %s", tc.field)
		}
	}
}

func TestPayeeValidate(t *testing.T) {
	if err := (Payee{Name: "세차", OwnerName: "김", PaymentCycle: "1M"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Payee{Name: "세차", PaymentCycle: "1M"}).Validate(); !errors.Is(err, ErrMissingOwnerName) {
		t.Fatalf("expected missing owner, got %v", err)
	}
}

func TestNotFoundError(t *testing.T) {
	err := error(&NotFoundError{Kind: "expense", ID: 4})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound in chain")
	}
}

func TestSnapshotIDs(t *testing.T) {
	s := NewSnapshot()
	a := s.AddExpense(Expense{Merchant: "a"})
	b := s.AddExpense(Expense{Merchant: "b"})
	if a.ID != 1 || b.ID != 2 || s.NextExpenseID != 3 {
		t.Fatalf("unexpected ids %d %d next %d", a.ID, b.ID, s.NextExpenseID)
	}
	if !s.RemoveExpense(2) {
		t.Fatalf("expected removal")
	}
	if s.RemoveExpense(99) {
		t.Fatalf("removing a missing id must report false")
	}
	c := s.AddExpense(Expense{Merchant: "c"})
	if c.ID != 3 {
		t.Fatalf("ids must not be reused, got %d", c.ID)
	}
}

func TestSnapshotNormalize(t *testing.T) {
	s := &Snapshot{
		Expenses:      []Expense{{ID: 10}},
		Payees:        []Payee{{ID: 3}},
		NextExpenseID: 2,
	}
	s.Normalize()
	if s.NextExpenseID != 11 || s.NextPayeeID != 4 {
		t.Fatalf("got next ids %d/%d", s.NextExpenseID, s.NextPayeeID)
	}
}

func TestTimestampJSON(t *testing.T) {
	ts := Timestamp{Time: time.Date(2025, 5, 28, 9, 30, 0, 0, time.Local)}
	b, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-05-28 09:30:00"` {
		t.Fatalf("got %s", b)
	}
	var back Timestamp
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(ts.Time) {
		t.Fatalf("got %v want %v", back, ts)
	}
	var empty Timestamp
	if err := json.Unmarshal([]byte(`""`), &empty); err != nil || !empty.IsZero() {
		t.Fatalf("empty timestamp: %v %v", empty, err)
	}
}

func TestCleanText(t *testing.T) {
	decomposed := "\u1100\u1161" // 가 as conjoining jamo
	if CleanText(" "+decomposed+" ") != "\uac00" {
		t.Fatalf("expected NFC composition")
	}
}
