// Package core holds the ledger domain: expenses, payees, money and dates.
//
// This file contains the lenient amount parser used for form input, CSV
// uploads and the row-oriented store, plus the thousands-separated format the
// row-oriented store writes back.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is a non-negative decimal amount. It marshals to a bare JSON number.
type Money struct {
	decimal.Decimal
}

var amountPrinter = message.NewPrinter(language.English)

// NewMoney returns an integral amount.
func NewMoney(v int64) Money {
	return Money{Decimal: decimal.NewFromInt(v)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

// Equal compares numerically, so 1000 and 1000.0 are the same amount.
func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

// Key is the canonical string form used in composite lookup keys.
func (m Money) Key() string {
	return m.Decimal.String()
}

// ParseAmount converts loosely formatted input to an amount.
//
// It accepts numbers and strings. Thousands separators, whitespace and a
// trailing "원" are stripped. Empty, nil, negative or unparseable input yields
// zero; the function never fails.
//
// Examples:
//
//	ParseAmount("1,234,000원") -> 1234000
//	ParseAmount(" 12 000 ")    -> 12000
//	ParseAmount("abc")         -> 0
func ParseAmount(input any) Money {
	var d decimal.Decimal
	switch v := input.(type) {
	case nil:
		return Money{}
	case Money:
		d = v.Decimal
	case decimal.Decimal:
		d = v
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	case float64:
		d = decimal.NewFromFloat(v)
	case string:
		parsed, ok := parseAmountString(v)
		if !ok {
			return Money{}
		}
		d = parsed
	default:
		parsed, ok := parseAmountString(fmt.Sprint(v))
		if !ok {
			return Money{}
		}
		d = parsed
	}
	if d.IsNegative() {
		return Money{}
	}
	return Money{Decimal: d}
}

func parseAmountString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "원")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '\t', '\u00a0':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// FormatAmount renders m with thousands separators. A non-zero fraction is
// kept so the value survives a write/read cycle through the row file.
func FormatAmount(m Money) string {
	whole := m.Decimal.Truncate(0)
	out := amountPrinter.Sprintf("%d", whole.IntPart())
	frac := m.Decimal.Sub(whole)
	if frac.IsZero() {
		return out
	}
	digits := strings.TrimPrefix(frac.String(), "0")
	return out + digits
}
