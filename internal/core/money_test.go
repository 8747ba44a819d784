package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  any
		out string
	}{
		{"1,234,000원", "1234000"},
		{"1,234,000 원", "1234000"},
		{" 180000 ", "180000"},
		{"12 000", "12000"},
		{"1500.5", "1500.5"},
		{"", "0"},
		{nil, "0"},
		{"abc", "0"},
		{"-500", "0"},
		{180000.0, "180000"},
		{42, "42"},
		{int64(7), "7"},
		{decimal.NewFromInt(9), "9"},
	}
	for _, tc := range cases {
		got := ParseAmount(tc.in)
		if got.String() != tc.out {
			t.Fatalf("ParseAmount(%#v) = %s, want %s", tc.in, got.String(), tc.out)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in  Money
		out string
	}{
		{NewMoney(0), "0"},
		{NewMoney(999), "999"},
		{NewMoney(1234000), "1,234,000"},
		{ParseAmount("1234.5"), "1,234.5"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.in); got != tc.out {
			t.Fatalf("FormatAmount(%s) = %q, want %q", tc.in.String(), got, tc.out)
		}
	}
}

func TestFormatThenParseAmount(t *testing.T) {
	for _, raw := range []string{"0", "7", "1234000", "98765.25"} {
		m := ParseAmount(raw)
		back := ParseAmount(FormatAmount(m))
		if !back.Equal(m) {
			t.Fatalf("%s -> %q -> %s", raw, FormatAmount(m), back.String())
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{NewMoney(180000)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"amount":180000}` {
		t.Fatalf("unexpected JSON %s", b)
	}

	var in struct {
		Amount Money `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount":180000.0}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !in.Amount.Equal(NewMoney(180000)) {
		t.Fatalf("got %s", in.Amount.String())
	}
}
