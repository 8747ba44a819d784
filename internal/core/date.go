// Dates are stored as ISO "YYYY-MM-DD" strings. This file holds the lenient
// parser for user and file input and the short form the row files use.

package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical ISO date layout used in the snapshot.
const DateLayout = "2006-01-02"

// ParseDate converts "YY/MM/DD" or "YYYY/MM/DD" to "YYYY-MM-DD". Two-digit
// years map to 2000+year. Anything that does not split into three numeric
// slash-separated parts is returned unchanged; use IsISODate on the result to
// tell the two apart.
func ParseDate(input string) string {
	s := strings.TrimSpace(input)
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return input
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return input
		}
		nums[i] = n
	}
	year, month, day := nums[0], nums[1], nums[2]
	if year < 100 {
		year += 2000
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// CanonicalDate parses input like ParseDate and zero-pads a dash-separated
// numeric date ("2025-5-8" becomes "2025-05-08") when the padded form is a
// real calendar date. Other input is returned as ParseDate returns it.
func CanonicalDate(input string) string {
	s := ParseDate(strings.TrimSpace(input))
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return s
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return s
		}
		nums[i] = n
	}
	padded := fmt.Sprintf("%04d-%02d-%02d", nums[0], nums[1], nums[2])
	if !IsISODate(padded) {
		return s
	}
	return padded
}

// IsISODate reports whether s is a real calendar date in YYYY-MM-DD form.
func IsISODate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// FormatShortDate renders an ISO date for the row files. Years 2000-2099
// become "YY/MM/DD", other years from 100 on "YYYY/MM/DD"; ParseDate reads
// both back to the same date. Anything else, including years below 100,
// passes through unchanged.
func FormatShortDate(iso string) string {
	if !IsISODate(iso) {
		return iso
	}
	year, _ := strconv.Atoi(iso[:4])
	rest := strings.ReplaceAll(iso[4:], "-", "/")
	switch {
	case year >= 2000 && year <= 2099:
		return iso[2:4] + rest
	case year >= 100:
		return iso[:4] + rest
	default:
		return iso
	}
}

// MonthBounds returns the ISO dates of the first day of year/month and of the
// first day of the following month.
func MonthBounds(year, month int) (start, end string) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)
	return first.Format(DateLayout), next.Format(DateLayout)
}
