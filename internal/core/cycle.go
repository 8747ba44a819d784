// This file implements the next-payment projection. Each cycle code maps to a
// Projector that moves a last payment date forward by one period.

package core

import (
	"sync"
	"time"
)

// Projector computes the next due date after last for one cycle code.
type Projector interface {
	Next(last time.Time) time.Time
}

// MonthStep advances by a whole number of calendar months, clamping the day
// to the last valid day of the target month.
type MonthStep int

// Next returns last moved forward by n months; Jan 31 + 1 month is Feb 28 or 29.
func (n MonthStep) Next(last time.Time) time.Time {
	return addMonthsClamped(last, int(n))
}

var (
	cyclesMu sync.RWMutex
	cycles   = map[Cycle]Projector{
		CycleMonthly:    MonthStep(1),
		CycleQuarterly:  MonthStep(3),
		CycleSemiannual: MonthStep(6),
		CycleYearly:     MonthStep(12),
	}
)

// RegisterCycle adds or replaces the projector for a cycle code.
func RegisterCycle(c Cycle, p Projector) {
	cyclesMu.Lock()
	defer cyclesMu.Unlock()
	cycles[c] = p
}

func lookupCycle(c Cycle) (Projector, bool) {
	cyclesMu.RLock()
	defer cyclesMu.RUnlock()
	p, ok := cycles[c]
	return p, ok
}

// NextPaymentDate returns the ISO date one cycle after last. It returns "" for
// an unknown cycle or a last date that is not YYYY-MM-DD. It never looks at
// the current date.
func NextPaymentDate(last string, cycle Cycle) string {
	p, ok := lookupCycle(cycle)
	if !ok {
		return ""
	}
	t, err := time.Parse(DateLayout, last)
	if err != nil {
		return ""
	}
	return p.Next(t).Format(DateLayout)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(target.Year(), target.Month()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
