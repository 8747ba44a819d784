package core

import (
	"sort"
	"strings"
	"time"
)

// GroupTotal is an amount aggregated under one grouping key.
type GroupTotal struct {
	Key   string
	Total Money
}

// Statistics is the store-wide summary.
type Statistics struct {
	TotalAmount    Money
	MerchantTotals []GroupTotal
	PaymentTotals  []GroupTotal
	CycleTotals    []GroupTotal
}

// DaySummary is one calendar cell.
type DaySummary struct {
	Total        Money    `json:"total"`
	Count        int      `json:"count"`
	NextPayments []string `json:"next_payments,omitempty"`
}

// staleAfter bounds how far in the past a projected payment may be and still
// be shown.
const staleAfter = 7 * 24 * time.Hour

// Totals sums every expense and groups the sum by merchant, payment method and
// payment cycle. Each group is sorted by total descending; equal totals keep
// the order in which their key was first seen.
func Totals(s *Snapshot) Statistics {
	stats := Statistics{
		MerchantTotals: []GroupTotal{},
		PaymentTotals:  []GroupTotal{},
		CycleTotals:    []GroupTotal{},
	}
	merchants := newGrouper()
	methods := newGrouper()
	cycles := newGrouper()
	for _, e := range s.Expenses {
		stats.TotalAmount = stats.TotalAmount.Add(e.Amount)
		merchants.add(e.Merchant, e.Amount)
		methods.add(e.PaymentMethod, e.Amount)
		cycles.add(string(e.PaymentCycle), e.Amount)
	}
	stats.MerchantTotals = merchants.sorted()
	stats.PaymentTotals = methods.sorted()
	stats.CycleTotals = cycles.sorted()
	return stats
}

type grouper struct {
	index  map[string]int
	groups []GroupTotal
}

func newGrouper() *grouper {
	return &grouper{index: make(map[string]int)}
}

func (g *grouper) add(key string, amount Money) {
	i, ok := g.index[key]
	if !ok {
		i = len(g.groups)
		g.index[key] = i
		g.groups = append(g.groups, GroupTotal{Key: key})
	}
	g.groups[i].Total = g.groups[i].Total.Add(amount)
}

func (g *grouper) sorted() []GroupTotal {
	out := make([]GroupTotal, len(g.groups))
	copy(out, g.groups)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total.Decimal)
	})
	return out
}

// Calendar buckets the expenses of year/month by approval date and attaches
// projected next payments that fall inside the month and are not stale
// relative to today.
//
// The cycle of a merchant comes from the payee directory when a payee with the
// same name has one, otherwise from the merchant's most recent expense.
func Calendar(s *Snapshot, year, month int, today time.Time) map[string]DaySummary {
	start, end := MonthBounds(year, month)
	days := make(map[string]DaySummary)

	for _, e := range s.Expenses {
		if e.ApprovalDate < start || e.ApprovalDate >= end {
			continue
		}
		d := days[e.ApprovalDate]
		d.Total = d.Total.Add(e.Amount)
		d.Count++
		days[e.ApprovalDate] = d
	}

	todayISO := today.Format(DateLayout)
	staleISO := today.Add(-staleAfter).Format(DateLayout)
	for _, due := range projectDue(s) {
		if due.date < start || due.date >= end {
			continue
		}
		if due.date < todayISO || due.date < staleISO {
			continue
		}
		d := days[due.date]
		d.NextPayments = append(d.NextPayments, due.merchant)
		days[due.date] = d
	}
	return days
}

type dueDate struct {
	merchant string
	date     string
}

// projectDue returns one projected date per merchant, in first-seen order.
func projectDue(s *Snapshot) []dueDate {
	payeeCycles := make(map[string]Cycle)
	for _, p := range s.Payees {
		name := strings.TrimSpace(p.Name)
		cycle := Cycle(strings.TrimSpace(string(p.PaymentCycle)))
		if name != "" && cycle != "" {
			payeeCycles[name] = cycle
		}
	}

	type last struct {
		date  string
		cycle Cycle
	}
	var order []string
	latest := make(map[string]last)
	for _, e := range s.Expenses {
		merchant := strings.TrimSpace(e.Merchant)
		if merchant == "" || e.ApprovalDate == "" {
			continue
		}
		cycle, ok := payeeCycles[merchant]
		if !ok {
			cycle = Cycle(strings.TrimSpace(string(e.PaymentCycle)))
		}
		if cycle == "" {
			continue
		}
		prev, seen := latest[merchant]
		if !seen {
			order = append(order, merchant)
		}
		if !seen || e.ApprovalDate > prev.date {
			latest[merchant] = last{date: e.ApprovalDate, cycle: cycle}
		}
	}

	out := make([]dueDate, 0, len(order))
	for _, m := range order {
		l := latest[m]
		if next := NextPaymentDate(l.date, l.cycle); next != "" {
			out = append(out, dueDate{merchant: m, date: next})
		}
	}
	return out
}

// ByDate returns the expenses approved on date, highest id first.
func ByDate(s *Snapshot, date string) []Expense {
	out := []Expense{}
	for _, e := range s.Expenses {
		if e.ApprovalDate == date {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Search returns expenses whose merchant or payment method contains query,
// case-insensitively, newest first. A blank query matches nothing.
func Search(s *Snapshot, query string) []Expense {
	q := strings.ToLower(CleanText(query))
	out := []Expense{}
	if q == "" {
		return out
	}
	for _, e := range s.Expenses {
		if strings.Contains(strings.ToLower(CleanText(e.Merchant)), q) ||
			strings.Contains(strings.ToLower(CleanText(e.PaymentMethod)), q) {
			out = append(out, e)
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders expenses by (approval_date, id) descending.
func SortNewestFirst(es []Expense) {
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].ApprovalDate != es[j].ApprovalDate {
			return es[i].ApprovalDate > es[j].ApprovalDate
		}
		return es[i].ID > es[j].ID
	})
}

// SortByApprovalDate orders expenses by approval date ascending, keeping the
// relative order of equal dates.
func SortByApprovalDate(es []Expense) {
	sort.SliceStable(es, func(i, j int) bool { return es[i].ApprovalDate < es[j].ApprovalDate })
}

// SortPayeesByName orders payees by name ascending.
func SortPayeesByName(ps []Payee) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
}
