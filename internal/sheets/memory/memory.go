package memory

import (
	"context"
	"fmt"
	"sync"

	"jichul/internal/core"
	"jichul/internal/sheets"
)

// Store keeps mirrored tabs in memory. It serves tests and deployments
// without a spreadsheet.
type Store struct {
	mu    sync.Mutex
	tabs  map[string][][]string
	syncs int
}

var (
	_ sheets.SnapshotMirror = (*Store)(nil)
	_ sheets.RowReader      = (*Store)(nil)
)

func New() *Store {
	return &Store{tabs: make(map[string][][]string)}
}

// MirrorSnapshot replaces both tabs.
func (s *Store) MirrorSnapshot(_ context.Context, snap *core.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}
	expenses := sheets.ExpenseRows(snap.Expenses)
	payees := sheets.PayeeRows(snap.Payees)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[sheets.ExpensesTab] = expenses
	s.tabs[sheets.PayeesTab] = payees
	s.syncs++
	return nil
}

// ReadRows returns a copy of the tab's rows; unknown tabs are empty.
func (s *Store) ReadRows(_ context.Context, tab string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tabs[tab]
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

// Syncs reports how many snapshots have been mirrored.
func (s *Store) Syncs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncs
}
