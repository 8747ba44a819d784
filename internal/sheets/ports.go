package sheets

import (
	"context"

	"jichul/internal/core"
)

// Default tab names of the mirrored spreadsheet.
const (
	ExpensesTab = "Expenses"
	PayeesTab   = "Payees"
)

// Ports for outbound adapters.
type (
	// SnapshotMirror replaces the mirrored tabs with the contents of s.
	SnapshotMirror interface {
		MirrorSnapshot(ctx context.Context, s *core.Snapshot) error
	}

	// RowReader returns the rows currently stored in a tab.
	RowReader interface {
		ReadRows(ctx context.Context, tab string) ([][]string, error)
	}
)
