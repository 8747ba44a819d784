package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jichul/internal/core"
)

func openTestSQLite(t *testing.T) (*SQLBackend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "expense_tracker.db")
	b, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b, path
}

func TestSQLBackend_EmptyIsUnavailable(t *testing.T) {
	b, _ := openTestSQLite(t)
	_, err := b.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrBackendUnavailable)
}

func TestSQLBackend_SaveLoad(t *testing.T) {
	ctx := context.Background()
	b, _ := openTestSQLite(t)
	want := fixtureSnapshot()
	require.NoError(t, b.Save(ctx, want))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Expenses, len(want.Expenses))
	require.Len(t, got.Payees, len(want.Payees))
	assert.Equal(t, want.NextExpenseID, got.NextExpenseID)
	assert.Equal(t, want.NextPayeeID, got.NextPayeeID)

	for i, e := range want.Expenses {
		g := got.Expenses[i]
		assert.Equal(t, e.ID, g.ID)
		assert.Equal(t, e.Merchant, g.Merchant)
		assert.True(t, e.Amount.Equal(g.Amount), "amount %s vs %s", e.Amount, g.Amount)
		assert.Equal(t, e.PaymentCycle, g.PaymentCycle)
		assert.Equal(t, e.CreatedAt.String(), g.CreatedAt.String())
	}
	assert.Equal(t, core.CycleQuarterly, got.Payees[1].PaymentCycle)
	assert.True(t, got.Payees[0].Amount.Equal(core.NewMoney(60000)))

	// A second save replaces rather than appends.
	want.Expenses = want.Expenses[:1]
	require.NoError(t, b.Save(ctx, want))
	got, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Expenses, 1)
	assert.Equal(t, int64(4), got.NextExpenseID, "counter never moves backwards")
}

func TestSQLBackend_ReadsLegacyDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expense_tracker.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			merchant TEXT NOT NULL,
			amount REAL NOT NULL DEFAULT 0,
			approval_date TEXT NOT NULL,
			payment_method TEXT NOT NULL DEFAULT '',
			payment_cycle TEXT NOT NULL DEFAULT '',
			created_at TEXT,
			updated_at TEXT
		);
		CREATE TABLE payees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			account_number TEXT NOT NULL DEFAULT '',
			bank_name TEXT NOT NULL DEFAULT '',
			owner_name TEXT NOT NULL DEFAULT '',
			created_at TEXT,
			updated_at TEXT
		);
		INSERT INTO expenses (id, merchant, amount, approval_date, payment_method, payment_cycle, created_at, updated_at)
		VALUES (5, '농구', 282000, '2025-04-15', '계좌이체', '3M', '2025-04-15 10:00:00', '2025-04-15 10:00:00');
		INSERT INTO payees (id, name, account_number, bank_name, owner_name)
		VALUES (2, '세차', '40880101094704', '국민은행', '김란향');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	b, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer b.Close()

	snap, err := b.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, int64(5), snap.Expenses[0].ID)
	assert.Equal(t, int64(6), snap.NextExpenseID)
	require.Len(t, snap.Payees, 1)
	assert.Equal(t, core.Cycle(""), snap.Payees[0].PaymentCycle)
	assert.True(t, snap.Payees[0].Amount.IsZero())
	assert.Equal(t, int64(3), snap.NextPayeeID)
}

func TestSQLBackend_Rebind(t *testing.T) {
	pg := &SQLBackend{dialect: DialectPostgres}
	assert.Equal(t, "VALUES ($1, $2, $3)", pg.rebind("VALUES (?, ?, ?)"))
	lite := &SQLBackend{dialect: DialectSQLite}
	assert.Equal(t, "VALUES (?, ?)", lite.rebind("VALUES (?, ?)"))
}
