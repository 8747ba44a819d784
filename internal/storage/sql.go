package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"jichul/internal/core"
)

// Dialect selects the SQL driver and migration set.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

// SQLBackend stores the snapshot as rows of the expenses and payees tables
// plus one snapshot_meta row holding the id counters. Save replaces every row
// inside one transaction.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (creating if needed) the database file at path and
// migrates it. Files written by the legacy tracker are picked up as they are.
func OpenSQLite(ctx context.Context, path string) (*SQLBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return openSQL(ctx, DialectSQLite, path)
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*SQLBackend, error) {
	return openSQL(ctx, DialectPostgres, dsn)
}

func openSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLBackend, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// One writer at a time; SQLite would otherwise report SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLBackend{db: db, dialect: dialect}, nil
}

func (b *SQLBackend) Name() string { return string(b.dialect) }

func (b *SQLBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (b *SQLBackend) rebind(query string) string {
	if b.dialect != DialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Load reads the snapshot. A database that has never been saved to and holds
// no rows counts as unavailable so the chain falls through to other sources.
func (b *SQLBackend) Load(ctx context.Context) (*core.Snapshot, error) {
	s := core.NewSnapshot()

	var hasMeta bool
	err := b.db.QueryRowContext(ctx, b.rebind(
		`SELECT next_expense_id, next_payee_id FROM snapshot_meta WHERE id = 1`,
	)).Scan(&s.NextExpenseID, &s.NextPayeeID)
	switch {
	case err == nil:
		hasMeta = true
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, unavailable(b.Name(), fmt.Errorf("read meta: %w", err))
	}

	expenses, err := b.loadExpenses(ctx)
	if err != nil {
		return nil, unavailable(b.Name(), err)
	}
	payees, err := b.loadPayees(ctx)
	if err != nil {
		return nil, unavailable(b.Name(), err)
	}
	if !hasMeta && len(expenses) == 0 && len(payees) == 0 {
		return nil, unavailable(b.Name(), errors.New("database is empty"))
	}
	s.Expenses = expenses
	s.Payees = payees
	s.Normalize()
	return s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTimestamps(created, updated sql.NullString) (core.Timestamp, core.Timestamp) {
	c, _ := core.ParseTimestamp(created.String)
	u, _ := core.ParseTimestamp(updated.String)
	return c, u
}

func scanExpense(row scanner) (core.Expense, error) {
	var (
		e                core.Expense
		method, cycle    sql.NullString
		created, updated sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Merchant, &e.Amount, &e.ApprovalDate, &method, &cycle, &created, &updated); err != nil {
		return core.Expense{}, err
	}
	e.PaymentMethod = method.String
	e.PaymentCycle = core.Cycle(cycle.String)
	e.CreatedAt, e.UpdatedAt = scanTimestamps(created, updated)
	return e, nil
}

func (b *SQLBackend) loadExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, merchant, amount, approval_date, payment_method, payment_cycle, created_at, updated_at
		FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanPayee(row scanner) (core.Payee, error) {
	var (
		p                           core.Payee
		account, bank, owner, cycle sql.NullString
		created, updated            sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &account, &bank, &owner, &cycle, &p.Amount, &created, &updated); err != nil {
		return core.Payee{}, err
	}
	p.AccountNumber = account.String
	p.BankName = bank.String
	p.OwnerName = owner.String
	p.PaymentCycle = core.Cycle(cycle.String)
	p.CreatedAt, p.UpdatedAt = scanTimestamps(created, updated)
	return p, nil
}

func (b *SQLBackend) loadPayees(ctx context.Context) ([]core.Payee, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, name, account_number, bank_name, owner_name, payment_cycle, amount, created_at, updated_at
		FROM payees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query payees: %w", err)
	}
	defer rows.Close()

	out := []core.Payee{}
	for rows.Next() {
		p, err := scanPayee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payee: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Save replaces the stored snapshot atomically.
func (b *SQLBackend) Save(ctx context.Context, s *core.Snapshot) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM payees`); err != nil {
		return fmt.Errorf("clear payees: %w", err)
	}

	insertExpense, err := tx.PrepareContext(ctx, b.rebind(`
		INSERT INTO expenses (id, merchant, amount, approval_date, payment_method, payment_cycle, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare expense insert: %w", err)
	}
	defer insertExpense.Close()
	for _, e := range s.Expenses {
		if _, err := insertExpense.ExecContext(ctx,
			e.ID, e.Merchant, e.Amount.Decimal, e.ApprovalDate, e.PaymentMethod, string(e.PaymentCycle),
			e.CreatedAt.String(), e.UpdatedAt.String(),
		); err != nil {
			return fmt.Errorf("insert expense %d: %w", e.ID, err)
		}
	}

	insertPayee, err := tx.PrepareContext(ctx, b.rebind(`
		INSERT INTO payees (id, name, account_number, bank_name, owner_name, payment_cycle, amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare payee insert: %w", err)
	}
	defer insertPayee.Close()
	for _, p := range s.Payees {
		if _, err := insertPayee.ExecContext(ctx,
			p.ID, p.Name, p.AccountNumber, p.BankName, p.OwnerName, string(p.PaymentCycle), p.Amount.Decimal,
			p.CreatedAt.String(), p.UpdatedAt.String(),
		); err != nil {
			return fmt.Errorf("insert payee %d: %w", p.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, b.rebind(`
		INSERT INTO snapshot_meta (id, next_expense_id, next_payee_id, saved_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			next_expense_id = excluded.next_expense_id,
			next_payee_id = excluded.next_payee_id,
			saved_at = excluded.saved_at`),
		s.NextExpenseID, s.NextPayeeID, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
