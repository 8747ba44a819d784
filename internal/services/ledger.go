package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jichul/internal/amqp"
	"jichul/internal/core"
	"jichul/internal/log"
	"jichul/internal/storage"
)

// Notifier receives an event after every successful mutation.
type Notifier interface {
	PublishChange(ctx context.Context, ev amqp.ChangeEvent) error
}

// Ledger is the service API over the store: expense and payee CRUD, the
// read-only views and bulk import. Every call is one load(-mutate-save) cycle
// under the store lock.
type Ledger struct {
	store    *storage.Store
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

type Option func(*Ledger)

// WithNotifier publishes change events through n.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock replaces time.Now, which decides "today" for the calendar.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(store *storage.Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = log.OrDiscard(l.logger).WithComponent(log.ComponentLedger)
	return l
}

// ExpenseView is an expense as returned to clients.
type ExpenseView struct {
	ID            int64      `json:"id"`
	Merchant      string     `json:"merchant"`
	Amount        core.Money `json:"amount"`
	ApprovalDate  string     `json:"approval_date"`
	PaymentMethod string     `json:"payment_method"`
	PaymentCycle  core.Cycle `json:"payment_cycle"`
}

// ExpenseSearchView is the reduced shape of a search hit.
type ExpenseSearchView struct {
	Merchant      string     `json:"merchant"`
	ApprovalDate  string     `json:"approval_date"`
	Amount        core.Money `json:"amount"`
	PaymentMethod string     `json:"payment_method"`
}

type PayeeView struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	AccountNumber string     `json:"account_number"`
	BankName      string     `json:"bank_name"`
	OwnerName     string     `json:"owner_name"`
	PaymentCycle  core.Cycle `json:"payment_cycle"`
	Amount        core.Money `json:"amount"`
}

// ExpenseInput is a create or update request. Amount may be a number or a
// loosely formatted string.
type ExpenseInput struct {
	Merchant      string `json:"merchant"`
	Amount        any    `json:"amount"`
	ApprovalDate  string `json:"approval_date"`
	PaymentMethod string `json:"payment_method"`
	PaymentCycle  string `json:"payment_cycle"`
}

type PayeeInput struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	OwnerName     string `json:"owner_name"`
	PaymentCycle  string `json:"payment_cycle"`
	Amount        any    `json:"amount"`
}

func toExpenseView(e core.Expense) ExpenseView {
	return ExpenseView{
		ID:            e.ID,
		Merchant:      e.Merchant,
		Amount:        e.Amount,
		ApprovalDate:  e.ApprovalDate,
		PaymentMethod: e.PaymentMethod,
		PaymentCycle:  e.PaymentCycle,
	}
}

func toExpenseViews(es []core.Expense) []ExpenseView {
	out := make([]ExpenseView, 0, len(es))
	for _, e := range es {
		out = append(out, toExpenseView(e))
	}
	return out
}

func toPayeeView(p core.Payee) PayeeView {
	return PayeeView{
		ID:            p.ID,
		Name:          p.Name,
		AccountNumber: p.AccountNumber,
		BankName:      p.BankName,
		OwnerName:     p.OwnerName,
		PaymentCycle:  p.PaymentCycle,
		Amount:        p.Amount,
	}
}

// normalize trims the text fields and applies the lenient amount and date
// parsers. It never fails; Validate decides what is missing.
func (in ExpenseInput) normalize() core.Expense {
	return core.Expense{
		Merchant:      core.CleanText(in.Merchant),
		Amount:        core.ParseAmount(in.Amount),
		ApprovalDate:  core.CanonicalDate(in.ApprovalDate),
		PaymentMethod: core.CleanText(in.PaymentMethod),
		PaymentCycle:  core.Cycle(strings.TrimSpace(in.PaymentCycle)),
	}
}

func (in PayeeInput) normalize() core.Payee {
	return core.Payee{
		Name:          core.CleanText(in.Name),
		AccountNumber: strings.TrimSpace(in.AccountNumber),
		BankName:      core.CleanText(in.BankName),
		OwnerName:     core.CleanText(in.OwnerName),
		PaymentCycle:  core.Cycle(strings.TrimSpace(in.PaymentCycle)),
		Amount:        core.ParseAmount(in.Amount),
	}
}

// ListExpenses returns every expense, newest first.
func (l *Ledger) ListExpenses(ctx context.Context) ([]ExpenseView, error) {
	var out []ExpenseView
	err := l.store.View(ctx, func(s *core.Snapshot) error {
		es := make([]core.Expense, len(s.Expenses))
		copy(es, s.Expenses)
		core.SortNewestFirst(es)
		out = toExpenseViews(es)
		return nil
	})
	return out, err
}

func (l *Ledger) CreateExpense(ctx context.Context, in ExpenseInput) (ExpenseView, error) {
	e := in.normalize()
	if err := e.Validate(); err != nil {
		return ExpenseView{}, err
	}

	err := l.store.Update(ctx, func(s *core.Snapshot) error {
		now := core.Now()
		e.CreatedAt, e.UpdatedAt = now, now
		e = s.AddExpense(e)
		return nil
	})
	if err != nil {
		return ExpenseView{}, fmt.Errorf("create expense: %w", err)
	}

	l.logger.InfoContext(ctx, "Expense created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithEntity(amqp.EntityExpense, e.ID).
			With(log.FieldMerchant, e.Merchant).
			With(log.FieldAmount, e.Amount.String()).
			ToSlice()...)
	l.notify(ctx, amqp.EntityExpense, amqp.OpCreated, e.ID)
	return toExpenseView(e), nil
}

func (l *Ledger) UpdateExpense(ctx context.Context, id int64, in ExpenseInput) (ExpenseView, error) {
	patch := in.normalize()
	if err := patch.Validate(); err != nil {
		return ExpenseView{}, err
	}

	var updated core.Expense
	err := l.store.Update(ctx, func(s *core.Snapshot) error {
		i, ok := s.FindExpense(id)
		if !ok {
			return &core.NotFoundError{Kind: amqp.EntityExpense, ID: id}
		}
		e := &s.Expenses[i]
		e.Merchant = patch.Merchant
		e.Amount = patch.Amount
		e.ApprovalDate = patch.ApprovalDate
		e.PaymentMethod = patch.PaymentMethod
		e.PaymentCycle = patch.PaymentCycle
		e.UpdatedAt = core.Now()
		updated = *e
		return nil
	})
	if err != nil {
		return ExpenseView{}, wrapMutation("update expense", err)
	}

	l.logger.InfoContext(ctx, "Expense updated",
		log.NewFields().WithOperation(log.OpUpdate).WithEntity(amqp.EntityExpense, id).ToSlice()...)
	l.notify(ctx, amqp.EntityExpense, amqp.OpUpdated, id)
	return toExpenseView(updated), nil
}

// DeleteExpense removes the expense. Deleting an unknown id succeeds and
// leaves the snapshot as it was.
func (l *Ledger) DeleteExpense(ctx context.Context, id int64) error {
	var removed bool
	err := l.store.Update(ctx, func(s *core.Snapshot) error {
		removed = s.RemoveExpense(id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if removed {
		l.logger.InfoContext(ctx, "Expense deleted",
			log.NewFields().WithOperation(log.OpDelete).WithEntity(amqp.EntityExpense, id).ToSlice()...)
		l.notify(ctx, amqp.EntityExpense, amqp.OpDeleted, id)
	}
	return nil
}

// ListPayees returns the directory sorted by name.
func (l *Ledger) ListPayees(ctx context.Context) ([]PayeeView, error) {
	var out []PayeeView
	err := l.store.View(ctx, func(s *core.Snapshot) error {
		ps := make([]core.Payee, len(s.Payees))
		copy(ps, s.Payees)
		core.SortPayeesByName(ps)
		out = make([]PayeeView, 0, len(ps))
		for _, p := range ps {
			out = append(out, toPayeeView(p))
		}
		return nil
	})
	return out, err
}

func (l *Ledger) CreatePayee(ctx context.Context, in PayeeInput) (PayeeView, error) {
	p := in.normalize()
	if err := p.Validate(); err != nil {
		return PayeeView{}, err
	}
	err := l.store.Update(ctx, func(s *core.Snapshot) error {
		now := core.Now()
		p.CreatedAt, p.UpdatedAt = now, now
		p = s.AddPayee(p)
		return nil
	})
	if err != nil {
		return PayeeView{}, fmt.Errorf("create payee: %w", err)
	}
	l.logger.InfoContext(ctx, "Payee created",
		log.NewFields().WithOperation(log.OpCreate).WithEntity(amqp.EntityPayee, p.ID).ToSlice()...)
	l.notify(ctx, amqp.EntityPayee, amqp.OpCreated, p.ID)
	return toPayeeView(p), nil
}

func (l *Ledger) UpdatePayee(ctx context.Context, id int64, in PayeeInput) (PayeeView, error) {
	patch := in.normalize()
	if err := patch.Validate(); err != nil {
		return PayeeView{}, err
	}
	var updated core.Payee
	err := l.store.Update(ctx, func(s *core.Snapshot) error {
		i, ok := s.FindPayee(id)
		if !ok {
			return &core.NotFoundError{Kind: amqp.EntityPayee, ID: id}
		}
		p := &s.Payees[i]
		p.Name = patch.Name
		p.AccountNumber = patch.AccountNumber
		p.BankName = patch.BankName
		p.OwnerName = patch.OwnerName
		p.PaymentCycle = patch.PaymentCycle
		if in.Amount != nil {
			p.Amount = patch.Amount
		}
		p.UpdatedAt = core.Now()
		updated = *p
		return nil
	})
	if err != nil {
		return PayeeView{}, wrapMutation("update payee", err)
	}
	l.logger.InfoContext(ctx, "Payee updated",
		log.NewFields().WithOperation(log.OpUpdate).WithEntity(amqp.EntityPayee, id).ToSlice()...)
	l.notify(ctx, amqp.EntityPayee, amqp.OpUpdated, id)
	return toPayeeView(updated), nil
}

func (l *Ledger) DeletePayee(ctx context.Context, id int64) error {
	var removed bool
	err := l.store.Update(ctx, func(s *core.Snapshot) error {
		removed = s.RemovePayee(id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete payee: %w", err)
	}
	if removed {
		l.logger.InfoContext(ctx, "Payee deleted",
			log.NewFields().WithOperation(log.OpDelete).WithEntity(amqp.EntityPayee, id).ToSlice()...)
		l.notify(ctx, amqp.EntityPayee, amqp.OpDeleted, id)
	}
	return nil
}

func (l *Ledger) Statistics(ctx context.Context) (core.Statistics, error) {
	var stats core.Statistics
	err := l.store.View(ctx, func(s *core.Snapshot) error {
		stats = core.Totals(s)
		return nil
	})
	return stats, err
}

// ExpensesByDate returns the expenses approved on date, highest id first.
func (l *Ledger) ExpensesByDate(ctx context.Context, date string) ([]ExpenseView, error) {
	var out []ExpenseView
	err := l.store.View(ctx, func(s *core.Snapshot) error {
		out = toExpenseViews(core.ByDate(s, strings.TrimSpace(date)))
		return nil
	})
	return out, err
}

// Calendar returns the day buckets of year/month keyed by ISO date.
func (l *Ledger) Calendar(ctx context.Context, year, month int) (map[string]core.DaySummary, error) {
	var out map[string]core.DaySummary
	err := l.store.View(ctx, func(s *core.Snapshot) error {
		out = core.Calendar(s, year, month, l.now())
		return nil
	})
	return out, err
}

func (l *Ledger) Search(ctx context.Context, query string) ([]ExpenseSearchView, error) {
	out := []ExpenseSearchView{}
	if strings.TrimSpace(query) == "" {
		return out, nil
	}
	err := l.store.View(ctx, func(s *core.Snapshot) error {
		for _, e := range core.Search(s, query) {
			out = append(out, ExpenseSearchView{
				Merchant:      e.Merchant,
				ApprovalDate:  e.ApprovalDate,
				Amount:        e.Amount,
				PaymentMethod: e.PaymentMethod,
			})
		}
		return nil
	})
	return out, err
}

// Snapshot returns a copy of the whole store, for exports.
func (l *Ledger) Snapshot(ctx context.Context) (*core.Snapshot, error) {
	return l.store.Snapshot(ctx)
}

func (l *Ledger) notify(ctx context.Context, entity, op string, id int64) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.PublishChange(ctx, *amqp.NewChangeEvent(entity, op, id)); err != nil {
		l.logger.WarnContext(ctx, "Failed to publish change event",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithEntity(entity, id).
				WithError(err).
				ToSlice()...)
	}
}

// wrapMutation leaves typed domain errors unwrapped so callers can map them
// directly.
func wrapMutation(op string, err error) error {
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
