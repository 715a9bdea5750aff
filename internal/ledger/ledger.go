// Package ledger owns the expense records and settings. Every mutation is
// written through to the store before it returns.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensy/internal/core"
	"expensy/internal/log"
	"expensy/internal/metrics"
	"expensy/internal/storage"
)

// Persisted keys.
const (
	DataKey     = "expensy_data_v1"
	SettingsKey = "expensy_settings_v1"
)

type Ledger struct {
	mu       sync.Mutex
	store    storage.Store
	logger   *log.Logger
	now      func() time.Time
	newID    func(time.Time) string
	expenses []core.Expense // newest first
	settings core.Settings
	pending  map[string]core.PendingAction

	pendingTTL time.Duration
}

// DefaultPendingTTL is how long a staged destructive action stays resolvable.
const DefaultPendingTTL = 15 * time.Minute

type Option func(*Ledger)

func WithLogger(l *log.Logger) Option {
	return func(lg *Ledger) { lg.logger = l }
}

// WithPendingTTL sets how long staged actions wait for confirmation.
func WithPendingTTL(d time.Duration) Option {
	return func(lg *Ledger) { lg.pendingTTL = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(lg *Ledger) { lg.now = now }
}

// Open rehydrates the ledger from store. Missing keys mean defaults;
// unreadable blobs are logged and replaced by defaults on the next write.
func Open(ctx context.Context, store storage.Store, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:    store,
		logger:   log.Discard(),
		now:      time.Now,
		newID:    newRecordID,
		settings: core.DefaultSettings(),
		pending:  make(map[string]core.PendingAction),

		pendingTTL: DefaultPendingTTL,
	}
	for _, o := range opts {
		o(l)
	}
	l.logger = l.logger.WithComponent(log.ComponentLedger)

	if err := l.load(ctx); err != nil {
		return nil, err
	}
	l.observe()
	return l, nil
}

func (l *Ledger) load(ctx context.Context) error {
	raw, ok, err := l.store.Get(ctx, DataKey)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	if ok {
		var exps []core.Expense
		if err := json.Unmarshal(raw, &exps); err != nil {
			l.unreadable(ctx, DataKey, err)
		} else {
			l.expenses = l.sanitize(ctx, exps)
		}
	}

	raw, ok, err = l.store.Get(ctx, SettingsKey)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if ok {
		s := core.DefaultSettings()
		if err := json.Unmarshal(raw, &s); err != nil {
			l.unreadable(ctx, SettingsKey, err)
		} else if err := s.Validate(); err != nil {
			l.unreadable(ctx, SettingsKey, err)
		} else {
			l.settings = s
		}
	}

	l.logger.InfoContext(ctx, "ledger loaded",
		log.FieldOperation, log.OpLoad, "records", len(l.expenses))
	return nil
}

func (l *Ledger) unreadable(ctx context.Context, key string, err error) {
	metrics.StorageReadFailures.Inc()
	l.logger.WarnContext(ctx, "stored state unreadable, using defaults",
		log.FieldKey, key,
		log.FieldError, fmt.Errorf("%w: %v", core.ErrStorageRead, err).Error())
}

// sanitize drops records that break the ledger invariants.
func (l *Ledger) sanitize(ctx context.Context, exps []core.Expense) []core.Expense {
	seen := make(map[string]bool, len(exps))
	out := make([]core.Expense, 0, len(exps))
	for _, e := range exps {
		if err := e.Validate(); err != nil {
			l.logger.WarnContext(ctx, "dropping invalid stored record",
				log.FieldExpenseID, e.ID, log.FieldError, err.Error())
			continue
		}
		if seen[e.ID] {
			l.logger.WarnContext(ctx, "dropping duplicate stored record", log.FieldExpenseID, e.ID)
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out
}

// Append validates the draft and stores it as the newest record.
func (l *Ledger) Append(ctx context.Context, d core.Draft) (core.Expense, error) {
	if err := d.Validate(); err != nil {
		metrics.LedgerOperations.WithLabelValues(log.OpAppend, "invalid").Inc()
		return core.Expense{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e := core.Expense{
		ID:              l.uniqueID(now),
		Timestamp:       now,
		Date:            d.Date,
		Amount:          d.Amount,
		Category:        d.Category,
		Description:     strings.TrimSpace(d.Description),
		ReceiptImage:    d.ReceiptImage,
		IsPersonalMoney: d.IsPersonalMoney,
	}
	if e.Date.IsZero() {
		e.Date = core.DateOf(now)
	}

	prev := l.expenses
	l.expenses = append([]core.Expense{e}, prev...)
	if err := l.persistExpenses(ctx); err != nil {
		l.expenses = prev
		l.record(log.OpAppend, err)
		return core.Expense{}, err
	}
	l.record(log.OpAppend, nil)
	l.logger.InfoContext(ctx, "expense appended",
		log.NewFields().WithExpense(e).WithOperation(log.OpAppend).ToSlice()...)
	return e, nil
}

func (l *Ledger) uniqueID(now time.Time) string {
	for {
		id := l.newID(now)
		if !slices.ContainsFunc(l.expenses, func(e core.Expense) bool { return e.ID == id }) {
			return id
		}
	}
}

// newRecordID returns "ID-<unix nanos>-<8 hex chars>".
func newRecordID(now time.Time) string {
	u := uuid.New()
	return "ID-" + strconv.FormatInt(now.UnixNano(), 10) + "-" + strings.ReplaceAll(u.String(), "-", "")[:8]
}

// Remove deletes the record with id. Unknown ids are a no-op.
func (l *Ledger) Remove(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := slices.IndexFunc(l.expenses, func(e core.Expense) bool { return e.ID == id })
	if i < 0 {
		return nil
	}
	prev := l.expenses
	l.expenses = slices.Delete(slices.Clone(prev), i, i+1)
	if err := l.persistExpenses(ctx); err != nil {
		l.expenses = prev
		l.record(log.OpRemove, err)
		return err
	}
	l.record(log.OpRemove, nil)
	l.logger.InfoContext(ctx, "expense removed", log.FieldExpenseID, id)
	return nil
}

// Clear removes every record and erases the persisted records. Settings stay.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(ctx, DataKey); err != nil {
		l.record(log.OpClear, err)
		return fmt.Errorf("clear expenses: %w", err)
	}
	n := len(l.expenses)
	l.expenses = nil
	l.record(log.OpClear, nil)
	l.logger.InfoContext(ctx, "ledger cleared", "records", n)
	return nil
}

// Reset erases everything in the store and restores default settings.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Clear(ctx); err != nil {
		l.record(log.OpReset, err)
		return fmt.Errorf("reset store: %w", err)
	}
	l.expenses = nil
	l.settings = core.DefaultSettings()
	clear(l.pending)
	l.record(log.OpReset, nil)
	l.logger.InfoContext(ctx, "ledger reset")
	return nil
}

// UpdateSettings replaces the settings as a whole.
func (l *Ledger) UpdateSettings(ctx context.Context, s core.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.UserName = strings.TrimSpace(s.UserName)

	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := l.store.Set(ctx, SettingsKey, b); err != nil {
		l.record(log.OpSettings, err)
		return fmt.Errorf("persist settings: %w", err)
	}
	l.settings = s
	l.record(log.OpSettings, nil)
	return nil
}

func (l *Ledger) persistExpenses(ctx context.Context) error {
	exps := l.expenses
	if exps == nil {
		exps = []core.Expense{}
	}
	b, err := json.Marshal(exps)
	if err != nil {
		return fmt.Errorf("encode expenses: %w", err)
	}
	if err := l.store.Set(ctx, DataKey, b); err != nil {
		return fmt.Errorf("persist expenses: %w", err)
	}
	return nil
}

// record updates metrics after a mutation. Callers hold mu.
func (l *Ledger) record(op string, err error) {
	metrics.LedgerOperations.WithLabelValues(op, metrics.Outcome(err)).Inc()
	if err != nil {
		l.logger.Error("ledger mutation failed", log.FieldOperation, op, log.FieldError, err.Error())
		return
	}
	l.observeLocked()
}

func (l *Ledger) observe() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observeLocked()
}

func (l *Ledger) observeLocked() {
	s := core.Summarize(l.expenses, l.settings)
	metrics.LedgerRecords.Set(float64(s.Count))
	metrics.LedgerBalanceCents.Set(float64(s.Balance.Cents))
}

// Totals computes the derived figures for the current state.
func (l *Ledger) Totals() core.Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return core.Summarize(l.expenses, l.settings)
}

// RecentActivity yields up to n records, newest first, from the state at
// call time. The sequence can be ranged over more than once.
func (l *Ledger) RecentActivity(n int) iter.Seq[core.Expense] {
	l.mu.Lock()
	view := l.expenses[:min(max(n, 0), len(l.expenses))]
	l.mu.Unlock()

	return func(yield func(core.Expense) bool) {
		for _, e := range view {
			if !yield(e) {
				return
			}
		}
	}
}

// Expenses returns a copy of all records, newest first.
func (l *Ledger) Expenses() []core.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.expenses)
}

func (l *Ledger) Get(id string) (core.Expense, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := slices.IndexFunc(l.expenses, func(e core.Expense) bool { return e.ID == id })
	if i < 0 {
		return core.Expense{}, false
	}
	return l.expenses[i], true
}

func (l *Ledger) Settings() core.Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.expenses)
}

// Snapshot returns an immutable view for readers and exports.
func (l *Ledger) Snapshot() core.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return core.Snapshot{
		Expenses:    slices.Clone(l.expenses),
		Settings:    l.settings,
		GeneratedAt: l.now(),
	}
}

// IsNotFound reports errors about unknown pending actions.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrActionNotFound)
}

func newActionID() string {
	return uuid.NewString()
}
