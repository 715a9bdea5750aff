package ledger

import (
	"context"
	"fmt"

	"expensy/internal/core"
	"expensy/internal/log"
)

// RequestRemove stages the deletion of one record. Nothing changes until
// the returned action is confirmed.
func (l *Ledger) RequestRemove(id string) core.PendingAction {
	return l.request(core.ActionRemove, id)
}

// RequestClear stages the deletion of every record.
func (l *Ledger) RequestClear() core.PendingAction {
	return l.request(core.ActionClear, "")
}

// RequestReset stages erasing records, settings and every stored key.
func (l *Ledger) RequestReset() core.PendingAction {
	return l.request(core.ActionReset, "")
}

func (l *Ledger) request(kind core.ActionKind, expenseID string) core.PendingAction {
	a := core.PendingAction{
		ID:        newActionID(),
		Kind:      kind,
		ExpenseID: expenseID,
		Prompt:    core.PromptFor(kind),
		CreatedAt: l.now(),
	}
	l.mu.Lock()
	l.pending[a.ID] = a
	l.mu.Unlock()
	return a
}

// Pending returns a staged action by id.
func (l *Ledger) Pending(id string) (core.PendingAction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.pending[id]
	if !ok || l.expired(a) {
		return core.PendingAction{}, false
	}
	return a, true
}

// Resolve confirms or cancels a staged action. A cancelled action leaves
// all state untouched. Either way the action is consumed.
func (l *Ledger) Resolve(ctx context.Context, id string, confirm bool) (core.PendingAction, error) {
	l.mu.Lock()
	a, ok := l.pending[id]
	delete(l.pending, id)
	if ok && l.expired(a) {
		ok = false
	}
	l.mu.Unlock()
	if !ok {
		return core.PendingAction{}, fmt.Errorf("%w: %s", core.ErrActionNotFound, id)
	}

	fields := log.NewFields().WithAction(a)
	if !confirm {
		l.logger.InfoContext(ctx, "destructive action cancelled", fields.WithOperation(log.OpCancel).ToSlice()...)
		return a, nil
	}

	var err error
	switch a.Kind {
	case core.ActionRemove:
		err = l.Remove(ctx, a.ExpenseID)
	case core.ActionClear:
		err = l.Clear(ctx)
	case core.ActionReset:
		err = l.Reset(ctx)
	default:
		err = fmt.Errorf("unknown action kind %q", a.Kind)
	}
	if err != nil {
		return a, err
	}
	l.logger.InfoContext(ctx, "destructive action confirmed", fields.WithOperation(log.OpConfirm).ToSlice()...)
	return a, nil
}

// expired reports an action staged longer ago than the pending TTL.
// Callers hold l.mu.
func (l *Ledger) expired(a core.PendingAction) bool {
	return l.pendingTTL > 0 && l.now().Sub(a.CreatedAt) > l.pendingTTL
}

// CleanExpired drops staged actions nobody resolved in time and returns how
// many went.
func (l *Ledger) CleanExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for id, a := range l.pending {
		if l.expired(a) {
			delete(l.pending, id)
			n++
		}
	}
	return n
}

// PendingLen returns the number of staged actions.
func (l *Ledger) PendingLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
