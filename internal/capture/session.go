package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expensy/internal/core"
)

// Session is one draft in progress.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	draft     core.Draft
	state     State
	gen       uint64
	done      chan struct{}
	expenseID string

	// seen is guarded by the manager's mutex.
	seen time.Time
}

// View is a consistent copy of a session's state.
type View struct {
	ID        string
	State     State
	Draft     core.Draft
	ExpenseID string
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{ID: s.ID, State: s.state, Draft: s.draft, ExpenseID: s.expenseID}
}

func (s *Session) Draft() core.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Edit applies a manual change. Fields the change touches stop being marked
// as suggested.
func (s *Session) Edit(fn func(d *core.Draft)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitted {
		return fmt.Errorf("%w: %s", core.ErrDraftSubmitted, s.ID)
	}
	before := s.draft
	fn(&s.draft)
	after := &s.draft
	if after.Amount != before.Amount {
		after.Suggested.Remove(core.FieldAmount)
	}
	if after.Category != before.Category {
		after.Suggested.Remove(core.FieldCategory)
	}
	if !after.Date.Equal(before.Date.Time) {
		after.Suggested.Remove(core.FieldDate)
	}
	if after.Description != before.Description {
		after.Suggested.Remove(core.FieldDescription)
	}
	return nil
}

// RemoveReceipt drops the attached image and ignores any pending extraction.
func (s *Session) RemoveReceipt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitted {
		return fmt.Errorf("%w: %s", core.ErrDraftSubmitted, s.ID)
	}
	s.draft.ReceiptImage = nil
	s.gen++
	s.state = StateEditing
	return nil
}

// Wait blocks until the latest extraction has finished or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
