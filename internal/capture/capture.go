// Package capture runs draft sessions: manual edits, receipt attachment and
// the background extraction that may fill in fields while the user types.
package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensy/internal/core"
	"expensy/internal/extraction"
	"expensy/internal/imaging"
	"expensy/internal/log"
)

// State of a draft session.
type State string

const (
	StateEditing    State = "editing"
	StateExtracting State = "extracting"
	StateSubmitted  State = "submitted"
)

// Appender stores a finished draft.
type Appender interface {
	Append(ctx context.Context, d core.Draft) (core.Expense, error)
}

// Manager tracks open sessions. Extraction goroutines run under the
// manager's context, not the caller's, so they outlive an HTTP request.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ledger    Appender
	extractor extraction.Service
	logger    *log.Logger
	now       func() time.Time
	ttl       time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// DefaultSessionTTL is how long an untouched draft is kept.
const DefaultSessionTTL = 2 * time.Hour

type Option func(*Manager)

// WithSessionTTL sets how long a draft may sit untouched before it is swept.
func WithSessionTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(ledger Appender, extractor extraction.Service, logger *log.Logger, opts ...Option) *Manager {
	if extractor == nil {
		extractor = extraction.Disabled{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		sessions:  make(map[string]*Session),
		ledger:    ledger,
		extractor: extractor,
		logger:    logger.WithComponent(log.ComponentCapture),
		now:       time.Now,
		ttl:       DefaultSessionTTL,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Open starts a blank draft: today's date, parking category.
func (m *Manager) Open() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: m.now(),
		draft:     core.NewDraft(m.now()),
		state:     StateEditing,
	}
	m.mu.Lock()
	s.seen = s.CreatedAt
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get looks up a session and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.seen = m.now()
	}
	return s, ok
}

// CleanExpired discards sessions untouched for longer than the TTL and
// returns how many went.
func (m *Manager) CleanExpired() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.seen.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	if n > 0 {
		m.logger.Debug("stale drafts discarded", "count", n)
	}
	return n
}

// Discard drops a session. A pending extraction for it finishes unseen.
func (m *Manager) Discard(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// AttachReceipt normalizes raw and stores it on the draft, then asks the
// extractor for suggestions in the background. On a decode error the draft
// is left as it was. A later attach supersedes an in-flight extraction.
func (m *Manager) AttachReceipt(ctx context.Context, s *Session, raw []byte) error {
	img, err := imaging.NormalizeBytes(raw, imaging.ReceiptProfile)
	if err != nil {
		m.logger.WarnContext(ctx, "receipt rejected", log.FieldDraftID, s.ID, log.FieldError, err.Error())
		return err
	}

	s.mu.Lock()
	if s.state == StateSubmitted {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", core.ErrDraftSubmitted, s.ID)
	}
	s.draft.ReceiptImage = &img
	s.gen++
	gen := s.gen
	done := make(chan struct{})
	s.done = done
	s.state = StateExtracting
	s.mu.Unlock()

	m.logger.DebugContext(ctx, "receipt attached", log.FieldDraftID, s.ID, log.FieldBytes, len(img.Data))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(done)
		m.extract(s, gen, img)
	}()
	return nil
}

func (m *Manager) extract(s *Session, gen uint64, img core.Image) {
	x, ok := m.extractor.Suggest(m.ctx, img)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateSubmitted:
		m.logger.Debug("extraction finished after submit, result discarded", log.FieldDraftID, s.ID)
	case s.gen != gen:
		m.logger.Debug("extraction superseded by a newer receipt", log.FieldDraftID, s.ID)
	default:
		if ok {
			s.draft = s.draft.Merge(x)
			m.logger.Debug("extraction merged", log.FieldDraftID, s.ID, "fields", s.draft.Suggested.Names())
		}
		s.state = StateEditing
	}
}

// Submit appends the draft as it is now, even while extraction is pending.
// Validation errors leave the session editable.
func (m *Manager) Submit(ctx context.Context, s *Session) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitted {
		return core.Expense{}, fmt.Errorf("%w: %s", core.ErrDraftSubmitted, s.ID)
	}
	e, err := m.ledger.Append(ctx, s.draft)
	if err != nil {
		return core.Expense{}, err
	}
	s.state = StateSubmitted
	s.expenseID = e.ID

	m.Discard(s.ID)
	return e, nil
}

// Close stops background extraction and waits for it.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}
