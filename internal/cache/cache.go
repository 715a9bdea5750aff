// Package cache holds in-process caches with TTL expiry. The extraction
// adapter uses it to remember suggestions per receipt image so a retried
// upload of the same photo does not hit the remote service again.
package cache

import (
	"context"
	"time"

	"expensy/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic cleanup for registered caches.
type Manager struct {
	caches []Cleaner
	logger *log.Logger
	done   chan struct{}
	cancel context.CancelFunc
}

// NewManager creates a new cache manager
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{logger: logger.WithComponent(log.ComponentCache)}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// Start begins periodic cleanup until ctx is done or Stop is called.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.loop(ctx, interval)
}

func (m *Manager) loop(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				m.logger.Debug("expired cache entries removed", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// CleanAll cleans every registered cache once and returns the entries removed.
func (m *Manager) CleanAll() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup loop and waits for it. Safe to call if never started.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
}
