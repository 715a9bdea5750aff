// Package extraction asks a remote model for a best-effort guess of a
// receipt's amount, category and date. Every failure collapses to "no
// result"; callers fall back to manual entry.
package extraction

import (
	"context"
	"time"

	"expensy/internal/core"
	"expensy/internal/log"
	"expensy/internal/metrics"
)

// Service proposes field values for a normalized receipt image.
// ok is false when there is nothing to suggest.
type Service interface {
	Suggest(ctx context.Context, img core.Image) (x core.Extraction, ok bool)
}

const (
	DefaultModel    = "gemini-2.5-flash"
	DefaultTimeout  = 30 * time.Second
	DefaultCacheTTL = time.Hour
	DefaultCacheLen = 128
)

type Config struct {
	APIKey string
	Model  string
	// Endpoint overrides the API base URL, mostly for tests.
	Endpoint  string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// New returns the Gemini-backed service, or Disabled when no key is set.
func New(ctx context.Context, cfg Config, logger *log.Logger) (Service, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentExtraction)
	if cfg.APIKey == "" {
		logger.Info("no API key configured, receipt extraction disabled")
		return Disabled{}, nil
	}
	return NewGemini(ctx, cfg, logger)
}

// Disabled never suggests anything.
type Disabled struct{}

func (Disabled) Suggest(context.Context, core.Image) (core.Extraction, bool) {
	metrics.ExtractionRequests.WithLabelValues("disabled").Inc()
	return core.Extraction{}, false
}
