// Package http exposes the ledger, draft capture and exports as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"expensy/internal/capture"
	"expensy/internal/ledger"
	"expensy/internal/log"
	"expensy/internal/middleware/ratelimit"
	"expensy/internal/middleware/security"
	"expensy/internal/middleware/trace"
	"expensy/internal/report"
)

// Deps are the services the server routes to.
type Deps struct {
	Ledger   *ledger.Ledger
	Captures *capture.Manager
	Reports  *report.Assembler
	Logger   *log.Logger
	// UploadLimit throttles receipt and QR code uploads per client.
	UploadLimit ratelimit.Config
}

type Server struct {
	http.Server

	ledger   *ledger.Ledger
	captures *capture.Manager
	reports  *report.Assembler
	logger   *log.Logger

	detector *security.Detector
	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter

	started      time.Time
	stopSweep    context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector(logger)

	s := &Server{
		ledger:   d.Ledger,
		captures: d.Captures,
		reports:  d.Reports,
		logger:   logger,
		detector: detector,
		tracer:   trace.NewMiddleware(logger, detector.ClientIP),
		limiter:  ratelimit.NewLimiter(d.UploadLimit),
		started:  time.Now(),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweep = cancel
	go s.limiter.Run(ctx, 5*time.Minute)

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string { return trace.RequestID(r.Context()) }))
	r.Use(s.tracer.Handler)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	upload := s.limiter.Middleware(s.detector.ClientIP)

	r.Route("/api", func(r chi.Router) {
		r.Use(security.NoStore)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Delete("/", s.handleRequestClear)
			r.Get("/{id}", s.handleGetExpense)
			r.Delete("/{id}", s.handleRequestRemove)
		})
		r.Post("/reset", s.handleRequestReset)
		r.Get("/summary", s.handleSummary)

		r.Route("/actions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetAction)
			r.Post("/confirm", s.handleResolveAction(true))
			r.Post("/cancel", s.handleResolveAction(false))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handleUpdateSettings)
			r.With(upload).Put("/pix", s.handleSetPix)
			r.Delete("/pix", s.handleDeletePix)
		})

		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", s.handleOpenDraft)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDraft)
				r.Put("/", s.handleEditDraft)
				r.Delete("/", s.handleDiscardDraft)
				r.With(upload).Post("/receipt", s.handleAttachReceipt)
				r.Delete("/receipt", s.handleRemoveReceipt)
				r.Post("/submit", s.handleSubmitDraft)
			})
		})
	})

	r.With(security.NoStore).Get("/export/{file}", s.handleExport)

	return r
}

// Shutdown stops background work and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stopSweep()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"records":   s.ledger.Len(),
		"drafts":    s.captures.Len(),
		"requests":  s.tracer.Requests(),
	})
}
