package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"expensy/internal/cache"
	"expensy/internal/capture"
	"expensy/internal/extraction"
	apphttp "expensy/internal/http"
	"expensy/internal/log"
	"expensy/internal/middleware/ratelimit"
	"expensy/internal/report"
)

const (
	shutdownTimeout    = 10 * time.Second
	cacheCleanInterval = 5 * time.Minute
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("port", "", "Listen port (overrides PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, app *App) error {
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			app.Config.Port = port
		}
		logger := app.Logger.WithComponent(log.ComponentApp)

		ctx, cancel := GracefulShutdown(ctx, logger)
		defer cancel()

		extractor, err := newExtractor(ctx, app)
		if err != nil {
			return err
		}
		captures := capture.NewManager(app.Ledger, extractor, logger)
		defer captures.Close()

		// Stale drafts and unconfirmed actions are swept with the caches.
		caches := cache.NewManager(logger)
		if g, ok := extractor.(*extraction.Gemini); ok {
			caches.Register(g.Cache())
		}
		caches.Register(captures)
		caches.Register(app.Ledger)
		caches.Start(ctx, cacheCleanInterval)
		defer caches.Stop()

		reports, err := report.New()
		if err != nil {
			return err
		}

		srv := apphttp.NewServer(":"+app.Config.Port, apphttp.Deps{
			Ledger:      app.Ledger,
			Captures:    captures,
			Reports:     reports,
			Logger:      logger,
			UploadLimit: ratelimit.DefaultConfig(),
		})

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server",
				log.FieldOperation, log.OpStartup,
				"addr", srv.Addr,
				"backend", app.Config.DataBackend,
				"extraction", app.Config.ExtractionEnabled(),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
			return err
		}
		logger.Info("Server exited")
		return nil
	})
}

func newExtractor(ctx context.Context, app *App) (extraction.Service, error) {
	c := app.Config
	return extraction.New(ctx, extraction.Config{
		APIKey:    c.GeminiAPIKey,
		Model:     c.GeminiModel,
		Endpoint:  c.GeminiEndpoint,
		Timeout:   c.ExtractionTimeout,
		CacheSize: c.ExtractionCacheSize,
		CacheTTL:  c.ExtractionCacheTTL,
	}, app.Logger)
}
