package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/repackdex/repackdex/internal/api"
	"github.com/repackdex/repackdex/internal/catalog"
	"github.com/repackdex/repackdex/internal/config"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Handler returns the HTTP handler serving the catalog API.
func (r *Runtime) Handler() http.Handler {
	return api.NewRouter(r.cache, r.ledger, r.log)
}

// Serve warms the cache and runs the HTTP server, the catalog file watcher and
// the incremental sync loop until ctx is cancelled or one of them fails.
func (r *Runtime) Serve(ctx context.Context) error {
	if r == nil || r.cache == nil {
		return fmt.Errorf("runtime is not initialized")
	}

	if entries, err := r.cache.Entries(ctx); err != nil {
		r.log.WarnObj("catalog warmup failed", "catalog_warmup", map[string]any{"error": err.Error()})
	} else {
		r.log.InfoObj("catalog warmed", "catalog_warmup", map[string]any{
			"entries":   len(entries),
			"db_path":   r.store.Path(),
			"filled_at": r.cache.FilledAt(),
		})
	}

	srv := &http.Server{
		Addr:              r.cfg.Address(),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.log.InfoObj("http server starting", "http_address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		r.log.InfoObj("http server shutting down", "reason", context.Cause(gCtx))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.log.ErrorObj("http server shutdown failed", "error", err.Error())
		}
		return nil
	})

	g.Go(func() error {
		if err := catalog.WatchFile(gCtx, r.cache, r.store.Path(), r.log); err != nil {
			r.log.WarnObj("catalog watcher stopped", "catalog_watch", map[string]any{"error": err.Error()})
		}
		return nil
	})

	if r.cfg.SyncInterval > 0 {
		g.Go(func() error {
			r.schedule(gCtx, r.cfg.SyncInterval)
			return nil
		})
	} else {
		r.log.InfoObj("scheduled sync disabled", "sync_interval", r.cfg.SyncInterval.String())
	}

	err := g.Wait()
	r.log.InfoObj("server stopped", "error", errString(err))
	return err
}

// schedule runs an incremental sync every interval until ctx is cancelled.
func (r *Runtime) schedule(ctx context.Context, interval time.Duration) {
	r.log.InfoObj("sync loop starting", "sync_loop", map[string]any{
		"interval": interval.String(),
		"pages":    r.cfg.UpdatePages,
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("sync loop exiting", "reason", ctx.Err())
			return
		case <-ticker.C:
			if _, err := r.Sync(ctx, config.ModeIncremental, 0); err != nil && ctx.Err() == nil {
				r.log.ErrorObj("scheduled sync failed", "error", err.Error())
			}
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
