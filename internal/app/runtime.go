// Package app wires the sync engine and the read path into runnable processes.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/repackdex/repackdex/internal/catalog"
	"github.com/repackdex/repackdex/internal/catalogsync"
	"github.com/repackdex/repackdex/internal/config"
	"github.com/repackdex/repackdex/internal/logger"
	"github.com/repackdex/repackdex/internal/storage"
	"github.com/repackdex/repackdex/pkg/igdb"
	"github.com/repackdex/repackdex/pkg/publishers"
	"github.com/repackdex/repackdex/pkg/sources"
)

// Runtime wires the listing source, metadata client, catalog store and cache,
// run ledger and announcers into one synchronizer. It backs both the long-running
// server and the one-shot sync command.
type Runtime struct {
	cfg    *config.Config
	source sources.Source
	syncer *catalogsync.Service
	store  *catalog.FileStore
	cache  *catalog.Cache
	ledger storage.Store
	fanout *publishers.Fanout
	log    logger.Logger
}

// Deps lets callers replace collaborators that would otherwise be built from config.
// Zero values mean "build from config".
type Deps struct {
	HTTPClient sources.HTTPClient
	Sources    *sources.TypeRegistry
}

// New builds a runtime from config. ctx bounds cache rebuilds started in the background.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, deps Deps) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = sources.DefaultHTTPClient()
	}
	if deps.Sources == nil {
		deps.Sources = sources.DefaultTypeRegistry()
	}

	sourceReg, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	srcCfg, ok := sourceReg.ByID(cfg.SourceID)
	if !ok {
		return nil, fmt.Errorf("source %q not found in %s", cfg.SourceID, cfg.SourcesFile)
	}
	src, err := deps.Sources.SourceFor(srcCfg, deps.HTTPClient, log)
	if err != nil {
		return nil, fmt.Errorf("build listing source: %w", err)
	}
	log.InfoObj("listing source loaded", "source_meta", map[string]any{
		"id":               srcCfg.ID,
		"type":             srcCfg.Type,
		"base_url":         srcCfg.BaseURL,
		"request_delay_ms": srcCfg.RequestDelayMs,
		"pause_every":      srcCfg.PauseEvery,
	})

	meta := igdb.NewClient(igdb.Config{
		ClientID:      cfg.IGDBClientID,
		ClientSecret:  cfg.IGDBClientSecret,
		TokenURL:      cfg.IGDBTokenURL,
		APIURL:        cfg.IGDBAPIURL,
		ImageTemplate: cfg.IGDBImageTemplate,
	}, log)
	if !meta.Enabled() {
		log.WarnObj("metadata credentials missing; enrichment disabled", "igdb_enabled", false)
	}

	ledger, err := storage.NewStore(cfg.StorageType, cfg.RunsDBPath, storage.Options{
		RunTTL:          cfg.RunTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.RunsDBPath,
		"run_ttl_seconds":          int(cfg.RunTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	fanout, err := publishers.Load(ctx, cfg.PublishersFile, log)
	if err != nil {
		_ = ledger.Close()
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	log.InfoObj("publishers loaded", "publishers_meta", map[string]any{
		"file":  cfg.PublishersFile,
		"count": fanout.Size(),
	})

	store := catalog.NewFileStore(cfg.DBPath)
	syncer := catalogsync.NewService(src, meta, store, catalogsync.Options{
		SourceID:         srcCfg.ID,
		IncrementalPages: cfg.UpdatePages,
		SourcePacer:      catalogsync.NewPacer(srcCfg.RequestDelay(), srcCfg.PauseEvery, srcCfg.PauseDuration()),
		MetadataPacer: catalogsync.NewPacer(
			time.Duration(cfg.IGDBDelayMs)*time.Millisecond,
			cfg.IGDBPauseEvery,
			time.Duration(cfg.IGDBPauseMs)*time.Millisecond,
		),
		Announcer: fanout,
		Recorder:  ledger,
		Logger:    log,
	})

	cacheOpts := []catalog.Option{catalog.WithLogger(log), catalog.WithBaseContext(ctx)}
	if cfg.SyncOnStale {
		cacheOpts = append(cacheOpts, catalog.WithRebuilder(syncer))
	}

	return &Runtime{
		cfg:    cfg,
		source: srcCfg,
		syncer: syncer,
		store:  store,
		cache:  catalog.NewCache(store, cacheOpts...),
		ledger: ledger,
		fanout: fanout,
		log:    log,
	}, nil
}

// Sync runs one sync in the given mode and keeps the cache in step with its result.
// pages only applies to incremental syncs; <= 0 means the configured count.
func (r *Runtime) Sync(ctx context.Context, mode string, pages int) (catalogsync.Result, error) {
	if r == nil || r.syncer == nil {
		return catalogsync.Result{}, fmt.Errorf("runtime is not initialized")
	}

	var (
		res catalogsync.Result
		err error
	)
	switch mode {
	case config.ModeFull:
		res, err = r.syncer.FullSync(ctx)
	case config.ModeIncremental, "":
		res, err = r.syncer.IncrementalSync(ctx, pages)
	default:
		return catalogsync.Result{}, fmt.Errorf("unknown sync mode %q", mode)
	}

	// A failed save still yields the merged catalog; serve it.
	if res.Entries != nil {
		r.cache.Swap(res.Entries)
	}
	return res, err
}

// Close releases the run ledger and announcer clients.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.fanout != nil {
		if err := r.fanout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publishers: %w", err))
		}
	}
	if r.ledger != nil {
		if err := r.ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
