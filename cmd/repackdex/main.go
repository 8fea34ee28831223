package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/repackdex/repackdex/internal/app"
	"github.com/repackdex/repackdex/internal/config"
	"github.com/repackdex/repackdex/internal/logger"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "repackdex",
		Usage: "Game repack catalog: scrape, enrich and serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the catalog API and keep it in sync",
				Action: serve,
			},
			{
				Name:   "sync",
				Usage:  "Run one sync and exit",
				Action: syncOnce,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "full or incremental",
						Value:   config.ModeIncremental,
						Sources: cli.EnvVars("SYNC_MODE"),
					},
					&cli.IntFlag{
						Name:    "pages",
						Aliases: []string{"p"},
						Usage:   "pages to crawl in incremental mode (0 uses UPDATE_PAGES)",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "repackdex: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, _ *cli.Command) error {
	return run(ctx, "serve", func(ctx context.Context, rt *app.Runtime) error {
		if err := rt.Serve(ctx); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
}

func syncOnce(ctx context.Context, cmd *cli.Command) error {
	mode := cmd.String("mode")
	pages := int(cmd.Int("pages"))
	return run(ctx, "sync", func(ctx context.Context, rt *app.Runtime) error {
		res, err := rt.Sync(ctx, mode, pages)
		if err != nil {
			return fmt.Errorf("%s sync: %w", mode, err)
		}
		logger.InfoObj("sync finished", "sync_result", map[string]any{
			"mode":    res.Report.Mode,
			"entries": len(res.Entries),
			"new":     res.Report.New,
		})
		return nil
	})
}

func run(ctx context.Context, name string, fn func(context.Context, *app.Runtime) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("repackdex "+name+" starting", "config", cfg.Summary())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.New(ctx, cfg, log, app.Deps{})
	if err != nil {
		logger.ErrorObj("failed to initialize runtime", "error", err.Error())
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.ErrorObj("runtime close failed", "error", err.Error())
		}
	}()

	return fn(ctx, rt)
}
