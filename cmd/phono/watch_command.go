package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"phono/internal/config"
	"phono/internal/library"
	"phono/internal/logging"
	"phono/internal/scan"
	"phono/internal/sidecar"
	"phono/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var skipInitial bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the music directory and scan on changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				return ctx.withScanLock(cfg, func() error {
					return runWatch(cmd, ctx, cfg, store, skipInitial)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&skipInitial, "skip-initial-scan", false, "Do not run a full pass before watching")
	return cmd
}

func runWatch(cmd *cobra.Command, cmdCtx *commandContext, cfg *config.Config, store *library.Store, skipInitial bool) error {
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return err
	}
	orch, err := cmdCtx.newOrchestrator(cfg, store)
	if err != nil {
		return err
	}
	rewriter := sidecar.NewRewriter(cfg, logger)

	signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !skipInitial {
		if err := runScanPass(cmd, cmdCtx, cfg, store); err != nil && !errors.Is(err, scan.ErrScanFailed) {
			return err
		}
	}

	watcher, err := watch.New(cfg, logger)
	if err != nil {
		return err
	}
	defer watcher.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl-C to stop)\n", cfg.Paths.MusicDir)
	err = watcher.Run(signalCtx, func(passCtx context.Context, events []scan.Event) {
		summary, runErr := orch.Run(passCtx, events)
		if summary != nil {
			printSummary(cmd, summary)
		}
		if runErr != nil {
			logger.Error("scan pass failed", logging.Error(runErr))
			return
		}
		if cfg.Sidecar.Enabled {
			if err := rewriter.Apply(summary); err != nil {
				logger.Error("sidecar rewrite failed", logging.Error(err))
			}
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
