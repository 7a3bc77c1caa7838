package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"phono/internal/config"
	"phono/internal/library"
	"phono/internal/scan"
	"phono/internal/sidecar"
	"phono/internal/watch"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one full scan pass over the music directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				return ctx.withScanLock(cfg, func() error {
					return runScanPass(cmd, ctx, cfg, store)
				})
			})
		},
	}
}

func runScanPass(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, store *library.Store) error {
	orch, err := ctx.newOrchestrator(cfg, store)
	if err != nil {
		return err
	}

	tracks, err := store.Tracks(cmd.Context())
	if err != nil {
		return fmt.Errorf("list indexed tracks: %w", err)
	}
	indexed := make([]string, 0, len(tracks))
	for _, track := range tracks {
		indexed = append(indexed, track.Path)
	}

	found, err := watch.Walk(cfg)
	if err != nil {
		return fmt.Errorf("walk music directory: %w", err)
	}

	events := scan.EventsFromListing(indexed, found)
	summary, runErr := orch.Run(cmd.Context(), events)
	if summary != nil {
		printSummary(cmd, summary)
	}
	if runErr != nil {
		if errors.Is(runErr, scan.ErrScanFailed) && summary != nil {
			return fmt.Errorf("scan pass committed nothing: %w", runErr)
		}
		return runErr
	}

	if cfg.Sidecar.Enabled {
		logger, err := ctx.ensureLogger()
		if err != nil {
			return err
		}
		if err := sidecar.NewRewriter(cfg, logger).Apply(summary); err != nil {
			return fmt.Errorf("rewrite sidecars: %w", err)
		}
	}
	return nil
}
