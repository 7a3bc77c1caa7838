package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"phono/internal/config"
	"phono/internal/library"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show library index status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				snapshot, err := store.Snapshot(cmd.Context())
				if err != nil {
					return fmt.Errorf("load snapshot: %w", err)
				}

				canonical := len(snapshot.Canonical())
				duplicates := len(snapshot.Tracks) - canonical
				clusters := 0
				for _, members := range snapshot.Duplicates {
					if len(members) > 0 {
						clusters++
					}
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database:           %s\n", store.Path())
				fmt.Fprintf(out, "Generation:         %d\n", snapshot.Generation)
				fmt.Fprintf(out, "Tracks:             %d\n", len(snapshot.Tracks))
				fmt.Fprintf(out, "Canonical:          %d\n", canonical)
				fmt.Fprintf(out, "Duplicates:         %d\n", duplicates)
				fmt.Fprintf(out, "Duplicate clusters: %d\n", clusters)
				return nil
			})
		},
	}
}
