package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"phono/internal/config"
	"phono/internal/library"
)

func newDuplicatesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates",
		Short: "List duplicate clusters and their canonical tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				snapshot, err := store.Snapshot(cmd.Context())
				if err != nil {
					return fmt.Errorf("load snapshot: %w", err)
				}

				canonicalIDs := make([]int64, 0, len(snapshot.Duplicates))
				for id, members := range snapshot.Duplicates {
					if len(members) > 0 {
						canonicalIDs = append(canonicalIDs, id)
					}
				}
				if len(canonicalIDs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No duplicates")
					return nil
				}
				sort.Slice(canonicalIDs, func(a, b int) bool {
					return snapshot.Tracks[canonicalIDs[a]].Path < snapshot.Tracks[canonicalIDs[b]].Path
				})

				var rows [][]string
				for _, id := range canonicalIDs {
					canonical := snapshot.Tracks[id]
					members := append([]int64(nil), snapshot.Duplicates[id]...)
					sort.Slice(members, func(a, b int) bool {
						return snapshot.Tracks[members[a]].Path < snapshot.Tracks[members[b]].Path
					})
					for _, member := range members {
						duplicate := snapshot.Tracks[member]
						rows = append(rows, []string{
							canonical.Path,
							duplicate.Path,
							fmt.Sprintf("%d", duplicate.Bitrate),
						})
					}
				}

				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Canonical", "Duplicate", "Bitrate"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
