package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"phono/internal/config"
	"phono/internal/library"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase the library index",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("reset erases the whole index; re-run with --force to confirm")
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				return ctx.withScanLock(cfg, func() error {
					if err := store.Reset(cmd.Context()); err != nil {
						return fmt.Errorf("reset library: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Library index reset; next scan starts from generation 1")
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm erasing the index")
	return cmd
}
