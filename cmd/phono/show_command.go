package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"phono/internal/config"
	"phono/internal/library"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <path-or-id>",
		Short: "Show one indexed track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				track, err := lookupTrack(cmd, store, args[0])
				if err != nil {
					return err
				}
				if track == nil {
					return fmt.Errorf("no track matches %q", args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:               %d\n", track.ID)
				fmt.Fprintf(out, "Path:             %s\n", track.Path)
				fmt.Fprintf(out, "Canonical:        %s\n", canonicalLabel(cmd, store, track))
				fmt.Fprintf(out, "Title:            %s\n", orUnknown(track.Title))
				fmt.Fprintf(out, "Artist:           %s\n", orUnknown(track.Artist))
				fmt.Fprintf(out, "Album:            %s\n", orUnknown(track.Album))
				if track.TrackNum != nil {
					fmt.Fprintf(out, "Track number:     %d\n", *track.TrackNum)
				}
				fmt.Fprintf(out, "Duration:         %.1fs\n", track.DurationSecs)
				fmt.Fprintf(out, "Bitrate:          %d kbit/s\n", track.Bitrate)
				fmt.Fprintf(out, "Sample rate:      %d Hz\n", track.SampleRate)
				fmt.Fprintf(out, "Generation added: %d\n", track.GenerationAdded)
				fmt.Fprintf(out, "Scanned at:       %s\n", track.ScannedAt.Format(time.RFC3339))
				fmt.Fprintf(out, "Fingerprint:      %s\n", track.Fingerprint.String()[:16]+"...")
				return nil
			})
		},
	}
}

func lookupTrack(cmd *cobra.Command, store *library.Store, key string) (*library.Track, error) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		track, err := store.GetByID(cmd.Context(), id)
		if err != nil {
			return nil, err
		}
		if track != nil {
			return track, nil
		}
	}
	return store.GetByPath(cmd.Context(), key)
}

func canonicalLabel(cmd *cobra.Command, store *library.Store, track *library.Track) string {
	if track.IsCanonical() {
		return "yes"
	}
	canonical, err := store.GetByID(cmd.Context(), track.CanonicalID)
	if err != nil || canonical == nil {
		return fmt.Sprintf("no (id %d)", track.CanonicalID)
	}
	return fmt.Sprintf("no (duplicate of %s)", canonical.Path)
}

func orUnknown(value *string) string {
	if value == nil {
		return "(unknown)"
	}
	return *value
}
