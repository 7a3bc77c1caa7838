package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"phono/internal/scan"
)

const timeRounding = time.Millisecond

func printSummary(cmd *cobra.Command, summary *scan.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pass %s committed generation %d in %s\n", summary.PassID, summary.Generation, summary.Duration.Round(timeRounding))
	fmt.Fprintln(out, renderTable(
		[]string{"Added", "Updated", "Moved", "Merged", "Removed", "Failed"},
		[][]string{{
			fmt.Sprint(summary.Added),
			fmt.Sprint(summary.Updated),
			fmt.Sprint(summary.Moved),
			fmt.Sprint(summary.Merged),
			fmt.Sprint(summary.Removed),
			fmt.Sprint(summary.Failed),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))

	for old, current := range summary.Moves {
		fmt.Fprintf(out, "moved: %s -> %s\n", old, current)
	}
	for duplicate, canonical := range summary.MergedPaths {
		fmt.Fprintf(out, "duplicate: %s -> %s\n", duplicate, canonical)
	}
	for _, failure := range summary.Failures {
		fmt.Fprintf(out, "failed: %s: %v\n", failure.Path, failure.Err)
	}
}
