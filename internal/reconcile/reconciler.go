package reconcile

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hbollon/go-edlib"

	"phono/internal/library"
	"phono/internal/logging"
	"phono/internal/metadata"
	"phono/internal/resolve"
)

// ErrReconciliationConflict indicates a cluster had no members left after
// filtering removed files. A well-formed scan never produces this; it guards
// against feeding the merger inconsistent state.
var ErrReconciliationConflict = errors.New("reconciliation conflict")

// titleDivergenceFloor is the similarity below which two cluster members'
// titles are flagged as disagreeing. Acoustic duplicates normally share a
// title up to encoding noise; a low score usually means a mistag.
const titleDivergenceFloor = 0.5

// Merge produces the merged record for a cluster's canonical member. For each
// tag field the canonical member's value wins when present; otherwise the
// first present value in election order is taken. Audio properties and the
// fingerprint always come from the canonical member.
func Merge(tracks []library.Track, cluster resolve.Cluster) (library.Track, error) {
	if len(cluster.Members) == 0 {
		return library.Track{}, fmt.Errorf("%w: empty cluster", ErrReconciliationConflict)
	}

	ordered := make([]int, len(cluster.Members))
	copy(ordered, cluster.Members)
	sort.Slice(ordered, func(a, b int) bool {
		return resolve.Precedes(tracks[ordered[a]], tracks[ordered[b]])
	})

	merged := tracks[cluster.Canonical].Clone()
	for _, index := range ordered {
		member := tracks[index]
		if merged.Title == nil {
			merged.Title = metadata.FieldOrNil(member.Title)
		}
		if merged.Artist == nil {
			merged.Artist = metadata.FieldOrNil(member.Artist)
		}
		if merged.Album == nil {
			merged.Album = metadata.FieldOrNil(member.Album)
		}
		if merged.TrackNum == nil {
			merged.TrackNum = metadata.IntOrNil(member.TrackNum)
		}
	}
	return merged, nil
}

// WarnOnDivergentTitles logs when duplicate members carry clearly different
// titles, a common sign of a mistagged file. Comparison is fuzzy so encoding
// variants ("Song (Remastered)") don't trip the warning.
func WarnOnDivergentTitles(logger *slog.Logger, tracks []library.Track, cluster resolve.Cluster) {
	if logger == nil || len(cluster.Members) < 2 {
		return
	}
	canonical := tracks[cluster.Canonical]
	if canonical.Title == nil {
		return
	}
	for _, index := range cluster.Members {
		if index == cluster.Canonical {
			continue
		}
		member := tracks[index]
		if member.Title == nil {
			continue
		}
		score, err := edlib.StringsSimilarity(*canonical.Title, *member.Title, edlib.Levenshtein)
		if err != nil {
			continue
		}
		if float64(score) < titleDivergenceFloor {
			logger.Warn("duplicate members disagree on title",
				logging.String("canonical_title", *canonical.Title),
				logging.String("member_title", *member.Title),
				logging.String(logging.FieldPath, member.Path),
				logging.String(logging.FieldEventType, "title_divergence"),
				logging.String(logging.FieldErrorHint, "check tags; one of the duplicates is likely mistagged"),
			)
		}
	}
}
