package resolve

import (
	"sort"

	"phono/internal/fingerprint"
	"phono/internal/library"
)

// Cluster is one group of acoustically equivalent tracks, expressed as
// indices into the track slice handed to Clusters. Exactly one member is
// canonical. A singleton cluster is a track with no duplicates.
type Cluster struct {
	Members   []int
	Canonical int
}

// Clusters partitions tracks into duplicate clusters: an edge connects two
// tracks whose fingerprint distance is within maxFraction, and clusters are
// the connected components of that graph. Membership does not chain beyond
// components; two tracks without a path of threshold edges between them stay
// apart no matter how close their neighbours are.
//
// The pairwise comparison is quadratic in the number of tracks, which is fine
// for personal-collection sizes; Hamming distance over packed bits keeps the
// constant small.
func Clusters(tracks []library.Track, maxFraction float64) []Cluster {
	set := newDisjointSet(len(tracks))
	for i := 0; i < len(tracks); i++ {
		for j := i + 1; j < len(tracks); j++ {
			if fingerprint.Similar(tracks[i].Fingerprint, tracks[j].Fingerprint, maxFraction) {
				set.union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range tracks {
		root := set.find(i)
		groups[root] = append(groups[root], i)
	}

	clusters := make([]Cluster, 0, len(groups))
	for _, members := range groups {
		sortMembers(tracks, members)
		clusters = append(clusters, Cluster{
			Members:   members,
			Canonical: members[0],
		})
	}

	// Stable output order for deterministic downstream processing.
	sort.Slice(clusters, func(a, b int) bool {
		return tracks[clusters[a].Canonical].Path < tracks[clusters[b].Canonical].Path
	})
	return clusters
}

// sortMembers orders cluster members by the canonical election rule so that
// members[0] is the elected canonical and the rest follow in preference
// order.
func sortMembers(tracks []library.Track, members []int) {
	sort.Slice(members, func(a, b int) bool {
		return Precedes(tracks[members[a]], tracks[members[b]])
	})
}

// Precedes is the total order behind canonical election and metadata merge:
// higher audio quality first (bitrate, then sample rate, when known), then
// earliest indexed (lowest generation, then scan time), then lexicographically
// smallest path. The path comparison makes the order total, which is what
// keeps election stable across re-scans.
func Precedes(a, b library.Track) bool {
	if a.Bitrate != b.Bitrate {
		return a.Bitrate > b.Bitrate
	}
	if a.SampleRate != b.SampleRate {
		return a.SampleRate > b.SampleRate
	}
	if a.GenerationAdded != b.GenerationAdded {
		return a.GenerationAdded < b.GenerationAdded
	}
	if !a.ScannedAt.Equal(b.ScannedAt) {
		return a.ScannedAt.Before(b.ScannedAt)
	}
	return a.Path < b.Path
}
