// Package resolve groups tracks into duplicate clusters by fingerprint
// similarity and elects one canonical member per cluster.
//
// Clustering is connected components over the threshold graph, computed with
// a disjoint set over an arena of track indices. Election applies a total
// order (quality, age, path) so the same inputs always produce the same
// canonical, which the rest of the pipeline depends on for idempotent
// re-scans.
package resolve
