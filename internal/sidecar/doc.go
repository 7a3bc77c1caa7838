// Package sidecar reads and rewrites the files that live alongside the music
// library: m3u playlists and tab-separated playcount logs. When a scan pass
// moves a file or folds a duplicate into its canonical track, the rewriter
// updates every sidecar reference so playlists and listening history follow
// the library.
package sidecar
