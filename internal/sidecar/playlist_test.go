package sidecar_test

import (
	"strings"
	"testing"

	"phono/internal/sidecar"
)

const sampleM3U = `#EXTM3U
#EXTINF:180,Band - Alpha
music/a.mp3
#EXTINF:200,Band - Beta
music/b.mp3
music/a.mp3
`

func parsePlaylist(t *testing.T, text string) *sidecar.Playlist {
	t.Helper()
	playlist, err := sidecar.ParsePlaylist(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParsePlaylist failed: %v", err)
	}
	return playlist
}

func render(t *testing.T, playlist *sidecar.Playlist) string {
	t.Helper()
	var out strings.Builder
	if _, err := playlist.WriteTo(&out); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	return out.String()
}

func TestParsePlaylistEntries(t *testing.T) {
	playlist := parsePlaylist(t, sampleM3U)
	entries := playlist.Entries()
	want := []string{"music/a.mp3", "music/b.mp3", "music/a.mp3"}
	if len(entries) != len(want) {
		t.Fatalf("entries = %v, want %v", entries, want)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entries[%d] = %q, want %q", i, entries[i], want[i])
		}
	}
}

func TestRewritePathsKeepsDirectives(t *testing.T) {
	playlist := parsePlaylist(t, sampleM3U)
	changed := playlist.RewritePaths(map[string]string{"music/a.mp3": "music/new/a.mp3"})
	if changed != 2 {
		t.Fatalf("changed = %d, want 2", changed)
	}
	out := render(t, playlist)
	if !strings.Contains(out, "#EXTINF:180,Band - Alpha\n") {
		t.Fatalf("directive lost:\n%s", out)
	}
	if strings.Contains(out, "\nmusic/a.mp3\n") {
		t.Fatalf("old path survived:\n%s", out)
	}
	if strings.Count(out, "music/new/a.mp3\n") != 2 {
		t.Fatalf("new path missing:\n%s", out)
	}
}

func TestRewritePathsSwap(t *testing.T) {
	playlist := parsePlaylist(t, "one.mp3\ntwo.mp3\n")
	playlist.RewritePaths(map[string]string{"one.mp3": "two.mp3", "two.mp3": "one.mp3"})
	entries := playlist.Entries()
	if entries[0] != "two.mp3" || entries[1] != "one.mp3" {
		t.Fatalf("swap mangled entries: %v", entries)
	}
}

func TestRemoveDuplicatesKeepsFirst(t *testing.T) {
	playlist := parsePlaylist(t, sampleM3U)
	if dropped := playlist.RemoveDuplicates(); dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	entries := playlist.Entries()
	if len(entries) != 2 || entries[0] != "music/a.mp3" || entries[1] != "music/b.mp3" {
		t.Fatalf("unexpected entries: %v", entries)
	}
}
