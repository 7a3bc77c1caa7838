package sidecar

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Playlist is a parsed m3u file. Directive and comment lines are preserved
// verbatim; entry lines can be rewritten or deduplicated.
type Playlist struct {
	lines []playlistLine
}

type playlistLine struct {
	text  string
	entry bool
}

// ParsePlaylist reads an m3u playlist. Blank lines and lines starting with
// '#' are kept but never treated as entries.
func ParsePlaylist(r io.Reader) (*Playlist, error) {
	playlist := &Playlist{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := scanner.Text()
		trimmed := strings.TrimSpace(text)
		playlist.lines = append(playlist.lines, playlistLine{
			text:  text,
			entry: trimmed != "" && !strings.HasPrefix(trimmed, "#"),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}
	return playlist, nil
}

// Entries returns the playlist's track paths in order.
func (p *Playlist) Entries() []string {
	var entries []string
	for _, line := range p.lines {
		if line.entry {
			entries = append(entries, strings.TrimSpace(line.text))
		}
	}
	return entries
}

// RewritePaths replaces entry paths according to edits and reports how many
// lines changed. Every lookup goes against the original entry text, so edit
// sets that swap two paths apply cleanly.
func (p *Playlist) RewritePaths(edits map[string]string) int {
	changed := 0
	for i, line := range p.lines {
		if !line.entry {
			continue
		}
		if replacement, ok := edits[strings.TrimSpace(line.text)]; ok {
			p.lines[i].text = replacement
			changed++
		}
	}
	return changed
}

// RemoveDuplicates drops repeated entry lines, keeping the first occurrence,
// and reports how many were dropped.
func (p *Playlist) RemoveDuplicates() int {
	seen := make(map[string]bool)
	kept := p.lines[:0]
	dropped := 0
	for _, line := range p.lines {
		if line.entry {
			path := strings.TrimSpace(line.text)
			if seen[path] {
				dropped++
				continue
			}
			seen[path] = true
		}
		kept = append(kept, line)
	}
	p.lines = kept
	return dropped
}

// WriteTo renders the playlist with a trailing newline per line.
func (p *Playlist) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for _, line := range p.lines {
		n, err := fmt.Fprintln(w, line.text)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("write playlist: %w", err)
		}
	}
	return written, nil
}
