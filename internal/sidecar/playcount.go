package sidecar

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PlaycountEntry is one row of a playcount log: listened seconds plus the
// track's identity at the time of the listen.
type PlaycountEntry struct {
	Seconds float64
	Artist  string
	Album   string
	Title   string
	Path    string
}

const playcountFields = 5

// ParsePlaycounts reads a tab-separated playcount log. Blank lines are
// skipped; a malformed row fails the whole parse so a partial rewrite never
// silently drops history.
func ParsePlaycounts(r io.Reader) ([]PlaycountEntry, error) {
	var entries []PlaycountEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != playcountFields {
			return nil, fmt.Errorf("playcount line %d: %d fields, want %d", lineNo, len(fields), playcountFields)
		}
		seconds, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("playcount line %d: seconds: %w", lineNo, err)
		}
		entries = append(entries, PlaycountEntry{
			Seconds: seconds,
			Artist:  fields[1],
			Album:   fields[2],
			Title:   fields[3],
			Path:    fields[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read playcounts: %w", err)
	}
	return entries, nil
}

// WritePlaycounts renders entries back to the tab-separated format.
func WritePlaycounts(w io.Writer, entries []PlaycountEntry) error {
	buf := bufio.NewWriter(w)
	for _, entry := range entries {
		seconds := strconv.FormatFloat(entry.Seconds, 'f', -1, 64)
		if _, err := fmt.Fprintf(buf, "%s\t%s\t%s\t%s\t%s\n", seconds, entry.Artist, entry.Album, entry.Title, entry.Path); err != nil {
			return fmt.Errorf("write playcounts: %w", err)
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("write playcounts: %w", err)
	}
	return nil
}

// RewritePlaycountPaths applies path edits to entries in place and reports
// how many rows changed.
func RewritePlaycountPaths(entries []PlaycountEntry, edits map[string]string) int {
	changed := 0
	for i := range entries {
		if replacement, ok := edits[entries[i].Path]; ok {
			entries[i].Path = replacement
			changed++
		}
	}
	return changed
}
