package metadata

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrUnreadableMetadata indicates the tag source reported malformed or absent
// tag data for a file.
var ErrUnreadableMetadata = errors.New("unreadable metadata")

// Raw carries unnormalized tag and audio-property data as supplied by the tag
// reader and audio decoder collaborators. Empty strings and zero numbers mean
// the source did not report a value.
type Raw struct {
	Title        string
	Artist       string
	Album        string
	TrackNum     int
	DurationSecs float64
	Bitrate      int
	SampleRate   int
}

// Fragment is a normalized metadata record for one file. Tag fields are nil
// when the source had no value, never empty strings, so reconciliation can
// tell "unknown" apart from "empty".
type Fragment struct {
	Title        *string
	Artist       *string
	Album        *string
	TrackNum     *int
	DurationSecs float64
	Bitrate      int
	SampleRate   int
}

// Extract normalizes raw tag data into a Fragment. It is a pure
// transformation with no side effects. A Raw with no usable tag fields and no
// duration fails with ErrUnreadableMetadata.
func Extract(raw Raw) (Fragment, error) {
	frag := Fragment{
		Title:        normalizeField(raw.Title),
		Artist:       normalizeField(raw.Artist),
		Album:        normalizeField(raw.Album),
		DurationSecs: raw.DurationSecs,
		Bitrate:      raw.Bitrate,
		SampleRate:   raw.SampleRate,
	}
	if raw.TrackNum > 0 {
		track := raw.TrackNum
		frag.TrackNum = &track
	}

	if frag.Title == nil && frag.Artist == nil && frag.Album == nil && frag.TrackNum == nil && frag.DurationSecs <= 0 {
		return Fragment{}, fmt.Errorf("%w: no usable tag fields", ErrUnreadableMetadata)
	}
	return frag, nil
}

// normalizeField trims, collapses internal whitespace, and applies NFC so
// byte-different spellings of the same text compare equal downstream.
func normalizeField(value string) *string {
	cleaned := strings.Join(strings.Fields(value), " ")
	if cleaned == "" {
		return nil
	}
	cleaned = norm.NFC.String(cleaned)
	return &cleaned
}

// FieldOrNil clones an optional string field.
func FieldOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

// IntOrNil clones an optional int field.
func IntOrNil(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
