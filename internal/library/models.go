package library

import (
	"time"

	"phono/internal/fingerprint"
	"phono/internal/metadata"
)

// Track is one audio file known to the library index. Exactly one Track per
// canonical audio identity is canonical; duplicates carry the canonical
// track's id in CanonicalID. For canonical tracks CanonicalID equals ID.
type Track struct {
	ID              int64
	Path            string
	CanonicalID     int64
	Fingerprint     fingerprint.Signature
	Title           *string
	Artist          *string
	Album           *string
	TrackNum        *int
	DurationSecs    float64
	Bitrate         int
	SampleRate      int
	GenerationAdded int64
	ScannedAt       time.Time
}

// IsCanonical reports whether the track represents its duplicate cluster.
func (t Track) IsCanonical() bool {
	return t.ID != 0 && t.CanonicalID == t.ID
}

// ApplyFragment copies normalized metadata onto the track.
func (t *Track) ApplyFragment(frag metadata.Fragment) {
	t.Title = metadata.FieldOrNil(frag.Title)
	t.Artist = metadata.FieldOrNil(frag.Artist)
	t.Album = metadata.FieldOrNil(frag.Album)
	t.TrackNum = metadata.IntOrNil(frag.TrackNum)
	t.DurationSecs = frag.DurationSecs
	t.Bitrate = frag.Bitrate
	t.SampleRate = frag.SampleRate
}

// Clone returns a deep copy so callers can mutate without aliasing optional
// fields.
func (t Track) Clone() Track {
	cp := t
	cp.Title = metadata.FieldOrNil(t.Title)
	cp.Artist = metadata.FieldOrNil(t.Artist)
	cp.Album = metadata.FieldOrNil(t.Album)
	cp.TrackNum = metadata.IntOrNil(t.TrackNum)
	return cp
}

// Snapshot is a read-only view of the committed index handed to downstream
// consumers.
type Snapshot struct {
	Generation int64
	// Tracks maps track id to record, canonical and duplicate alike.
	Tracks map[int64]Track
	// PathIndex maps file path to track id.
	PathIndex map[string]int64
	// Duplicates maps canonical id to the ids of its non-canonical members.
	Duplicates map[int64][]int64
}

// Canonical returns the canonical records in the snapshot.
func (s *Snapshot) Canonical() []Track {
	out := make([]Track, 0, len(s.Tracks))
	for _, track := range s.Tracks {
		if track.IsCanonical() {
			out = append(out, track)
		}
	}
	return out
}

// NewTrack is a record to insert during a pass commit. CanonicalRef encodes
// the canonical reference before ids exist: RefSelf for a canonical track, a
// positive value for an existing track id, or RefAdd(i) for the i-th add in
// the same delta.
type NewTrack struct {
	Track
	CanonicalRef int64
}

// RefSelf marks an inserted track as its own canonical.
const RefSelf int64 = 0

// RefAdd encodes a canonical reference to another add in the same delta.
func RefAdd(index int) int64 {
	return -int64(index) - 1
}

// addIndex decodes a RefAdd value; ok is false for RefSelf and existing ids.
func addIndex(ref int64) (int, bool) {
	if ref >= 0 {
		return 0, false
	}
	return int(-ref - 1), true
}

// TrackUpdate rewrites an existing row. CanonicalRef follows the NewTrack
// encoding, so an updated track can point at a row inserted in the same
// delta; RefSelf resolves to the track's own id.
type TrackUpdate struct {
	Track
	CanonicalRef int64
}

// PassDelta is the complete set of index mutations for one scan pass,
// applied atomically.
type PassDelta struct {
	Adds    []NewTrack
	Updates []TrackUpdate
	Removes []int64
}

// Empty reports whether the delta would change nothing.
func (d PassDelta) Empty() bool {
	return len(d.Adds) == 0 && len(d.Updates) == 0 && len(d.Removes) == 0
}
