package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"phono/internal/config"
	"phono/internal/fingerprint"
)

// Store manages library index persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the library database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Generation returns the current index generation.
func (s *Store) Generation(ctx context.Context) (int64, error) {
	var generation int64
	err := s.db.QueryRowContext(ctx, "SELECT generation FROM library_meta WHERE id = 1").Scan(&generation)
	if err != nil {
		return 0, fmt.Errorf("read generation: %w", err)
	}
	return generation, nil
}

// GetByID fetches a track by identifier. A missing track returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Track, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM tracks WHERE id = ?", id)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return track, nil
}

// GetByPath fetches a track by file path. A missing path returns (nil, nil).
func (s *Store) GetByPath(ctx context.Context, path string) (*Track, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM tracks WHERE path = ?", path)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track by path: %w", err)
	}
	return track, nil
}

// Tracks returns every indexed track ordered by id.
func (s *Store) Tracks(ctx context.Context) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+trackColumns+" FROM tracks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, *track)
	}
	return tracks, rows.Err()
}

// Snapshot assembles the read-only view of the committed index.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	generation, err := s.Generation(ctx)
	if err != nil {
		return nil, err
	}
	tracks, err := s.Tracks(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Generation: generation,
		Tracks:     make(map[int64]Track, len(tracks)),
		PathIndex:  make(map[string]int64, len(tracks)),
		Duplicates: make(map[int64][]int64),
	}
	for _, track := range tracks {
		snap.Tracks[track.ID] = track
		snap.PathIndex[track.Path] = track.ID
		if !track.IsCanonical() {
			snap.Duplicates[track.CanonicalID] = append(snap.Duplicates[track.CanonicalID], track.ID)
		}
	}
	for _, ids := range snap.Duplicates {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return snap, nil
}

// ApplyPass commits one scan pass atomically: inserts, updates, and removals
// land in a single transaction together with the generation bump. An empty
// delta is a no-op and does not bump the generation. Returns the generation
// after the call and the assigned ids for delta.Adds in order.
func (s *Store) ApplyPass(ctx context.Context, delta PassDelta) (int64, []int64, error) {
	ctx = ensureContext(ctx)
	if delta.Empty() {
		generation, err := s.Generation(ctx)
		return generation, nil, err
	}

	var (
		generation int64
		assigned   []int64
	)
	err := retryOnBusy(ctx, func() error {
		var txErr error
		generation, assigned, txErr = s.applyPassTx(ctx, delta)
		return txErr
	})
	if err != nil {
		return 0, nil, err
	}
	return generation, assigned, nil
}

func (s *Store) applyPassTx(ctx context.Context, delta PassDelta) (int64, []int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("begin pass tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	assigned := make([]int64, len(delta.Adds))
	for i, add := range delta.Adds {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tracks (
                path, canonical_id, fingerprint, title, artist, album, track_num,
                duration_secs, bitrate, sample_rate, generation_added, scanned_at
            ) VALUES (?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			add.Path,
			add.Fingerprint[:],
			nullableString(add.Title),
			nullableString(add.Artist),
			nullableString(add.Album),
			nullableInt(add.TrackNum),
			add.DurationSecs,
			add.Bitrate,
			add.SampleRate,
			add.GenerationAdded,
			add.ScannedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return 0, nil, fmt.Errorf("insert track %q: %w", add.Path, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, nil, fmt.Errorf("last insert id: %w", err)
		}
		assigned[i] = id
	}

	// Second phase: canonical references can point at rows inserted above.
	for i, add := range delta.Adds {
		canonical, err := resolveCanonicalRef(add.CanonicalRef, assigned, assigned[i])
		if err != nil {
			return 0, nil, fmt.Errorf("track %q: %w", add.Path, err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE tracks SET canonical_id = ? WHERE id = ?", canonical, assigned[i]); err != nil {
			return 0, nil, fmt.Errorf("set canonical for %q: %w", add.Path, err)
		}
	}

	for _, update := range delta.Updates {
		if update.ID <= 0 {
			return 0, nil, fmt.Errorf("update without id for path %q", update.Path)
		}
		canonical, err := resolveCanonicalRef(update.CanonicalRef, assigned, update.ID)
		if err != nil {
			return 0, nil, fmt.Errorf("track %q: %w", update.Path, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tracks SET
                path = ?, canonical_id = ?, fingerprint = ?, title = ?, artist = ?,
                album = ?, track_num = ?, duration_secs = ?, bitrate = ?,
                sample_rate = ?, scanned_at = ?
            WHERE id = ?`,
			update.Path,
			canonical,
			update.Fingerprint[:],
			nullableString(update.Title),
			nullableString(update.Artist),
			nullableString(update.Album),
			nullableInt(update.TrackNum),
			update.DurationSecs,
			update.Bitrate,
			update.SampleRate,
			update.ScannedAt.UTC().Format(time.RFC3339Nano),
			update.ID,
		); err != nil {
			return 0, nil, fmt.Errorf("update track %d: %w", update.ID, err)
		}
	}

	for _, id := range delta.Removes {
		if _, err := tx.ExecContext(ctx, "DELETE FROM tracks WHERE id = ?", id); err != nil {
			return 0, nil, fmt.Errorf("remove track %d: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "UPDATE library_meta SET generation = generation + 1 WHERE id = 1"); err != nil {
		return 0, nil, fmt.Errorf("bump generation: %w", err)
	}
	var generation int64
	if err := tx.QueryRowContext(ctx, "SELECT generation FROM library_meta WHERE id = 1").Scan(&generation); err != nil {
		return 0, nil, fmt.Errorf("read generation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("commit pass: %w", err)
	}
	return generation, assigned, nil
}

func resolveCanonicalRef(ref int64, assigned []int64, self int64) (int64, error) {
	if ref == RefSelf {
		return self, nil
	}
	if index, ok := addIndex(ref); ok {
		if index < 0 || index >= len(assigned) {
			return 0, fmt.Errorf("canonical reference to add %d out of range", index)
		}
		return assigned[index], nil
	}
	return ref, nil
}

// Reset drops every track and returns the generation counter to zero. This is
// the explicit library reset; nothing else deletes index state wholesale.
func (s *Store) Reset(ctx context.Context) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin reset tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, "DELETE FROM tracks"); err != nil {
			return fmt.Errorf("clear tracks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE library_meta SET generation = 0 WHERE id = 1"); err != nil {
			return fmt.Errorf("reset generation: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit reset: %w", err)
		}
		return nil
	})
}

const trackColumns = `id, path, canonical_id, fingerprint, title, artist, album,
    track_num, duration_secs, bitrate, sample_rate, generation_added, scanned_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*Track, error) {
	var (
		track     Track
		raw       []byte
		title     sql.NullString
		artist    sql.NullString
		album     sql.NullString
		trackNum  sql.NullInt64
		scannedAt string
	)
	if err := row.Scan(
		&track.ID, &track.Path, &track.CanonicalID, &raw,
		&title, &artist, &album, &trackNum,
		&track.DurationSecs, &track.Bitrate, &track.SampleRate,
		&track.GenerationAdded, &scannedAt,
	); err != nil {
		return nil, err
	}

	sig, err := fingerprint.FromBytes(raw)
	if err != nil {
		return nil, err
	}
	track.Fingerprint = sig

	if title.Valid {
		track.Title = &title.String
	}
	if artist.Valid {
		track.Artist = &artist.String
	}
	if album.Valid {
		track.Album = &album.String
	}
	if trackNum.Valid {
		value := int(trackNum.Int64)
		track.TrackNum = &value
	}
	if ts, err := time.Parse(time.RFC3339Nano, scannedAt); err == nil {
		track.ScannedAt = ts
	}
	return &track, nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
