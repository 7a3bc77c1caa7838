package scan

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"phono/internal/config"
	"phono/internal/decode"
	"phono/internal/fingerprint"
	"phono/internal/library"
	"phono/internal/logging"
	"phono/internal/metadata"
	"phono/internal/reconcile"
	"phono/internal/resolve"
	"phono/internal/services"
)

var (
	// ErrScanInProgress indicates another pass is already running on this
	// orchestrator.
	ErrScanInProgress = errors.New("scan in progress")
	// ErrScanFailed indicates a pass committed nothing, either because every
	// file in the batch failed or because the pass was cancelled.
	ErrScanFailed = errors.New("scan failed")
)

// Phase is the orchestrator's position in the scan pass state machine.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseScanning    Phase = "scanning"
	PhaseResolving   Phase = "resolving"
	PhaseReconciling Phase = "reconciling"
	PhaseCommitted   Phase = "committed"
)

// TagReader supplies raw tag and audio-property data for one file.
type TagReader interface {
	ReadTags(path string) (metadata.Raw, error)
}

// Decoder supplies decoded samples for fingerprinting.
type Decoder interface {
	Decode(path string) (decode.Audio, error)
}

// Orchestrator drives scan passes: it reads and fingerprints changed files,
// re-resolves duplicate clusters over the whole working set, merges cluster
// metadata, and commits the resulting delta to the library index in one
// transaction.
type Orchestrator struct {
	cfg     *config.Config
	store   *library.Store
	logger  *slog.Logger
	tags    TagReader
	decoder Decoder

	running atomic.Bool
	phase   atomic.Value

	// now is swappable for tests that need stable scan timestamps.
	now func() time.Time
}

// NewOrchestrator wires an orchestrator over the given collaborators.
func NewOrchestrator(cfg *config.Config, store *library.Store, logger *slog.Logger, tags TagReader, decoder Decoder) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		cfg:     cfg,
		store:   store,
		logger:  logger.With(logging.String(logging.FieldComponent, "scan")),
		tags:    tags,
		decoder: decoder,
		now:     time.Now,
	}
	o.phase.Store(PhaseIdle)
	return o
}

// Phase reports the current pass phase for status display.
func (o *Orchestrator) Phase() Phase {
	return o.phase.Load().(Phase)
}

func (o *Orchestrator) setPhase(p Phase) {
	o.phase.Store(p)
}

// fileResult is one processed file, success or failure.
type fileResult struct {
	path string
	frag metadata.Fragment
	sig  fingerprint.Signature
	err  error
}

// provenance links a working-set entry back to its origin: an existing row id,
// or zero for a file new this pass.
type provenance struct {
	existingID int64
	moved      bool
}

// Run executes one scan pass over a batch of filesystem events and returns a
// summary of what changed. The pass commits atomically; on cancellation or
// total failure the index is untouched and the error wraps ErrScanFailed.
//
// Duplicate resolution always runs over the union of touched and existing
// tracks, so a new file can demote an indexed canonical and vice versa.
func (o *Orchestrator) Run(ctx context.Context, events []Event) (*Summary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer func() {
		o.setPhase(PhaseIdle)
		o.running.Store(false)
	}()

	started := o.now()
	passID := uuid.NewString()
	ctx = services.WithPassID(ctx, passID)
	logger := o.logger.With(logging.String(logging.FieldPassID, passID))

	snapshot, err := o.store.Snapshot(ctx)
	if err != nil {
		return nil, services.Wrap(ErrScanFailed, "scan", "snapshot", "load index", err)
	}

	batch := partitionEvents(snapshot, events)
	logger.Info("scan pass started",
		logging.Int("events", len(events)),
		logging.Int("to_process", len(batch.process)),
		logging.Int("removed", len(batch.removed)),
	)

	o.setPhase(PhaseScanning)
	results := o.processAll(ctx, batch.process)

	summary := &Summary{
		PassID:      passID,
		Moves:       make(map[string]string),
		MergedPaths: make(map[string]string),
	}
	var succeeded []fileResult
	for _, res := range results {
		if res.err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, FileFailure{Path: res.path, Err: res.err})
			logger.Warn("file failed, excluded from pass",
				logging.String(logging.FieldPath, res.path),
				logging.Error(res.err),
			)
			continue
		}
		succeeded = append(succeeded, res)
	}
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(ErrScanFailed, "scan", "process", "pass cancelled", err)
	}
	if len(batch.process) > 0 && len(succeeded) == 0 && len(batch.removed) == 0 {
		summary.Generation = snapshot.Generation
		summary.Duration = o.now().Sub(started)
		return summary, services.Wrap(ErrScanFailed, "scan", "process", "every file in the batch failed", nil)
	}

	o.setPhase(PhaseResolving)
	working, prov := o.buildWorkingSet(snapshot, batch, succeeded, summary)
	clusters := resolve.Clusters(working, o.cfg.Fingerprint.MaxDistance)

	o.setPhase(PhaseReconciling)
	refs, err := o.reconcileClusters(logger, working, prov, clusters, summary)
	if err != nil {
		return nil, services.Wrap(ErrScanFailed, "scan", "reconcile", "merge cluster metadata", err)
	}

	delta := o.assembleDelta(snapshot, working, prov, refs, batch.removedIDs, summary)

	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(ErrScanFailed, "scan", "commit", "pass cancelled", err)
	}
	generation, _, err := o.store.ApplyPass(ctx, delta)
	if err != nil {
		return nil, services.Wrap(ErrScanFailed, "scan", "commit", "apply pass delta", err)
	}
	o.setPhase(PhaseCommitted)

	summary.Generation = generation
	summary.Duration = o.now().Sub(started)
	logger.Info("scan pass committed",
		logging.Int64("generation", generation),
		logging.Int("added", summary.Added),
		logging.Int("updated", summary.Updated),
		logging.Int("moved", summary.Moved),
		logging.Int("merged", summary.Merged),
		logging.Int("removed", summary.Removed),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// eventBatch is the deduplicated view of one event batch against the index.
type eventBatch struct {
	// process holds paths to read and fingerprint, sorted.
	process []string
	// indexed marks process paths that already have a row.
	indexed map[string]bool
	// removed holds the rows whose path vanished, available for move matching.
	removed []library.Track
	// removedIDs is the same set keyed by id.
	removedIDs map[int64]bool
}

func partitionEvents(snapshot *library.Snapshot, events []Event) eventBatch {
	// Later events supersede earlier ones for the same path.
	final := make(map[string]Kind)
	order := make([]string, 0, len(events))
	for _, ev := range events {
		if _, seen := final[ev.Path]; !seen {
			order = append(order, ev.Path)
		}
		final[ev.Path] = ev.Kind
	}

	batch := eventBatch{
		indexed:    make(map[string]bool),
		removedIDs: make(map[int64]bool),
	}
	for _, path := range order {
		id, exists := snapshot.PathIndex[path]
		switch final[path] {
		case KindRemoved:
			if exists {
				batch.removed = append(batch.removed, snapshot.Tracks[id])
				batch.removedIDs[id] = true
			}
		default:
			batch.process = append(batch.process, path)
			batch.indexed[path] = exists
		}
	}
	sort.Strings(batch.process)
	sort.Slice(batch.removed, func(a, b int) bool {
		return batch.removed[a].Path < batch.removed[b].Path
	})
	return batch
}

// processAll reads and fingerprints paths on a bounded worker pool. Results
// come back sorted by path so downstream processing is deterministic.
func (o *Orchestrator) processAll(ctx context.Context, paths []string) []fileResult {
	workers := o.cfg.Scan.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	var (
		mu      sync.Mutex
		results []fileResult
		wg      sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				res := o.processFile(path)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, path := range paths {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].path < results[b].path })
	return results
}

func (o *Orchestrator) processFile(path string) fileResult {
	raw, err := o.tags.ReadTags(path)
	if err != nil {
		return fileResult{path: path, err: err}
	}
	audio, err := o.decoder.Decode(path)
	if err != nil {
		return fileResult{path: path, err: err}
	}
	if raw.SampleRate == 0 {
		raw.SampleRate = audio.SampleRate
	}
	if raw.Bitrate == 0 {
		raw.Bitrate = audio.Bitrate
	}
	if raw.DurationSecs == 0 {
		raw.DurationSecs = audio.Duration()
	}
	frag, err := metadata.Extract(raw)
	if err != nil {
		return fileResult{path: path, err: err}
	}
	sig, err := fingerprint.Compute(audio.Samples, audio.SampleRate, o.cfg.Fingerprint.MinSeconds)
	if err != nil {
		return fileResult{path: path, err: err}
	}
	return fileResult{path: path, frag: frag, sig: sig}
}

// buildWorkingSet assembles the full set of tracks the pass resolves over:
// untouched rows as stored, touched rows with fresh metadata and fingerprints,
// and brand-new files. A new file whose fingerprint matches a removed row is
// treated as a move and keeps that row's identity.
func (o *Orchestrator) buildWorkingSet(snapshot *library.Snapshot, batch eventBatch, succeeded []fileResult, summary *Summary) ([]library.Track, []provenance) {
	scannedAt := o.now().UTC()
	touched := make(map[int64]bool)

	var working []library.Track
	var prov []provenance

	var newResults []fileResult
	for _, res := range succeeded {
		if !batch.indexed[res.path] {
			newResults = append(newResults, res)
			continue
		}
		id := snapshot.PathIndex[res.path]
		track := snapshot.Tracks[id].Clone()
		track.ApplyFragment(res.frag)
		track.Fingerprint = res.sig
		track.ScannedAt = scannedAt
		touched[id] = true
		working = append(working, track)
		prov = append(prov, provenance{existingID: id})
	}

	// Move detection: claim the closest removed row within the duplicate
	// threshold for each new file.
	claimed := make(map[int64]bool)
	for _, res := range newResults {
		bestID := int64(0)
		best := 1.0
		var bestRow library.Track
		for _, row := range batch.removed {
			if claimed[row.ID] {
				continue
			}
			d := fingerprint.FractionalDistance(res.sig, row.Fingerprint)
			if d <= o.cfg.Fingerprint.MaxDistance && d < best {
				best = d
				bestID = row.ID
				bestRow = row
			}
		}
		if bestID != 0 {
			claimed[bestID] = true
			track := bestRow.Clone()
			track.Path = res.path
			track.ApplyFragment(res.frag)
			track.Fingerprint = res.sig
			track.ScannedAt = scannedAt
			touched[bestID] = true
			working = append(working, track)
			prov = append(prov, provenance{existingID: bestID, moved: true})
			summary.Moves[bestRow.Path] = res.path
			continue
		}
		track := library.Track{
			Path:            res.path,
			Fingerprint:     res.sig,
			GenerationAdded: snapshot.Generation + 1,
			ScannedAt:       scannedAt,
		}
		track.ApplyFragment(res.frag)
		working = append(working, track)
		prov = append(prov, provenance{})
	}

	// Unclaimed removals leave the working set entirely.
	for id := range batch.removedIDs {
		if !claimed[id] {
			touched[id] = true
		}
	}

	untouched := make([]library.Track, 0, len(snapshot.Tracks))
	for id, track := range snapshot.Tracks {
		if !touched[id] {
			untouched = append(untouched, track)
		}
	}
	sort.Slice(untouched, func(a, b int) bool { return untouched[a].Path < untouched[b].Path })
	for _, track := range untouched {
		working = append(working, track)
		prov = append(prov, provenance{existingID: track.ID})
	}
	return working, prov
}

// reconcileClusters merges metadata onto each cluster's canonical member and
// computes the canonical reference for every working-set entry, in the
// encoding the store commit expects.
func (o *Orchestrator) reconcileClusters(logger *slog.Logger, working []library.Track, prov []provenance, clusters []resolve.Cluster, summary *Summary) ([]int64, error) {
	// Assign delta add indices up front so refs to not-yet-inserted rows can
	// be encoded.
	addIndexOf := make(map[int]int)
	for i := range working {
		if prov[i].existingID == 0 {
			addIndexOf[i] = len(addIndexOf)
		}
	}

	refs := make([]int64, len(working))
	for _, cluster := range clusters {
		merged, err := reconcile.Merge(working, cluster)
		if err != nil {
			return nil, err
		}
		working[cluster.Canonical] = merged
		reconcile.WarnOnDivergentTitles(logger, working, cluster)

		canonicalRef := library.RefSelf
		if len(cluster.Members) > 1 {
			summary.Clusters++
			if id := prov[cluster.Canonical].existingID; id != 0 {
				canonicalRef = id
			} else {
				canonicalRef = library.RefAdd(addIndexOf[cluster.Canonical])
			}
		}
		for _, member := range cluster.Members {
			if member == cluster.Canonical {
				refs[member] = library.RefSelf
				continue
			}
			refs[member] = canonicalRef
			summary.Merged++
			summary.MergedPaths[working[member].Path] = working[cluster.Canonical].Path
		}
	}
	return refs, nil
}

// assembleDelta turns the resolved working set into the minimal pass delta:
// inserts for new files, rewrites for rows whose content or canonical
// assignment changed, and removals for vanished files. Unchanged rows stay
// out of the delta so an unchanged rescan commits nothing.
func (o *Orchestrator) assembleDelta(snapshot *library.Snapshot, working []library.Track, prov []provenance, refs []int64, removedIDs map[int64]bool, summary *Summary) library.PassDelta {
	var delta library.PassDelta
	for i, track := range working {
		if prov[i].existingID == 0 {
			delta.Adds = append(delta.Adds, library.NewTrack{Track: track, CanonicalRef: refs[i]})
			summary.Added++
			continue
		}
		stored := snapshot.Tracks[prov[i].existingID]
		if !trackChanged(stored, track, refs[i]) {
			continue
		}
		track.ID = prov[i].existingID
		delta.Updates = append(delta.Updates, library.TrackUpdate{Track: track, CanonicalRef: refs[i]})
		if prov[i].moved {
			summary.Moved++
		} else {
			summary.Updated++
		}
	}

	removes := make([]int64, 0, len(removedIDs))
	for id := range removedIDs {
		claimedByMove := false
		for _, p := range prov {
			if p.existingID == id {
				claimedByMove = true
				break
			}
		}
		if !claimedByMove {
			removes = append(removes, id)
		}
	}
	sort.Slice(removes, func(a, b int) bool { return removes[a] < removes[b] })
	delta.Removes = removes
	summary.Removed = len(removes)
	return delta
}

// trackChanged reports whether the working entry differs from the stored row.
// Scan time alone never counts as a change, so rescanning identical files
// yields an empty delta and no generation bump.
func trackChanged(stored, working library.Track, ref int64) bool {
	if working.Path != stored.Path {
		return true
	}
	if working.Fingerprint != stored.Fingerprint {
		return true
	}
	if !equalStringPtr(working.Title, stored.Title) ||
		!equalStringPtr(working.Artist, stored.Artist) ||
		!equalStringPtr(working.Album, stored.Album) ||
		!equalIntPtr(working.TrackNum, stored.TrackNum) {
		return true
	}
	if working.DurationSecs != stored.DurationSecs ||
		working.Bitrate != stored.Bitrate ||
		working.SampleRate != stored.SampleRate {
		return true
	}
	switch {
	case ref < 0:
		// Canonical is a row inserted this pass.
		return true
	case ref == library.RefSelf:
		return stored.CanonicalID != stored.ID
	default:
		return stored.CanonicalID != ref
	}
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
