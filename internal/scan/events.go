package scan

// Kind classifies a filesystem change.
type Kind string

const (
	KindAdded    Kind = "added"
	KindRemoved  Kind = "removed"
	KindModified Kind = "modified"
)

// Event is one filesystem change reported by the file scanner collaborator.
// Events are ephemeral: the orchestrator consumes a batch and nothing
// persists them.
type Event struct {
	Kind Kind
	Path string
}

// EventsFromListing diffs a directory listing against the indexed paths and
// produces the event batch a full rescan needs: Added for new paths,
// Modified for paths on both sides, Removed for indexed paths that are gone.
func EventsFromListing(indexed, found []string) []Event {
	indexedSet := make(map[string]struct{}, len(indexed))
	for _, path := range indexed {
		indexedSet[path] = struct{}{}
	}
	foundSet := make(map[string]struct{}, len(found))

	events := make([]Event, 0, len(found))
	for _, path := range found {
		if _, ok := foundSet[path]; ok {
			continue
		}
		foundSet[path] = struct{}{}
		if _, ok := indexedSet[path]; ok {
			events = append(events, Event{Kind: KindModified, Path: path})
		} else {
			events = append(events, Event{Kind: KindAdded, Path: path})
		}
	}
	for _, path := range indexed {
		if _, ok := foundSet[path]; !ok {
			events = append(events, Event{Kind: KindRemoved, Path: path})
		}
	}
	return events
}
