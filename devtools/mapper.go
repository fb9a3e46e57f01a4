package devtools

import (
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/unistore/store"
)

// JSON Patch operations used in STATE_DELTA events.
const (
	PatchAdd     = "add"
	PatchRemove  = "remove"
	PatchReplace = "replace"
)

// Mapper converts bridge entries to AG-UI events.
//
// A Mapper remembers the last state it emitted so that consecutive entries
// become deltas. Create one Mapper per client stream. The Mapper is not safe
// for concurrent use.
type Mapper struct {
	threadID string
	runID    string
	last     store.State
}

// NewMapper creates a new Mapper for a single stream.
// The threadID and runID are used in lifecycle events (RUN_STARTED, RUN_FINISHED).
func NewMapper(threadID, runID string) *Mapper {
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	if runID == "" {
		runID = events.GenerateRunID()
	}
	return &Mapper{
		threadID: threadID,
		runID:    runID,
	}
}

// ThreadID returns the thread ID for this mapper.
func (m *Mapper) ThreadID() string {
	return m.threadID
}

// RunID returns the run ID for this mapper.
func (m *Mapper) RunID() string {
	return m.runID
}

// RunStarted returns a RUN_STARTED event.
func (m *Mapper) RunStarted() events.Event {
	return events.NewRunStartedEvent(m.threadID, m.runID)
}

// RunFinished returns a RUN_FINISHED event.
func (m *Mapper) RunFinished() events.Event {
	return events.NewRunFinishedEvent(m.threadID, m.runID)
}

// Snapshot returns a STATE_SNAPSHOT event carrying the whole state.
func (m *Mapper) Snapshot(state store.State) events.Event {
	if state == nil {
		state = store.State{}
	}
	m.last = state
	return events.NewStateSnapshotEvent(state)
}

// Delta returns a STATE_DELTA event merging changes into the last emitted
// state. Keys the client has not seen are added; known keys are replaced.
func (m *Mapper) Delta(changes store.State) events.Event {
	ops := make([]events.JSONPatchOperation, 0, len(changes))
	next := make(store.State, len(m.last)+len(changes))
	maps.Copy(next, m.last)
	for _, key := range sortedKeys(changes) {
		op := PatchReplace
		if _, ok := m.last[key]; !ok {
			op = PatchAdd
		}
		ops = append(ops, events.JSONPatchOperation{
			Op:    op,
			Path:  pointer(key),
			Value: changes[key],
		})
		next[key] = changes[key]
	}
	m.last = next
	return events.NewStateDeltaEvent(ops)
}

// Diff returns the top-level JSON Patch operations turning prev into next.
func Diff(prev, next store.State) []events.JSONPatchOperation {
	var ops []events.JSONPatchOperation
	for _, key := range sortedKeys(prev) {
		if _, ok := next[key]; !ok {
			ops = append(ops, events.JSONPatchOperation{Op: PatchRemove, Path: pointer(key)})
		}
	}
	for _, key := range sortedKeys(next) {
		old, existed := prev[key]
		switch {
		case !existed:
			ops = append(ops, events.JSONPatchOperation{Op: PatchAdd, Path: pointer(key), Value: next[key]})
		case !reflect.DeepEqual(old, next[key]):
			ops = append(ops, events.JSONPatchOperation{Op: PatchReplace, Path: pointer(key), Value: next[key]})
		}
	}
	return ops
}

// MapEntry converts an entry to an AG-UI event: a snapshot for the first
// entry the mapper sees (or an InitAction entry), otherwise a delta against
// the last state emitted. Returns nil when nothing changed.
func (m *Mapper) MapEntry(e Entry) events.Event {
	if m.last == nil || e.Action == InitAction {
		return m.Snapshot(e.State)
	}
	ops := Diff(m.last, e.State)
	if len(ops) == 0 {
		return nil
	}
	m.last = e.State
	return events.NewStateDeltaEvent(ops)
}

// pointer escapes key as a single-segment JSON Pointer (RFC 6901).
func pointer(key string) string {
	key = strings.ReplaceAll(key, "~", "~0")
	key = strings.ReplaceAll(key, "/", "~1")
	return "/" + key
}

func sortedKeys(m store.State) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
