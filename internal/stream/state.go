package stream

import (
	"fmt"

	"github.com/samdwyer/chunkforge/internal/world"
)

// State is a chunk's lifecycle state.
type State uint8

const (
	StateUnrequested State = iota
	StateQueued
	StateGenerating
	StateLoaded
	StateUnloading
)

var stateNames = [...]string{"unrequested", "queued", "generating", "loaded", "unloading"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// EventKind classifies lifecycle events.
type EventKind uint8

const (
	// EventLoadRequested: the coordinate entered an anchor's load radius.
	EventLoadRequested EventKind = iota
	// EventLoaded: the chunk was applied to the live world.
	EventLoaded
	// EventUnloadRequested: the chunk left every unload radius and was torn down.
	EventUnloadRequested
	// EventUnloaded: the chunk is gone and any save has finished.
	EventUnloaded
)

var eventNames = [...]string{"load-requested", "loaded", "unload-requested", "unloaded"}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", k)
}

// Event is one lifecycle transition, queued in the order it happened.
type Event struct {
	Kind  EventKind
	Coord world.Coord
	Frame uint64
}

func (e Event) String() string {
	return fmt.Sprintf("%s %v @%d", e.Kind, e.Coord, e.Frame)
}
