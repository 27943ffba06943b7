package constraint

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/samdwyer/chunkforge/internal/chunk"
	"github.com/samdwyer/chunkforge/internal/world"
)

// Entry is what the ledger knows about one generated chunk.
type Entry struct {
	Origin     string // Template ID or a chunk.Origin constant
	Connectors []world.Connector
}

// Ledger remembers the origin and connectors of every chunk generated in a
// level. It outlives the chunks themselves so that a chunk regenerated after
// unloading comes back from the same template, and a chunk regenerated
// after its neighbour was unloaded still conforms to it.
type Ledger struct {
	mu      sync.RWMutex
	entries map[world.Coord]Entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[world.Coord]Entry)}
}

// Record stores the entry of a generated chunk, replacing any earlier one.
// It reports whether the entry changed.
func (l *Ledger) Record(c world.Coord, origin string, conns []world.Connector) bool {
	conns = slices.Clone(conns)
	world.SortConnectors(conns)
	if conns == nil {
		conns = []world.Connector{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	prev, ok := l.entries[c]
	if ok && prev.Origin == origin && slices.Equal(prev.Connectors, conns) {
		return false
	}
	l.entries[c] = Entry{Origin: origin, Connectors: conns}
	return true
}

// Get returns a chunk's recorded entry.
func (l *Ledger) Get(c world.Coord) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[c]
	e.Connectors = slices.Clone(e.Connectors)
	return e, ok
}

// Origin returns the recorded origin of a chunk, or "" if it was never
// generated.
func (l *Ledger) Origin(c world.Coord) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[c].Origin
}

// Generated reports whether a chunk has ever been generated.
func (l *Ledger) Generated(c world.Coord) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[c]
	return ok
}

// Len returns the number of recorded chunks.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot copies the recorded neighbours of c for use off the main loop.
func (l *Ledger) Snapshot(c world.Coord) Neighbors {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := make(Neighbors, 4)
	for _, s := range world.Sides {
		if e, ok := l.entries[c.Neighbor(s)]; ok {
			n[s] = slices.Clone(e.Connectors)
		}
	}
	return n
}

// Encode serializes one entry for the connectors layer: the origin as a
// length-prefixed string followed by the chunk blob's connector section.
func Encode(e Entry) ([]byte, error) {
	if len(e.Origin) > 0xff {
		return nil, fmt.Errorf("origin %q too long", e.Origin)
	}
	conns, err := chunk.EncodeConnectors(e.Connectors)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte(uint8(len(e.Origin)))
	buf.WriteString(e.Origin)
	buf.Write(conns)
	return buf.Bytes(), nil
}

// Decode reads an entry written by Encode.
func Decode(b []byte) (Entry, error) {
	if len(b) == 0 || len(b) < 1+int(b[0]) {
		return Entry{}, fmt.Errorf("%w: ledger entry origin", chunk.ErrCorrupt)
	}
	n := int(b[0])
	conns, err := chunk.DecodeConnectors(b[1+n:])
	if err != nil {
		return Entry{}, err
	}
	return Entry{Origin: string(b[1 : 1+n]), Connectors: conns}, nil
}
