// Package store persists chunk blobs keyed by level, layer and chunk
// coordinate.
//
// Implementations must be safe for concurrent use on different keys. The
// lifecycle manager never saves and loads the same key at the same time.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/samdwyer/chunkforge/internal/world"
)

// ErrNotFound is returned by Load when nothing is stored under a key.
var ErrNotFound = errors.New("store: not found")

// Layer names a kind of per-chunk record.
type Layer string

const (
	// LayerTiles holds encoded chunk blobs of mutated chunks.
	LayerTiles Layer = "tiles"
	// LayerConnectors holds the connector ledger of every generated chunk.
	LayerConnectors Layer = "connectors"
)

// Key addresses one record.
type Key struct {
	Level string
	Layer Layer
	X, Y  int
}

// TileKey returns the tiles-layer key of a chunk.
func TileKey(level string, c world.Coord) Key {
	return Key{Level: level, Layer: LayerTiles, X: c.X, Y: c.Y}
}

// ConnectorKey returns the connectors-layer key of a chunk.
func ConnectorKey(level string, c world.Coord) Key {
	return Key{Level: level, Layer: LayerConnectors, X: c.X, Y: c.Y}
}

// Coord returns the chunk coordinate of the key.
func (k Key) Coord() world.Coord {
	return world.Coord{X: k.X, Y: k.Y}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d,%d", k.Level, k.Layer, k.X, k.Y)
}

// Store is a keyed blob store.
type Store interface {
	// Save writes or replaces the blob under key.
	Save(ctx context.Context, key Key, blob []byte) error
	// Load returns the blob under key, or ErrNotFound.
	Load(ctx context.Context, key Key) ([]byte, error)
	// Scan calls fn for every record of one level and layer. Order is
	// unspecified. A non-nil error from fn stops the scan and is returned.
	Scan(ctx context.Context, level string, layer Layer, fn func(Key, []byte) error) error
	Close() error
}
