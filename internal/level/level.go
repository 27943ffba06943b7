// Package level holds the state of one generated level: its seed, macro map,
// template library, connector ledger and store. A Level is created by Start
// when play begins and released by Close when it ends; nothing here is a
// process-wide singleton.
package level

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/chunkforge/internal/assemble"
	"github.com/samdwyer/chunkforge/internal/chunk"
	"github.com/samdwyer/chunkforge/internal/config"
	"github.com/samdwyer/chunkforge/internal/constraint"
	"github.com/samdwyer/chunkforge/internal/macro"
	"github.com/samdwyer/chunkforge/internal/seed"
	"github.com/samdwyer/chunkforge/internal/store"
	"github.com/samdwyer/chunkforge/internal/telemetry"
	"github.com/samdwyer/chunkforge/internal/tileset"
	"github.com/samdwyer/chunkforge/internal/world"
)

// Level is the explicit per-level generation state. Its macro map and
// library are immutable and shared with worker goroutines.
type Level struct {
	ID      string
	Seed    uint64
	Mode    string
	Macro   *macro.Map
	Library *tileset.Library // Nil in density mode
	Store   store.Store

	ledger         *constraint.Ledger
	chunkW, chunkH int
	templates      *assemble.Templates
	density        *assemble.Density
	logger         *log.Logger

	stairsMu sync.Mutex
	stairs   map[world.Coord]world.Coord // Chunk coord -> placed stairs tile
}

// Start builds a level from its configuration. The level takes ownership of
// st and closes it in Close. Ledger entries saved by earlier runs of the
// same level ID are loaded so regenerated chunks keep matching their
// neighbours.
func Start(ctx context.Context, cfg config.Level, st store.Store, logger *log.Logger) (*Level, error) {
	tracer := telemetry.Tracer("level")
	ctx, span := tracer.Start(ctx, "level.start")
	defer span.End()

	startTime := time.Now()
	span.SetAttributes(
		attribute.String("level.id", cfg.ID),
		attribute.Int64("level.seed", seed.Int64(cfg.Seed)),
		attribute.String("level.mode", cfg.Mode),
	)

	opts := macro.DefaultOptions()
	opts.Width, opts.Height = cfg.MacroSize, cfg.MacroSize
	m, err := macro.Generate(ctx, cfg.Seed, opts)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", cfg.ID, err)
	}

	l := &Level{
		ID:     cfg.ID,
		Seed:   cfg.Seed,
		Mode:   cfg.Mode,
		Macro:  m,
		ledger: constraint.NewLedger(),
		Store:  st,
		chunkW: cfg.ChunkSize,
		chunkH: cfg.ChunkSize,
		logger: logger,
		stairs: make(map[world.Coord]world.Coord),
	}

	switch cfg.Mode {
	case config.ModeDensity:
		l.density = assemble.NewDensity(cfg.Seed, m, cfg.ChunkSize, cfg.ChunkSize)
	case config.ModeTemplate:
		lib, err := loadLibrary(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("level %s: %w", cfg.ID, err)
		}
		l.Library = lib
		l.templates = &assemble.Templates{WorldSeed: cfg.Seed, Library: lib}
	default:
		return nil, fmt.Errorf("level %s: unknown mode %q", cfg.ID, cfg.Mode)
	}

	loaded, err := l.loadLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", cfg.ID, err)
	}

	span.SetAttributes(
		attribute.Int("level.ledger_entries", loaded),
		attribute.Int("macro.attempts", m.Attempts),
		attribute.Int64("level.start_ms", time.Since(startTime).Milliseconds()),
	)
	logger.Printf("level %s started: seed=%d mode=%s macro attempts=%d ledger=%d",
		l.ID, l.Seed, l.Mode, m.Attempts, loaded)
	return l, nil
}

func loadLibrary(ctx context.Context, cfg config.Level, logger *log.Logger) (*tileset.Library, error) {
	var (
		lib      *tileset.Library
		rejected []*tileset.ValidationError
	)
	switch cfg.Catalog {
	case config.CatalogAuthored:
		var templates []*tileset.Template
		templates, rejected = tileset.Author(ctx, tileset.AuthorOptions{
			Width:    cfg.ChunkSize,
			Height:   cfg.ChunkSize,
			Variants: cfg.Variants,
			Seed:     seed.Derive(cfg.Seed, "tileset"),
		})
		var more []*tileset.ValidationError
		lib, more = tileset.NewLibrary(cfg.ChunkSize, cfg.ChunkSize, templates)
		rejected = append(rejected, more...)
	default:
		var (
			cat *tileset.CatalogFile
			err error
		)
		if cfg.Catalog == config.CatalogVaults {
			cat, err = tileset.LoadCatalog("vaults.json")
		} else {
			cat, err = tileset.ReadCatalog(cfg.Catalog)
		}
		if err != nil {
			return nil, err
		}
		lib, rejected, err = tileset.FromCatalog(cat)
		if err != nil {
			return nil, err
		}
	}

	for _, r := range rejected {
		logger.Printf("template rejected: %v", r)
	}
	if lib.Width() != cfg.ChunkSize || lib.Height() != cfg.ChunkSize {
		return nil, fmt.Errorf("catalog %s is %dx%d, chunks are %dx%d",
			cfg.Catalog, lib.Width(), lib.Height(), cfg.ChunkSize, cfg.ChunkSize)
	}
	if lib.Count() == 0 {
		return nil, fmt.Errorf("catalog %s has no valid templates", cfg.Catalog)
	}
	logger.Printf("%v", lib)
	return lib, nil
}

func (l *Level) loadLedger(ctx context.Context) (int, error) {
	n := 0
	err := l.Store.Scan(ctx, l.ID, store.LayerConnectors, func(k store.Key, blob []byte) error {
		e, err := constraint.Decode(blob)
		if err != nil {
			l.logger.Printf("skipping ledger entry %s: %v", k, err)
			return nil
		}
		l.ledger.Record(k.Coord(), e.Origin, e.Connectors)
		n++
		return nil
	})
	return n, err
}

// Ledger returns the connector ledger of every chunk generated so far.
func (l *Level) Ledger() *constraint.Ledger {
	return l.ledger
}

// ChunkSize returns the chunk width and height in tiles.
func (l *Level) ChunkSize() (w, h int) {
	return l.chunkW, l.chunkH
}

// NeighborFirst reports whether chunks must be generated after their
// neighbours settle. Density chunks need nothing from their neighbours.
func (l *Level) NeighborFirst() bool {
	return l.Mode == config.ModeTemplate
}

// Restore loads a mutated chunk saved earlier. A miss is store.ErrNotFound.
func (l *Level) Restore(ctx context.Context, c world.Coord) (*chunk.Chunk, error) {
	blob, err := l.Store.Load(ctx, store.TileKey(l.ID, c))
	if err != nil {
		return nil, err
	}
	ch, err := chunk.Decode(c, blob)
	if err != nil {
		return nil, fmt.Errorf("restore %v: %w", c, err)
	}
	if ch.Width() != l.chunkW || ch.Height() != l.chunkH {
		return nil, fmt.Errorf("restore %v: %w: size %dx%d", c, chunk.ErrCorrupt, ch.Width(), ch.Height())
	}
	return ch, nil
}

// Generate builds a fresh chunk. Template mode resolves the neighbours'
// connectors first and reuses the template recorded for c, if any; density
// mode ignores both. A non-nil chunk returned with
// an error is a usable fallback.
func (l *Level) Generate(ctx context.Context, c world.Coord, neighbors constraint.Neighbors) (*chunk.Chunk, error) {
	tracer := telemetry.Tracer("level")
	ctx, span := tracer.Start(ctx, "chunk.generate")
	defer span.End()
	span.SetAttributes(attribute.Int("chunk.x", c.X), attribute.Int("chunk.y", c.Y))

	var (
		ch  *chunk.Chunk
		err error
	)
	if l.density != nil {
		ch = l.density.Generate(c)
	} else {
		ch, err = l.templates.Assemble(c, neighbors, l.ledger.Origin(c))
	}
	if err != nil {
		telemetry.Warn(ctx, "chunk generation fell back", err)
	}
	if ch != nil {
		span.SetAttributes(attribute.String("chunk.origin", ch.Origin))
	}
	return ch, err
}

// Fallback returns the safe chunk used when generation keeps failing.
func (l *Level) Fallback(c world.Coord, neighbors constraint.Neighbors) *chunk.Chunk {
	return assemble.Fallback(c, constraint.Resolve(c, neighbors), l.chunkW, l.chunkH, seed.Chunk(l.Seed, c))
}

// SaveTiles stores an encoded chunk blob.
func (l *Level) SaveTiles(ctx context.Context, c world.Coord, blob []byte) error {
	tracer := telemetry.Tracer("level")
	ctx, span := tracer.Start(ctx, "store.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("store.layer", string(store.LayerTiles)),
		attribute.Int("chunk.x", c.X),
		attribute.Int("chunk.y", c.Y),
		attribute.Int("store.bytes", len(blob)),
	)
	err := l.Store.Save(ctx, store.TileKey(l.ID, c), blob)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// SaveConnectors stores a ledger entry in the connectors layer.
func (l *Level) SaveConnectors(ctx context.Context, c world.Coord, e constraint.Entry) error {
	blob, err := constraint.Encode(e)
	if err != nil {
		return err
	}
	return l.Store.Save(ctx, store.ConnectorKey(l.ID, c), blob)
}

// StairsChunks returns the chunks holding the macro map's stairs: the
// chunks whose top-left lattice corner sits on a stairs cell.
func (l *Level) StairsChunks() []world.Coord {
	out := make([]world.Coord, 0, len(l.Macro.Stairs))
	for _, s := range l.Macro.Stairs {
		out = append(out, world.Coord{X: s.X - l.Macro.Spawn.X, Y: s.Y - l.Macro.Spawn.Y})
	}
	return out
}

// StairsTile places the stairs of a loaded chunk and returns them in world
// coordinates. ok is false when c is not a stairs chunk or has no floor
// reachable from its openings. The stairs go on the reachable floor tile
// closest to the chunk's top-left corner, the tile sampled from the
// stairs cell. The first placement in a level is kept, so later digging
// does not move the stairs.
func (l *Level) StairsTile(c *chunk.Chunk) (world.Coord, bool) {
	l.stairsMu.Lock()
	defer l.stairsMu.Unlock()
	if t, ok := l.stairs[c.Coord]; ok {
		return t, true
	}
	for _, sc := range l.StairsChunks() {
		if sc != c.Coord {
			continue
		}
		x, y, ok := world.Nearest(c.Grid, world.FromEdges(c.Grid), 0, 0)
		if !ok {
			return world.Coord{}, false
		}
		ox, oy := c.WorldOrigin()
		t := world.Coord{X: ox + x, Y: oy + y}
		l.stairs[c.Coord] = t
		return t, true
	}
	return world.Coord{}, false
}

// Close releases the level and its store.
func (l *Level) Close() error {
	if l.Store == nil {
		return errors.New("level already closed")
	}
	err := l.Store.Close()
	l.Store = nil
	l.Macro = nil
	l.Library = nil
	l.templates = nil
	l.density = nil
	return err
}
