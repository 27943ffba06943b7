package level

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdwyer/chunkforge/internal/chunk"
	"github.com/samdwyer/chunkforge/internal/config"
	"github.com/samdwyer/chunkforge/internal/constraint"
	"github.com/samdwyer/chunkforge/internal/store"
	"github.com/samdwyer/chunkforge/internal/world"
)

var quiet = log.New(io.Discard, "", 0)

func vaultConfig() config.Level {
	cfg := config.Default().Level
	cfg.ID = "test-level"
	cfg.Seed = 42
	cfg.ChunkSize = 16
	cfg.Catalog = config.CatalogVaults
	return cfg
}

func TestStartTemplateMode(t *testing.T) {
	ctx := context.Background()
	l, err := Start(ctx, vaultConfig(), store.NewMemory(), quiet)
	require.NoError(t, err)
	defer l.Close()

	assert.True(t, l.NeighborFirst())
	require.NotNil(t, l.Library)
	assert.Equal(t, 9, l.Library.Count())
	assert.Zero(t, l.Ledger().Len())

	c, err := l.Generate(ctx, world.Coord{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 16, c.Width())
	assert.NotEqual(t, chunk.OriginFallback, c.Origin)
}

func TestStartRejectsSizeMismatch(t *testing.T) {
	cfg := vaultConfig()
	cfg.ChunkSize = 32
	_, err := Start(context.Background(), cfg, store.NewMemory(), quiet)
	assert.ErrorContains(t, err, "16x16")
}

func TestStartAuthoredLibrary(t *testing.T) {
	cfg := vaultConfig()
	cfg.Catalog = config.CatalogAuthored
	cfg.Variants = 1
	l, err := Start(context.Background(), cfg, store.NewMemory(), quiet)
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, 256, l.Library.Count())
}

func TestDensityMode(t *testing.T) {
	cfg := vaultConfig()
	cfg.Mode = config.ModeDensity
	cfg.ChunkSize = 24
	l, err := Start(context.Background(), cfg, store.NewMemory(), quiet)
	require.NoError(t, err)
	defer l.Close()

	assert.False(t, l.NeighborFirst())
	assert.Nil(t, l.Library)
	c, err := l.Generate(context.Background(), world.Coord{X: 2, Y: -1}, nil)
	require.NoError(t, err)
	assert.Equal(t, chunk.OriginDensity, c.Origin)
	assert.Len(t, l.StairsChunks(), len(l.Macro.Stairs))
}

func TestStairsLandOnReachableFloor(t *testing.T) {
	density := vaultConfig()
	density.Mode = config.ModeDensity
	density.ChunkSize = 24

	for name, base := range map[string]config.Level{"density": density, "template": vaultConfig()} {
		t.Run(name, func(t *testing.T) {
			for s := uint64(1); s <= 10; s++ {
				cfg := base
				cfg.Seed = s
				l, err := Start(context.Background(), cfg, store.NewMemory(), quiet)
				require.NoError(t, err)

				require.NotEmpty(t, l.StairsChunks())
				for _, sc := range l.StairsChunks() {
					c, err := l.Generate(context.Background(), sc, nil)
					require.NoError(t, err)
					at, ok := l.StairsTile(c)
					require.True(t, ok, "seed %d chunk %v", s, sc)

					ox, oy := c.WorldOrigin()
					x, y := at.X-ox, at.Y-oy
					assert.True(t, c.Grid.IsPassable(x, y), "seed %d chunk %v tile (%d,%d)", s, sc, x, y)
					assert.True(t, world.FromEdges(c.Grid)[y*c.Width()+x], "seed %d chunk %v unreachable", s, sc)

					again, ok := l.StairsTile(c)
					assert.True(t, ok)
					assert.Equal(t, at, again)
				}
				_, ok := l.StairsTile(chunk.New(world.Coord{X: 999, Y: 999}, world.NewGrid(24, 24, world.TileFloor), nil, 0, "t"))
				assert.False(t, ok)
				require.NoError(t, l.Close())
			}
		})
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	l, err := Start(ctx, vaultConfig(), store.NewMemory(), quiet)
	require.NoError(t, err)
	defer l.Close()

	coord := world.Coord{X: 3, Y: -2}
	_, err = l.Restore(ctx, coord)
	assert.ErrorIs(t, err, store.ErrNotFound)

	c, err := l.Generate(ctx, coord, nil)
	require.NoError(t, err)
	c.SetTile(8, 8, world.TileWall)
	c.SetTile(7, 7, world.TileFloor)
	c.MarkSeen(8, 8)

	blob, err := chunk.Encode(c)
	require.NoError(t, err)
	require.NoError(t, l.SaveTiles(ctx, coord, blob))

	got, err := l.Restore(ctx, coord)
	require.NoError(t, err)
	assert.True(t, c.Grid.Equal(got.Grid))
	assert.Equal(t, c.Connectors, got.Connectors)
	assert.True(t, got.Seen(8, 8))
	assert.False(t, got.Dirty())
}

func TestLedgerSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	cfg := vaultConfig()

	l, err := Start(ctx, cfg, st, quiet)
	require.NoError(t, err)
	first, err := l.Generate(ctx, world.Coord{}, nil)
	require.NoError(t, err)
	require.NoError(t, l.SaveConnectors(ctx, first.Coord, constraint.Entry{Origin: first.Origin, Connectors: first.Connectors}))

	// Start a second level on the same store without closing it.
	again, err := Start(ctx, cfg, st, quiet)
	require.NoError(t, err)
	entry, ok := again.Ledger().Get(world.Coord{})
	require.True(t, ok)
	assert.Equal(t, first.Connectors, entry.Connectors)
	assert.Equal(t, first.Origin, entry.Origin)

	// With its origin on record the chunk regenerates identically even
	// once a neighbour constrains it.
	var below []world.Connector
	for _, c := range first.ConnectorsOn(world.South) {
		below = append(below, world.Connector{Side: world.North, Pos: c.Pos, Path: c.Path})
	}
	again.Ledger().Record(world.Coord{Y: 1}, "other", below)
	regen, err := again.Generate(ctx, world.Coord{}, again.Ledger().Snapshot(world.Coord{}))
	require.NoError(t, err)
	assert.Equal(t, first.Origin, regen.Origin)
	assert.True(t, first.Grid.Equal(regen.Grid))

	next := world.Coord{X: 1}
	second, err := again.Generate(ctx, next, again.Ledger().Snapshot(next))
	require.NoError(t, err)
	assert.True(t, constraint.Symmetric(first.Connectors, second.Connectors, world.East))

	other := cfg
	other.ID = "another-level"
	fresh, err := Start(ctx, other, st, quiet)
	require.NoError(t, err)
	assert.Zero(t, fresh.Ledger().Len())
}

func TestFallbackConforms(t *testing.T) {
	l, err := Start(context.Background(), vaultConfig(), store.NewMemory(), quiet)
	require.NoError(t, err)
	defer l.Close()

	n := constraint.Neighbors{world.West: {{Side: world.East, Pos: 5, Path: world.PathSide}}}
	c := l.Fallback(world.Coord{X: 1}, n)
	assert.Equal(t, chunk.OriginFallback, c.Origin)
	assert.Equal(t, []world.Connector{{Side: world.West, Pos: 5, Path: world.PathSide}}, c.Connectors)
}

func TestCloseTwice(t *testing.T) {
	l, err := Start(context.Background(), vaultConfig(), store.NewMemory(), quiet)
	require.NoError(t, err)
	assert.NoError(t, l.Close())
	assert.Error(t, l.Close())
}
