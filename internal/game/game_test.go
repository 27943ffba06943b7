package game

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdwyer/chunkforge/internal/config"
	"github.com/samdwyer/chunkforge/internal/level"
	"github.com/samdwyer/chunkforge/internal/store"
	"github.com/samdwyer/chunkforge/internal/stream"
	"github.com/samdwyer/chunkforge/internal/world"
)

var quiet = log.New(io.Discard, "", 0)

type blankCanvas struct{}

func (blankCanvas) SetContent(int, int, rune, tcell.Style) {}
func (blankCanvas) Size() (int, int)                       { return 40, 20 }
func (blankCanvas) Clear()                                 {}
func (blankCanvas) Show()                                  {}

func newGame(t *testing.T) (*Game, *stream.Manager) {
	t.Helper()
	ctx := context.Background()
	cfg := config.Default()
	cfg.Level.ID = "game-test"
	cfg.Level.Seed = 7
	cfg.Level.ChunkSize = 16
	cfg.Level.Catalog = config.CatalogVaults

	lvl, err := level.Start(ctx, cfg.Level, store.NewMemory(), quiet)
	require.NoError(t, err)
	opts := stream.OptionsFrom(cfg.Stream)
	opts.FrameBudget = time.Second
	mgr, err := stream.New(lvl, opts, quiet)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mgr.Close(ctx))
		assert.NoError(t, lvl.Close())
	})
	return New(blankCanvas{}, mgr, lvl, 16, 16, quiet), mgr
}

func frameUntil(t *testing.T, g *Game, cond func() bool) {
	t.Helper()
	for range 5000 {
		g.Frame(context.Background())
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestGameSpawnsOnFloor(t *testing.T) {
	g, mgr := newGame(t)
	assert.Equal(t, StateLoading, g.State())

	frameUntil(t, g, func() bool { return g.State() == StateExplore })
	a := g.Anchor()
	assert.False(t, g.collide.Blocked(a.X, a.Y))
	assert.Equal(t, world.Coord{}, a.Chunk(16, 16))

	c, ok := mgr.Chunk(world.Coord{})
	require.True(t, ok)
	assert.True(t, c.Seen(a.X, a.Y), "anchor tile is revealed")
}

func TestGameBuildDigAndMove(t *testing.T) {
	g, mgr := newGame(t)
	frameUntil(t, g, func() bool { return g.State() == StateExplore && mgr.Stats().Loaded == 9 })
	a := g.Anchor()
	x, y := a.Position()

	g.state = StateBuild
	g.act(1, 0)
	assert.Equal(t, StateExplore, g.State())
	assert.True(t, g.collide.Blocked(x+1, y))
	g.act(1, 0)
	assert.Equal(t, x, a.X, "walls stop the anchor")

	g.state = StateDig
	g.act(1, 0)
	assert.False(t, g.collide.Blocked(x+1, y))
	g.act(1, 0)
	assert.Equal(t, x+1, a.X)

	coord, _, _ := world.ChunkOf(x+1, y, 16, 16)
	c, ok := mgr.Chunk(coord)
	require.True(t, ok)
	assert.True(t, c.Dirty())
}

func TestGameDigOutsideLoadedChunks(t *testing.T) {
	g, _ := newGame(t)
	g.setTile(1000, 1000, world.TileFloor)
	assert.Equal(t, "that chunk is not loaded", g.message)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "dig", StateDig.String())
	assert.Equal(t, "unknown", State(99).String())
}
