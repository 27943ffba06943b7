package ui

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samdwyer/chunkforge/internal/chunk"
	"github.com/samdwyer/chunkforge/internal/entity"
	"github.com/samdwyer/chunkforge/internal/stream"
	"github.com/samdwyer/chunkforge/internal/world"
)

type fakeCanvas struct {
	w, h  int
	cells map[[2]int]rune
	shown int
}

func newFakeCanvas(w, h int) *fakeCanvas {
	return &fakeCanvas{w: w, h: h, cells: make(map[[2]int]rune)}
}

func (f *fakeCanvas) SetContent(x, y int, r rune, _ tcell.Style) { f.cells[[2]int{x, y}] = r }
func (f *fakeCanvas) Size() (int, int)                          { return f.w, f.h }
func (f *fakeCanvas) Clear()                                    { clear(f.cells) }
func (f *fakeCanvas) Show()                                     { f.shown++ }

func (f *fakeCanvas) row(y int) string {
	var b strings.Builder
	for x := range f.w {
		r, ok := f.cells[[2]int{x, y}]
		if !ok {
			r = ' '
		}
		b.WriteRune(r)
	}
	return b.String()
}

func seenChunk(t *testing.T, coord world.Coord) *chunk.Chunk {
	t.Helper()
	g, err := world.ParseRows([]string{
		"####",
		"#..#",
		"#..#",
		"####",
	})
	require.NoError(t, err)
	c := chunk.New(coord, g, nil, 0, "t")
	for y := range 4 {
		for x := range 4 {
			c.MarkSeen(x, y)
		}
	}
	return c
}

func TestRendererDrawsSeenChunks(t *testing.T) {
	canvas := newFakeCanvas(8, 6)
	r := NewRenderer(canvas, 4, 4)
	r.SetStairs(func(c *chunk.Chunk) (world.Coord, bool) {
		return world.Coord{X: 2, Y: 2}, c.Coord == world.Coord{}
	})
	r.Build(seenChunk(t, world.Coord{X: 0, Y: 0}))
	require.Equal(t, 1, r.Len())

	a := entity.NewAnchor("player", 1, 1)
	r.Render(View{Anchor: a, Stats: stream.Stats{Frame: 7, Loaded: 1}, Mode: "explore", Message: "hello"})

	// Viewport is 8x4 centred on (1, 1): left -3, top -1. Row -1 is unloaded.
	assert.Equal(t, "        ", canvas.row(0))
	assert.Equal(t, "   #### ", canvas.row(1))
	assert.Equal(t, "   #@.# ", canvas.row(2))
	assert.Equal(t, "   #.># ", canvas.row(3))
	assert.Contains(t, canvas.row(4), "explore")
	assert.Equal(t, "hello", strings.TrimSpace(canvas.row(5)))
	assert.Equal(t, 1, canvas.shown)
}

func TestRendererRefreshAndTeardown(t *testing.T) {
	canvas := newFakeCanvas(8, 6)
	r := NewRenderer(canvas, 4, 4)
	c := seenChunk(t, world.Coord{X: 0, Y: 0})
	r.Build(c)

	require.True(t, c.SetTile(2, 1, world.TileWall))
	r.Refresh(c)
	a := entity.NewAnchor("player", 1, 1)
	r.Render(View{Anchor: a})
	assert.Equal(t, "   #@## ", canvas.row(2))

	r.Teardown(c.Coord)
	assert.Zero(t, r.Len())
	r.Refresh(c)
	assert.Zero(t, r.Len())
	r.Render(View{Anchor: a})
	assert.Equal(t, "    @   ", canvas.row(2))
}

func TestRendererHidesUnseenTiles(t *testing.T) {
	canvas := newFakeCanvas(8, 6)
	r := NewRenderer(canvas, 4, 4)
	g, err := world.ParseRows([]string{"####", "#..#", "#..#", "####"})
	require.NoError(t, err)
	c := chunk.New(world.Coord{}, g, nil, 0, "t")
	c.MarkSeen(0, 1)
	r.Build(c)

	r.Render(View{Anchor: entity.NewAnchor("player", 1, 1)})
	assert.Equal(t, "        ", canvas.row(1))
	assert.Equal(t, "   #@   ", canvas.row(2))
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#FF8000")
	require.NoError(t, err)
	assert.Equal(t, tcell.NewRGBColor(255, 128, 0), c)

	_, err = ParseHexColor("FFF")
	assert.Error(t, err)
	_, err = ParseHexColor("GG0000")
	assert.Error(t, err)
	assert.Panics(t, func() { MustParseHexColor("nope") })
}
