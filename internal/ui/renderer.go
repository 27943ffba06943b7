package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/zyedidia/generic/mapset"

	"github.com/samdwyer/chunkforge/internal/chunk"
	"github.com/samdwyer/chunkforge/internal/entity"
	"github.com/samdwyer/chunkforge/internal/stream"
	"github.com/samdwyer/chunkforge/internal/world"
)

// mesh is the glyph buffer built for one loaded chunk.
type mesh struct {
	chunk  *chunk.Chunk
	glyphs []rune
	styles []tcell.Style
}

// View is everything drawn besides the chunks themselves.
type View struct {
	Anchor  *entity.Anchor
	Stats   stream.Stats
	Mode    string
	Message string
}

// Renderer draws loaded chunks around an anchor. It is a stream presenter:
// Build and Teardown are called from the goroutine that ticks the manager,
// which must also be the one calling Render.
type Renderer struct {
	canvas  Canvas
	palette Palette
	width   int
	height  int
	meshes  map[world.Coord]*mesh
	stairs  mapset.Set[world.Coord]
	locate  func(*chunk.Chunk) (world.Coord, bool)
}

// NewRenderer creates a renderer for chunks of the given size.
func NewRenderer(canvas Canvas, width, height int) *Renderer {
	return &Renderer{
		canvas:  canvas,
		palette: DefaultPalette(),
		width:   width,
		height:  height,
		meshes:  make(map[world.Coord]*mesh),
		stairs:  mapset.New[world.Coord](),
	}
}

// SetStairs installs the function that finds the stairs tile of a chunk.
// It is asked once per mesh build.
func (r *Renderer) SetStairs(locate func(*chunk.Chunk) (world.Coord, bool)) {
	r.stairs = mapset.New[world.Coord]()
	r.locate = locate
}

// Build creates the chunk's mesh.
func (r *Renderer) Build(c *chunk.Chunk) {
	r.meshes[c.Coord] = r.mesh(c)
}

// Refresh rebuilds a loaded chunk's mesh after its tiles changed.
func (r *Renderer) Refresh(c *chunk.Chunk) {
	if _, ok := r.meshes[c.Coord]; ok {
		r.meshes[c.Coord] = r.mesh(c)
	}
}

// Teardown drops the chunk's mesh.
func (r *Renderer) Teardown(c world.Coord) {
	delete(r.meshes, c)
}

// Len returns the number of built meshes.
func (r *Renderer) Len() int { return len(r.meshes) }

func (r *Renderer) mesh(c *chunk.Chunk) *mesh {
	n := c.Width() * c.Height()
	m := &mesh{chunk: c, glyphs: make([]rune, n), styles: make([]tcell.Style, n)}
	if r.locate != nil {
		if t, ok := r.locate(c); ok {
			r.stairs.Put(t)
		}
	}
	ox, oy := c.WorldOrigin()
	for y := range c.Height() {
		for x := range c.Width() {
			i := y*c.Width() + x
			tile := c.Tile(x, y)
			m.glyphs[i] = tile.Rune()
			m.styles[i] = r.getTileStyle(tile)
			if r.stairs.Has(world.Coord{X: ox + x, Y: oy + y}) && tile.IsPassable() {
				m.glyphs[i] = '>'
				m.styles[i] = tcell.StyleDefault.Foreground(r.palette.Stairs).Bold(true)
			}
		}
	}
	return m
}

// getTileStyle returns the appropriate style for a tile type.
func (r *Renderer) getTileStyle(tile world.Tile) tcell.Style {
	switch tile {
	case world.TileWall:
		return tcell.StyleDefault.Foreground(r.palette.Wall)
	case world.TileFloor:
		return tcell.StyleDefault.Foreground(r.palette.Floor)
	default:
		return tcell.StyleDefault
	}
}

// Render draws the viewport centred on the anchor, leaving the last two
// rows for the status line and message.
func (r *Renderer) Render(v View) {
	r.canvas.Clear()
	sw, sh := r.canvas.Size()
	rows := max(sh-2, 0)
	left := v.Anchor.X - sw/2
	top := v.Anchor.Y - rows/2

	for sy := range rows {
		for sx := range sw {
			wx, wy := left+sx, top+sy
			glyph, style, ok := r.cell(v.Anchor, wx, wy)
			if ok {
				r.canvas.SetContent(sx, sy, glyph, style)
			}
		}
	}
	r.canvas.SetContent(v.Anchor.X-left, v.Anchor.Y-top, v.Anchor.Symbol,
		tcell.StyleDefault.Foreground(r.palette.Anchor).Bold(true))

	s := v.Stats
	status := fmt.Sprintf("%s  pos %d,%d  frame %d  loaded %d  queued %d  gen %d  fallback %d  stale %d  unsaved %d",
		v.Mode, v.Anchor.X, v.Anchor.Y, s.Frame, s.Loaded, s.Queued, s.Generating, s.Fallbacks, s.Stale, s.Unsaved)
	r.RenderMessage(status, rows)
	r.RenderMessage(v.Message, rows+1)
	r.canvas.Show()
}

// cell resolves the glyph for a world tile. Tiles in unloaded chunks and
// tiles never seen are left blank.
func (r *Renderer) cell(a *entity.Anchor, wx, wy int) (rune, tcell.Style, bool) {
	c, lx, ly := world.ChunkOf(wx, wy, r.width, r.height)
	m, ok := r.meshes[c]
	if !ok || !m.chunk.Seen(lx, ly) {
		return 0, tcell.StyleDefault, false
	}
	i := ly*r.width + lx
	if !a.Sees(wx, wy) {
		return m.glyphs[i], tcell.StyleDefault.Foreground(r.palette.Remembered), true
	}
	return m.glyphs[i], m.styles[i], true
}

// RenderMessage displays a message on the given row.
func (r *Renderer) RenderMessage(msg string, y int) {
	style := tcell.StyleDefault.Foreground(r.palette.Status)
	for i, ch := range []rune(msg) {
		r.canvas.SetContent(i, y, ch, style)
	}
}
