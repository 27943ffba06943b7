package game

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/chunkforge/internal/chunk"
	"github.com/samdwyer/chunkforge/internal/collide"
	"github.com/samdwyer/chunkforge/internal/entity"
	"github.com/samdwyer/chunkforge/internal/stream"
	"github.com/samdwyer/chunkforge/internal/telemetry"
	"github.com/samdwyer/chunkforge/internal/ui"
	"github.com/samdwyer/chunkforge/internal/world"
)

// FrameInterval is the time between frames when nothing else happens.
const FrameInterval = time.Second / 30

// Stairs places a level's stairs in loaded chunks.
type Stairs interface {
	StairsTile(c *chunk.Chunk) (world.Coord, bool)
}

// Game holds the interactive session state.
type Game struct {
	manager  *stream.Manager
	renderer *ui.Renderer
	collide  *collide.Index
	anchor   *entity.Anchor
	width    int
	height   int
	state    State
	message  string
	running  bool
	logger   *log.Logger
}

// New wires the presenters into the manager and anchors the player at the
// origin chunk. The anchor is placed on a floor tile once that chunk loads.
func New(canvas ui.Canvas, mgr *stream.Manager, lvl Stairs, width, height int, logger *log.Logger) *Game {
	g := &Game{
		manager:  mgr,
		renderer: ui.NewRenderer(canvas, width, height),
		collide:  collide.NewIndex(width, height),
		anchor:   entity.NewAnchor("player", width/2, height/2),
		width:    width,
		height:   height,
		state:    StateLoading,
		message:  "generating...",
		running:  true,
		logger:   logger,
	}
	g.renderer.SetStairs(lvl.StairsTile)
	mgr.AddPresenter(g.renderer)
	mgr.AddPresenter(g.collide)
	mgr.SetAnchor(g.anchor.ID, g.anchor.Chunk(width, height))
	return g
}

// Anchor returns the player's anchor.
func (g *Game) Anchor() *entity.Anchor { return g.anchor }

// State returns the current input mode.
func (g *Game) State() State { return g.state }

// Run executes the frame loop until the player quits, the events channel
// closes, or ctx is cancelled.
func (g *Game) Run(ctx context.Context, events <-chan tcell.Event) error {
	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	for g.running {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			g.handleEvent(ctx, ev)
		case <-ticker.C:
			g.Frame(ctx)
		}
	}
	return nil
}

// Frame advances the stream one tick, then redraws.
func (g *Game) Frame(ctx context.Context) {
	g.manager.Tick()
	for _, ev := range g.manager.DrainEvents() {
		if ev.Kind == stream.EventLoaded || ev.Kind == stream.EventUnloaded {
			g.logger.Printf("frame %d: %s", ev.Frame, ev)
		}
	}
	if g.state == StateLoading {
		g.spawn(ctx)
	}
	g.reveal()
	g.renderer.Render(ui.View{
		Anchor:  g.anchor,
		Stats:   g.manager.Stats(),
		Mode:    g.state.String(),
		Message: g.message,
	})
}

// spawn moves the anchor to the floor tile of its chunk closest to the
// centre once the chunk is live.
func (g *Game) spawn(ctx context.Context) {
	c, ok := g.manager.Chunk(g.anchor.Chunk(g.width, g.height))
	if !ok {
		return
	}
	_, span := telemetry.Tracer("game").Start(ctx, "game.spawn")
	defer span.End()

	ox, oy := c.WorldOrigin()
	best, bx, by := -1, 0, 0
	for y := range c.Height() {
		for x := range c.Width() {
			if !c.Tile(x, y).IsPassable() {
				continue
			}
			d := abs(x-c.Width()/2) + abs(y-c.Height()/2)
			if best < 0 || d < best {
				best, bx, by = d, x, y
			}
		}
	}
	if best < 0 {
		g.message = "no floor in the starting chunk"
		span.SetAttributes(attribute.Bool("spawn.failed", true))
		g.state = StateExplore
		return
	}
	g.anchor.X, g.anchor.Y = ox+bx, oy+by
	g.state = StateExplore
	g.message = "arrows move, d dig, b build, q quit"
	span.SetAttributes(
		attribute.String("spawn.origin", c.Origin),
		attribute.Int("spawn.x", g.anchor.X),
		attribute.Int("spawn.y", g.anchor.Y),
	)
}

// reveal marks every loaded tile within the vision radius as seen.
func (g *Game) reveal() {
	a := g.anchor
	r := a.VisionRadius
	for wy := a.Y - r; wy <= a.Y+r; wy++ {
		for wx := a.X - r; wx <= a.X+r; wx++ {
			if !a.Sees(wx, wy) {
				continue
			}
			coord, lx, ly := world.ChunkOf(wx, wy, g.width, g.height)
			if c, ok := g.manager.Chunk(coord); ok {
				c.MarkSeen(lx, ly)
			}
		}
	}
}

// handleEvent processes a single input event.
func (g *Game) handleEvent(ctx context.Context, ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		g.handleKeyEvent(ctx, ev)
	case *tcell.EventResize:
		g.Frame(ctx)
	}
}

// handleKeyEvent processes keyboard input.
func (g *Game) handleKeyEvent(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		if g.state == StateDig || g.state == StateBuild {
			g.state = StateExplore
			return
		}
		g.running = false
	case tcell.KeyCtrlC:
		g.running = false

	case tcell.KeyUp:
		g.act(0, -1)
	case tcell.KeyDown:
		g.act(0, 1)
	case tcell.KeyLeft:
		g.act(-1, 0)
	case tcell.KeyRight:
		g.act(1, 0)

	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			g.running = false
		case 'd':
			if g.state == StateExplore {
				g.state = StateDig
				g.message = "dig which way?"
			}
		case 'b':
			if g.state == StateExplore {
				g.state = StateBuild
				g.message = "build which way?"
			}
		}
	}
	g.Frame(ctx)
}

// act applies a direction key according to the current mode.
func (g *Game) act(dx, dy int) {
	switch g.state {
	case StateExplore:
		g.tryMove(dx, dy)
	case StateDig:
		g.setTile(g.anchor.X+dx, g.anchor.Y+dy, world.TileFloor)
		g.state = StateExplore
	case StateBuild:
		g.setTile(g.anchor.X+dx, g.anchor.Y+dy, world.TileWall)
		g.state = StateExplore
	}
}

// tryMove attempts to move the anchor by the given delta.
func (g *Game) tryMove(dx, dy int) {
	if g.collide.Blocked(g.anchor.X+dx, g.anchor.Y+dy) {
		return
	}
	g.anchor.Move(dx, dy)
	g.manager.SetAnchor(g.anchor.ID, g.anchor.Chunk(g.width, g.height))
}

// setTile edits a loaded tile and rebuilds the presenters' view of its chunk.
func (g *Game) setTile(wx, wy int, t world.Tile) {
	coord, lx, ly := world.ChunkOf(wx, wy, g.width, g.height)
	c, ok := g.manager.Chunk(coord)
	if !ok {
		g.message = "that chunk is not loaded"
		return
	}
	if !c.SetTile(lx, ly, t) {
		g.message = "nothing to change"
		return
	}
	g.renderer.Refresh(c)
	g.collide.Refresh(c)
	g.message = fmt.Sprintf("%s now %c", coord, t.Rune())
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
