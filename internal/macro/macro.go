// Package macro builds the coarse per-level density map that density-mode
// chunks are sampled from.
//
// A map is carved by random walks from the spawn cell, roughened with
// OpenSimplex noise, smoothed by a cellular automaton, and then pruned to the
// region reachable from spawn. Stairs go on the farthest reachable cells.
// Maps that come out too small are thrown away and rebuilt from a derived
// seed.
package macro

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ojrac/opensimplex-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/chunkforge/internal/seed"
	"github.com/samdwyer/chunkforge/internal/telemetry"
	"github.com/samdwyer/chunkforge/internal/world"
)

// OpenThreshold separates open cells from rock.
const OpenThreshold = 0.5

// ErrUntraversable is returned when no attempt produced an acceptable map.
var ErrUntraversable = errors.New("macro map not traversable")

// Options configure map generation.
type Options struct {
	Width, Height int
	Walkers       int     // Random walks started from spawn
	WalkSteps     int     // Steps per walk
	NoiseScale    float64 // Noise frequency in cells
	NoiseOpen     float64 // Noise value above which rock opens up
	SmoothPasses  int
	MinOpen       float64 // Minimum open fraction after pruning
	MaxPruned     float64 // Maximum share of open cells pruned as unreachable
	Stairs        int
	MaxAttempts   int
}

// DefaultOptions returns the 64×64 map used by the game.
func DefaultOptions() Options {
	return Options{
		Width:        64,
		Height:       64,
		Walkers:      8,
		WalkSteps:    600,
		NoiseScale:   0.12,
		NoiseOpen:    0.72,
		SmoothPasses: 2,
		MinOpen:      0.06,
		MaxPruned:    0.75,
		Stairs:       2,
		MaxAttempts:  8,
	}
}

func (o Options) validate() error {
	if o.Width < 4 || o.Height < 4 {
		return fmt.Errorf("macro map %dx%d too small", o.Width, o.Height)
	}
	if o.MaxPruned < 0 || o.MaxPruned > 1 {
		return fmt.Errorf("macro max pruned share must be in [0,1], got %.2f", o.MaxPruned)
	}
	if o.MaxAttempts < 1 {
		return fmt.Errorf("macro max attempts must be positive, got %d", o.MaxAttempts)
	}
	return nil
}

// Map is an immutable coarse density grid. Values are in [0,1] and 1 is
// open. It is safe for concurrent reads.
type Map struct {
	Width    int
	Height   int
	Density  []float32
	Spawn    world.Coord
	Stairs   []world.Coord
	Seed     uint64 // Seed of the accepted attempt
	Attempts int
	Pruned   int // Open cells filled in because spawn could not reach them
}

// PrunedShare returns the fraction of carved cells lost to pruning.
func (m *Map) PrunedShare() float64 {
	open := 0
	for _, d := range m.Density {
		if d >= OpenThreshold {
			open++
		}
	}
	if open+m.Pruned == 0 {
		return 0
	}
	return float64(m.Pruned) / float64(open+m.Pruned)
}

// Generate builds a map for the level seed. Attempt n uses
// seed.Derive(levelSeed, "macro", n); the first map that passes Validate,
// holds at least MinOpen open cells and lost no more than MaxPruned of its
// carved cells to pruning wins. Pruning leaves every open cell reachable, so
// Validate only fails here on a closed spawn or stairs; the pruned share is
// what rejects attempts that were mostly disconnected.
func Generate(ctx context.Context, levelSeed uint64, opts Options) (*Map, error) {
	tracer := telemetry.Tracer("macro")
	ctx, span := tracer.Start(ctx, "macro.generate")
	defer span.End()

	if err := opts.validate(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	for attempt := range opts.MaxAttempts {
		s := seed.Derive(levelSeed, "macro", int64(attempt))
		m := build(s, opts)
		m.Attempts = attempt + 1

		err := m.Validate()
		if err == nil && m.PrunedShare() > opts.MaxPruned {
			err = fmt.Errorf("pruned %.3f of carved cells, above %.3f", m.PrunedShare(), opts.MaxPruned)
		}
		if err == nil && m.OpenFraction() < opts.MinOpen {
			err = fmt.Errorf("open fraction %.3f below %.3f", m.OpenFraction(), opts.MinOpen)
		}
		if err != nil {
			telemetry.Warn(ctx, "macro attempt rejected", err, attribute.Int("attempt", attempt))
			continue
		}

		span.SetAttributes(
			attribute.Int("attempts", m.Attempts),
			attribute.Float64("open_fraction", m.OpenFraction()),
			attribute.Int("stairs", len(m.Stairs)),
			attribute.Int64("duration_ms", time.Since(startTime).Milliseconds()),
		)
		return m, nil
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrUntraversable, opts.MaxAttempts)
}

// At returns the density of a cell. Cells outside the map are solid rock.
func (m *Map) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Density[y*m.Width+x]
}

// Open reports whether a cell is at or above the open threshold.
func (m *Map) Open(x, y int) bool {
	return m.At(x, y) >= OpenThreshold
}

// Corner returns the density at the lattice point of a chunk coordinate.
// Chunk (0,0) has its top-left corner on the spawn cell.
func (m *Map) Corner(c world.Coord) float32 {
	return m.At(c.X+m.Spawn.X, c.Y+m.Spawn.Y)
}

// Cell maps a chunk coordinate to the macro cell at its top-left corner.
func (m *Map) Cell(c world.Coord) world.Coord {
	return world.Coord{X: c.X + m.Spawn.X, Y: c.Y + m.Spawn.Y}
}

// OpenFraction returns the share of open cells.
func (m *Map) OpenFraction() float64 {
	open := 0
	for _, d := range m.Density {
		if d >= OpenThreshold {
			open++
		}
	}
	return float64(open) / float64(len(m.Density))
}

// Validate checks that spawn is open, every open cell is reachable from it,
// and every stairs cell is open.
func (m *Map) Validate() error {
	g := m.grid()
	if !g.IsPassable(m.Spawn.X, m.Spawn.Y) {
		return fmt.Errorf("spawn %v is not open", m.Spawn)
	}
	reached := world.FloodFill(g, m.Spawn.X, m.Spawn.Y)
	for i, t := range g.Tiles {
		if t.IsPassable() && !reached[i] {
			return fmt.Errorf("cell (%d,%d) unreachable from spawn", i%m.Width, i/m.Width)
		}
	}
	for _, s := range m.Stairs {
		if !m.Open(s.X, s.Y) {
			return fmt.Errorf("stairs %v not open", s)
		}
	}
	return nil
}

// grid returns the open mask as a tile grid.
func (m *Map) grid() *world.Grid {
	g := world.NewGrid(m.Width, m.Height, world.TileWall)
	for i, d := range m.Density {
		if d >= OpenThreshold {
			g.Tiles[i] = world.TileFloor
		}
	}
	return g
}

func build(s uint64, opts Options) *Map {
	w, h := opts.Width, opts.Height
	rng := seed.Rand(s)
	spawn := world.Coord{X: w / 2, Y: h / 2}
	g := world.NewGrid(w, h, world.TileWall)

	// Chunk (0,0) interpolates between these four cells.
	for dy := range 2 {
		for dx := range 2 {
			g.Set(spawn.X+dx, spawn.Y+dy, world.TileFloor)
		}
	}

	for range opts.Walkers {
		walk(g, rng, spawn, opts.WalkSteps)
	}

	noise := opensimplex.NewNormalized(seed.Int64(s))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			if noise.Eval2(float64(x)*opts.NoiseScale, float64(y)*opts.NoiseScale) > opts.NoiseOpen {
				g.Set(x, y, world.TileFloor)
			}
		}
	}

	for range opts.SmoothPasses {
		g = smooth(g, spawn)
	}

	// Pockets the walks never reached are filled back in.
	reached := world.FloodFill(g, spawn.X, spawn.Y)
	pruned := 0
	for i, t := range g.Tiles {
		if !reached[i] {
			if t.IsPassable() {
				pruned++
			}
			g.Tiles[i] = world.TileWall
		}
	}

	m := &Map{
		Width:   w,
		Height:  h,
		Density: blur(g),
		Spawn:   spawn,
		Seed:    s,
		Pruned:  pruned,
	}
	m.Stairs = placeStairs(g, spawn, opts.Stairs)
	return m
}

// walk carves a random walk that stays off the map border.
func walk(g *world.Grid, rng *rand.Rand, from world.Coord, steps int) {
	x, y := from.X, from.Y
	for range steps {
		d := world.Sides[rng.Intn(4)]
		dx, dy := d.Delta()
		nx, ny := x+dx, y+dy
		if nx < 1 || ny < 1 || nx >= g.Width-1 || ny >= g.Height-1 {
			continue
		}
		x, y = nx, ny
		g.Set(x, y, world.TileFloor)
	}
}

// smooth runs one cellular automaton step: a cell with five or more open
// neighbours opens, one with two or fewer closes. Spawn stays open.
func smooth(g *world.Grid, spawn world.Coord) *world.Grid {
	out := g.Clone()
	for y := 1; y < g.Height-1; y++ {
		for x := 1; x < g.Width-1; x++ {
			open := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if (dx != 0 || dy != 0) && g.IsPassable(x+dx, y+dy) {
						open++
					}
				}
			}
			switch {
			case open >= 5:
				out.Set(x, y, world.TileFloor)
			case open <= 2:
				out.Set(x, y, world.TileWall)
			}
		}
	}
	out.Set(spawn.X, spawn.Y, world.TileFloor)
	return out
}

// blur turns the open mask into densities. Open cells stay at or above the
// threshold and rock stays below it; the 3×3 average only shapes the slope.
func blur(g *world.Grid) []float32 {
	out := make([]float32, len(g.Tiles))
	for y := range g.Height {
		for x := range g.Width {
			open := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if g.IsPassable(x+dx, y+dy) {
						open++
					}
				}
			}
			avg := float32(open) / 9
			if g.IsPassable(x, y) {
				out[y*g.Width+x] = OpenThreshold + avg*(1-OpenThreshold)
			} else {
				out[y*g.Width+x] = avg * OpenThreshold * 0.98
			}
		}
	}
	return out
}

// placeStairs picks up to n reachable cells, farthest from spawn first,
// keeping each at least a quarter of the map away from the others.
func placeStairs(g *world.Grid, spawn world.Coord, n int) []world.Coord {
	dist := distances(g, spawn)
	minGap := max(g.Width, g.Height) / 4

	var stairs []world.Coord
	for range n {
		best, bestDist := world.Coord{}, 0
		for i, d := range dist {
			if d <= bestDist {
				continue
			}
			c := world.Coord{X: i % g.Width, Y: i / g.Width}
			tooClose := false
			for _, s := range stairs {
				if c.Chebyshev(s) < minGap {
					tooClose = true
					break
				}
			}
			if !tooClose {
				best, bestDist = c, d
			}
		}
		if bestDist == 0 {
			break
		}
		stairs = append(stairs, best)
	}
	return stairs
}

// distances returns BFS step counts from spawn; -1 marks unreachable cells.
func distances(g *world.Grid, from world.Coord) []int {
	dist := make([]int, len(g.Tiles))
	for i := range dist {
		dist[i] = -1
	}
	if !g.IsPassable(from.X, from.Y) {
		return dist
	}
	start := from.Y*g.Width + from.X
	dist[start] = 0
	queue := []int{start}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		x, y := i%g.Width, i/g.Width
		for _, s := range world.Sides {
			dx, dy := s.Delta()
			nx, ny := x+dx, y+dy
			if !g.IsPassable(nx, ny) {
				continue
			}
			j := ny*g.Width + nx
			if dist[j] < 0 {
				dist[j] = dist[i] + 1
				queue = append(queue, j)
			}
		}
	}
	return dist
}
