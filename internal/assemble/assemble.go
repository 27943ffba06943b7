// Package assemble builds chunks, either by placing a library template that
// fits the neighbouring connectors or by synthesizing caves from the macro
// density map.
//
// Both generators are pure: the result depends only on the world seed, the
// chunk coordinate and, for templates, the constraints. They touch no shared
// mutable state and may run on any goroutine.
package assemble

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samdwyer/chunkforge/internal/chunk"
	"github.com/samdwyer/chunkforge/internal/constraint"
	"github.com/samdwyer/chunkforge/internal/seed"
	"github.com/samdwyer/chunkforge/internal/tileset"
	"github.com/samdwyer/chunkforge/internal/world"
)

var (
	// ErrNoCandidates means no template satisfied the constraints.
	ErrNoCandidates = errors.New("no candidate templates")
	// ErrInvalidSynthesis means a generator produced a malformed grid.
	ErrInvalidSynthesis = errors.New("invalid synthesized chunk")
)

// Templates places library templates.
type Templates struct {
	WorldSeed uint64
	Library   *tileset.Library
}

// Assemble resolves the neighbours into constraints, looks up candidates and
// generates the chunk. previous is the template the chunk was built from the
// last time it was generated, or "". While that template still fits it is
// placed again, so a chunk that unloads clean comes back unchanged even
// though more of its neighbours now constrain it.
func (a *Templates) Assemble(coord world.Coord, neighbors constraint.Neighbors, previous string) (*chunk.Chunk, error) {
	cons := constraint.Resolve(coord, neighbors)
	candidates := a.Library.FindCandidates(cons)
	if previous != "" {
		for _, t := range candidates {
			if t.ID == previous {
				candidates = []*tileset.Template{t}
				break
			}
		}
	}
	return a.Generate(coord, cons, candidates)
}

// Generate picks one candidate uniformly with the chunk's seeded PRNG and
// copies it into a new chunk. With no usable candidate it returns the
// conforming fallback together with ErrNoCandidates or ErrInvalidSynthesis;
// the chunk is always usable.
func (a *Templates) Generate(coord world.Coord, cons tileset.Constraints, candidates []*tileset.Template) (*chunk.Chunk, error) {
	s := seed.Chunk(a.WorldSeed, coord)
	w, h := a.Library.Width(), a.Library.Height()
	if len(candidates) == 0 {
		return Fallback(coord, cons, w, h, s), fmt.Errorf("chunk %v: %w", coord, ErrNoCandidates)
	}

	sorted := slices.Clone(candidates)
	slices.SortFunc(sorted, func(a, b *tileset.Template) int { return strings.Compare(a.ID, b.ID) })
	t := sorted[seed.Rand(s).Intn(len(sorted))]

	if err := checkGrid(t.Grid, w, h); err != nil {
		return Fallback(coord, cons, w, h, s), fmt.Errorf("chunk %v template %s: %w", coord, t.ID, err)
	}
	return chunk.New(coord, t.Grid.Clone(), t.Connectors, s, t.ID), nil
}

// Fallback builds the deterministic safe chunk for a set of constraints: a
// solid border around an open interior, opened exactly at the required
// connectors. Unconstrained sides stay sealed, so the result never opens
// onto a side that nothing asked for.
func Fallback(coord world.Coord, cons tileset.Constraints, w, h int, s uint64) *chunk.Chunk {
	g := world.NewGrid(w, h, world.TileWall)
	g.CarveRoom(world.Room{X: 1, Y: 1, Width: w - 2, Height: h - 2})

	var conns []world.Connector
	for _, side := range world.Sides {
		for _, c := range cons[side] {
			x, y := side.EdgeCell(c.Pos, w, h)
			if g.InBounds(x, y) {
				g.Set(x, y, world.TileFloor)
				conns = append(conns, world.Connector{Side: side, Pos: c.Pos, Path: c.Path})
			}
		}
	}
	return chunk.New(coord, g, conns, s, chunk.OriginFallback)
}

func checkGrid(g *world.Grid, w, h int) error {
	if g == nil || g.Width != w || g.Height != h || len(g.Tiles) != w*h {
		return fmt.Errorf("%w: grid size mismatch", ErrInvalidSynthesis)
	}
	for _, t := range g.Tiles {
		if t != world.TileWall && t != world.TileFloor {
			return fmt.Errorf("%w: unknown tile %q", ErrInvalidSynthesis, rune(t))
		}
	}
	return nil
}
