// Package constraint turns the connectors of already generated neighbours
// into the per-side requirements a new chunk must satisfy.
package constraint

import (
	"github.com/samdwyer/chunkforge/internal/tileset"
	"github.com/samdwyer/chunkforge/internal/world"
)

// Neighbors holds the full connector sets of the generated chunks around a
// coordinate, keyed by the side of that coordinate they lie across. A side
// without an entry has no generated neighbour. A present but empty list is a
// neighbour that is sealed toward every side.
type Neighbors map[world.Side][]world.Connector

// Resolve builds the constraints for the chunk at coord. For each generated
// neighbour it copies the neighbour's connectors on the facing side onto the
// matching side of coord. A neighbour with nothing on the facing side forces
// that side sealed; a missing neighbour leaves the side unconstrained.
func Resolve(coord world.Coord, neighbors Neighbors) tileset.Constraints {
	cons := make(tileset.Constraints, len(neighbors))
	for _, s := range world.Sides {
		conns, ok := neighbors[s]
		if !ok {
			continue
		}
		required := []world.Connector{}
		for _, c := range world.OnSide(conns, s.Opposite()) {
			required = append(required, world.Connector{Side: s, Pos: c.Pos, Path: c.Path})
		}
		cons[s] = required
	}
	return cons
}

// Matches reports whether connector a can join connector b across a shared
// edge: opposite sides, the same position, the same path type.
func Matches(a, b world.Connector) bool {
	return a.Side.Opposite() == b.Side && a.Pos == b.Pos && a.Path == b.Path
}

// Satisfies reports whether a connector set meets every constrained side
// exactly.
func Satisfies(conns []world.Connector, cons tileset.Constraints) bool {
	for s, required := range cons {
		if !world.EqualConnectors(world.OnSide(conns, s), required) {
			return false
		}
	}
	return true
}

// Symmetric reports whether two adjacent connector sets agree along the edge
// they share. a lies at some coordinate and b across side s of it.
func Symmetric(a, b []world.Connector, s world.Side) bool {
	left := world.OnSide(a, s)
	right := world.OnSide(b, s.Opposite())
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if !Matches(left[i], right[i]) {
			return false
		}
	}
	return true
}
