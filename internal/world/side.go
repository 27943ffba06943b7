package world

import "fmt"

// Side names one edge of a chunk or template.
type Side uint8

const (
	North Side = iota
	East
	South
	West
)

// Sides lists the four sides in a fixed order.
var Sides = [4]Side{North, East, South, West}

// Opposite returns the side facing this one across a shared edge.
func (s Side) Opposite() Side {
	return (s + 2) % 4
}

// Delta returns the chunk offset of the neighbor across this side.
// Y grows toward the south.
func (s Side) Delta() (dx, dy int) {
	switch s {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	default:
		return -1, 0
	}
}

// String returns the lowercase side name used in the authoring format.
func (s Side) String() string {
	switch s {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// ParseSide converts an authoring side name.
func ParseSide(name string) (Side, error) {
	for _, s := range Sides {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown side %q", name)
}

// EdgeLength returns how many positions exist along the side for a w×h grid.
func (s Side) EdgeLength(w, h int) int {
	if s == North || s == South {
		return w
	}
	return h
}

// EdgeCell returns the grid cell at position pos along the side.
func (s Side) EdgeCell(pos, w, h int) (x, y int) {
	switch s {
	case North:
		return pos, 0
	case South:
		return pos, h - 1
	case East:
		return w - 1, pos
	default:
		return 0, pos
	}
}
