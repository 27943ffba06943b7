package world

import (
	"fmt"
	"slices"
	"strconv"
)

// PathType classifies a connector. Only connectors of equal type may join.
// Values past PathSecret are free for content-defined path kinds.
type PathType uint8

const (
	PathMain PathType = iota
	PathSide
	PathSecret
)

// String returns the authoring name, or the numeric id for custom types.
func (p PathType) String() string {
	switch p {
	case PathMain:
		return "main"
	case PathSide:
		return "side"
	case PathSecret:
		return "secret"
	default:
		return strconv.Itoa(int(p))
	}
}

// ParsePathType accepts "main", "side", "secret" or a decimal id.
func ParsePathType(name string) (PathType, error) {
	switch name {
	case "main":
		return PathMain, nil
	case "side":
		return PathSide, nil
	case "secret":
		return PathSecret, nil
	}
	n, err := strconv.ParseUint(name, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown path type %q", name)
	}
	return PathType(n), nil
}

// Connector is a tagged opening on one edge of a chunk or template.
type Connector struct {
	Side Side
	Pos  int
	Path PathType
}

// String returns e.g. "east@30/main".
func (c Connector) String() string {
	return fmt.Sprintf("%s@%d/%s", c.Side, c.Pos, c.Path)
}

// compareConnectors orders by side, then position, then path type.
func compareConnectors(a, b Connector) int {
	if a.Side != b.Side {
		return int(a.Side) - int(b.Side)
	}
	if a.Pos != b.Pos {
		return a.Pos - b.Pos
	}
	return int(a.Path) - int(b.Path)
}

// SortConnectors puts a connector list in canonical order in place.
func SortConnectors(conns []Connector) {
	slices.SortFunc(conns, compareConnectors)
}

// OnSide returns the connectors on one side, in canonical order.
func OnSide(conns []Connector, s Side) []Connector {
	var out []Connector
	for _, c := range conns {
		if c.Side == s {
			out = append(out, c)
		}
	}
	SortConnectors(out)
	return out
}

// EqualConnectors reports whether two lists hold the same connectors,
// ignoring order.
func EqualConnectors(a, b []Connector) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	SortConnectors(x)
	SortConnectors(y)
	return slices.Equal(x, y)
}

// DeriveConnectors scans the grid border and returns one connector per
// floor cell. A previous connector at the same side and position keeps its
// path type; new openings become fallback.
func DeriveConnectors(g *Grid, previous []Connector, fallback PathType) []Connector {
	known := make(map[[2]int]PathType, len(previous))
	for _, c := range previous {
		known[[2]int{int(c.Side), c.Pos}] = c.Path
	}
	var out []Connector
	for _, s := range Sides {
		for _, pos := range g.EdgeOpenings(s) {
			path, ok := known[[2]int{int(s), pos}]
			if !ok {
				path = fallback
			}
			out = append(out, Connector{Side: s, Pos: pos, Path: path})
		}
	}
	return out
}
