package tileset

import (
	"fmt"

	"github.com/samdwyer/chunkforge/internal/world"
)

// ValidationError reports a template that broke a structural invariant.
// Rejected templates never reach the runtime library.
type ValidationError struct {
	TemplateID string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("template %s rejected: %s", e.TemplateID, e.Reason)
}

func reject(t *Template, format string, args ...any) *ValidationError {
	return &ValidationError{TemplateID: t.ID, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks a template against the library invariants:
//   - the grid has the expected size,
//   - every connector lies on a non-corner edge cell that is floor,
//   - every floor cell on the border belongs to a connector,
//   - connectors sharing a path type are joined by a floor path.
func Validate(t *Template, width, height int) *ValidationError {
	g := t.Grid
	if g == nil {
		return reject(t, "missing grid")
	}
	if g.Width != width || g.Height != height {
		return reject(t, "grid is %dx%d, library is %dx%d", g.Width, g.Height, width, height)
	}

	declared := make(map[[2]int]bool, len(t.Connectors))
	for _, c := range t.Connectors {
		n := c.Side.EdgeLength(width, height)
		if c.Pos < 1 || c.Pos > n-2 {
			return reject(t, "connector %s outside edge positions 1..%d", c, n-2)
		}
		key := [2]int{int(c.Side), c.Pos}
		if declared[key] {
			return reject(t, "duplicate connector %s", c)
		}
		declared[key] = true
		x, y := c.Side.EdgeCell(c.Pos, width, height)
		if !g.IsPassable(x, y) {
			return reject(t, "connector %s has no opening", c)
		}
	}

	for _, s := range world.Sides {
		for _, pos := range g.EdgeOpenings(s) {
			if !declared[[2]int{int(s), pos}] {
				return reject(t, "undeclared opening at %s@%d", s, pos)
			}
		}
	}

	labels, _ := world.Components(g)
	component := make(map[world.PathType]int)
	for _, c := range t.Connectors {
		x, y := c.Side.EdgeCell(c.Pos, width, height)
		label := labels[y*width+x]
		if prev, ok := component[c.Path]; ok && prev != label {
			return reject(t, "%s connectors are not connected", c.Path)
		}
		component[c.Path] = label
	}
	return nil
}
