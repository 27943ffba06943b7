package tileset

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samdwyer/chunkforge/internal/world"
)

// SealedID is the ID of the library's fully sealed template.
const SealedID = "sealed"

// Constraints maps a side to the exact connectors a candidate must have
// there. A side that is absent is unconstrained; a side present with an
// empty list must have no openings at all.
type Constraints map[world.Side][]world.Connector

// Library is a read-only set of same-size templates indexed by per-side
// connector signature. It is safe for concurrent use once built.
type Library struct {
	width, height int
	templates     []*Template // Sorted by ID
	byID          map[string]*Template
	bySide        [4]map[string][]*Template
	sealed        *Template
}

// NewLibrary validates the templates and admits the ones that pass.
// Rejections are returned alongside the library rather than failing it.
func NewLibrary(width, height int, templates []*Template) (*Library, []*ValidationError) {
	lib := &Library{
		width:  width,
		height: height,
		byID:   make(map[string]*Template, len(templates)),
		sealed: sealedTemplate(width, height),
	}
	for s := range lib.bySide {
		lib.bySide[s] = make(map[string][]*Template)
	}

	var rejected []*ValidationError
	for _, t := range templates {
		if err := Validate(t, width, height); err != nil {
			rejected = append(rejected, err)
			continue
		}
		if _, dup := lib.byID[t.ID]; dup || t.ID == SealedID {
			rejected = append(rejected, reject(t, "duplicate template id"))
			continue
		}
		lib.byID[t.ID] = t
		lib.templates = append(lib.templates, t)
	}

	slices.SortFunc(lib.templates, func(a, b *Template) int { return strings.Compare(a.ID, b.ID) })
	for _, t := range lib.templates {
		for _, s := range world.Sides {
			sig := signature(t.OnSide(s))
			lib.bySide[s][sig] = append(lib.bySide[s][sig], t)
		}
	}
	return lib, rejected
}

// FromCatalog builds every template in a catalog and admits the valid ones.
func FromCatalog(cat *CatalogFile) (*Library, []*ValidationError, error) {
	templates := make([]*Template, 0, len(cat.Templates))
	for i := range cat.Templates {
		t, err := cat.Templates[i].Build()
		if err != nil {
			return nil, nil, err
		}
		templates = append(templates, t)
	}
	lib, rejected := NewLibrary(cat.Width, cat.Height, templates)
	return lib, rejected, nil
}

// Width returns the template width in tiles.
func (l *Library) Width() int { return l.width }

// Height returns the template height in tiles.
func (l *Library) Height() int { return l.height }

// Count returns the number of admitted templates.
func (l *Library) Count() int { return len(l.templates) }

// All returns the admitted templates ordered by ID.
func (l *Library) All() []*Template { return l.templates }

// GetByID returns the template with the given ID, or nil if not found.
func (l *Library) GetByID(id string) *Template {
	if id == SealedID {
		return l.sealed
	}
	return l.byID[id]
}

// Sealed returns the deterministic template with no openings.
func (l *Library) Sealed() *Template { return l.sealed }

// FindCandidates returns every template whose connectors equal the
// requirement on each constrained side, ordered by ID. An empty result is
// not an error; the caller decides how to fall back.
func (l *Library) FindCandidates(c Constraints) []*Template {
	var result []*Template
	first := true
	for _, s := range world.Sides {
		required, ok := c[s]
		if !ok {
			continue
		}
		bucket := l.bySide[s][signature(required)]
		if first {
			result = slices.Clone(bucket)
			first = false
			continue
		}
		result = slices.DeleteFunc(result, func(t *Template) bool {
			return !slices.Contains(bucket, t)
		})
	}
	if first {
		return slices.Clone(l.templates)
	}
	return result
}

// signature encodes the (position, path type) pairs of one side.
func signature(conns []world.Connector) string {
	sorted := slices.Clone(conns)
	world.SortConnectors(sorted)
	parts := make([]string, len(sorted))
	for i, c := range sorted {
		parts[i] = strconv.Itoa(c.Pos) + ":" + c.Path.String()
	}
	return strings.Join(parts, ",")
}

// sealedTemplate has a solid border and an open interior.
func sealedTemplate(width, height int) *Template {
	g := world.NewGrid(width, height, world.TileWall)
	g.CarveRoom(world.Room{X: 1, Y: 1, Width: width - 2, Height: height - 2})
	return &Template{ID: SealedID, Grid: g}
}

// String summarizes the library for logs.
func (l *Library) String() string {
	return fmt.Sprintf("library %dx%d with %d templates", l.width, l.height, len(l.templates))
}
