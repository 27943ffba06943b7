package tileset

import (
	"fmt"

	"github.com/samdwyer/chunkforge/internal/world"
)

// ConnectorDef is a connector in the authoring format.
type ConnectorDef struct {
	Side string `json:"side"` // "north", "east", "south" or "west"
	Pos  int    `json:"pos"`  // Position along the edge
	Path string `json:"path"` // "main", "side", "secret" or a numeric id
}

// TemplateDef is a template in the authoring format.
type TemplateDef struct {
	ID         string         `json:"id"`
	Rows       []string       `json:"rows"` // '#' wall, '.' floor
	Connectors []ConnectorDef `json:"connectors,omitempty"`
}

// CatalogFile is the on-disk authoring format for a set of same-size templates.
type CatalogFile struct {
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Templates []TemplateDef `json:"templates"`
}

// Template is an immutable chunk blueprint. Templates are never modified
// after they are admitted to a Library.
type Template struct {
	ID         string
	Grid       *world.Grid
	Connectors []world.Connector // Canonical order
}

// Build converts an authoring definition into a template. It checks only
// syntax; Validate checks the structural invariants.
func (d *TemplateDef) Build() (*Template, error) {
	grid, err := world.ParseRows(d.Rows)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", d.ID, err)
	}
	conns := make([]world.Connector, 0, len(d.Connectors))
	for _, cd := range d.Connectors {
		side, err := world.ParseSide(cd.Side)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", d.ID, err)
		}
		path, err := world.ParsePathType(cd.Path)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", d.ID, err)
		}
		conns = append(conns, world.Connector{Side: side, Pos: cd.Pos, Path: path})
	}
	world.SortConnectors(conns)
	return &Template{ID: d.ID, Grid: grid, Connectors: conns}, nil
}

// Def converts the template back into the authoring format.
func (t *Template) Def() TemplateDef {
	def := TemplateDef{ID: t.ID, Rows: t.Grid.Rows()}
	for _, c := range t.Connectors {
		def.Connectors = append(def.Connectors, ConnectorDef{
			Side: c.Side.String(),
			Pos:  c.Pos,
			Path: c.Path.String(),
		})
	}
	return def
}

// OnSide returns the template's connectors on one side.
func (t *Template) OnSide(s world.Side) []world.Connector {
	return world.OnSide(t.Connectors, s)
}

// Catalog converts a set of templates into the authoring format.
func Catalog(width, height int, templates []*Template) *CatalogFile {
	cat := &CatalogFile{Width: width, Height: height}
	for _, t := range templates {
		cat.Templates = append(cat.Templates, t.Def())
	}
	return cat
}
