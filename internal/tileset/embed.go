// Package tileset holds the template library: fixed-size chunk templates with
// edge connector metadata, their authoring format, offline validation and the
// BSP authoring pipeline that produces them.
package tileset

import "embed"

// dataFS embeds the hand-authored catalogs and the authoring schema.
//
//go:embed *.json
var dataFS embed.FS
