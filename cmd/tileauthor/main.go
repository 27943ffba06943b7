// Command tileauthor runs the offline template authoring pipeline and writes
// the resulting catalog as JSON.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/samdwyer/chunkforge/internal/tileset"
)

func main() {
	size := flag.Int("size", 64, "template width and height in tiles")
	variants := flag.Int("variants", 2, "templates per side profile combination")
	seedFlag := flag.Uint64("seed", 1, "authoring seed")
	out := flag.String("out", "catalog.json", "output catalog path")
	flag.Parse()

	templates, rejected := tileset.Author(context.Background(), tileset.AuthorOptions{
		Width:    *size,
		Height:   *size,
		Variants: *variants,
		Seed:     *seedFlag,
	})
	for _, r := range rejected {
		log.Printf("rejected: %v", r)
	}
	if len(templates) == 0 {
		log.Fatalf("no templates passed validation")
	}

	// Round trip through the loader so the written file is known to load.
	cat := tileset.Catalog(*size, *size, templates)
	if err := tileset.WriteCatalog(*out, cat); err != nil {
		log.Fatalf("%v", err)
	}
	back, err := tileset.ReadCatalog(*out)
	if err != nil {
		log.Fatalf("written catalog does not load: %v", err)
	}
	lib, invalid, err := tileset.FromCatalog(back)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(invalid) > 0 {
		log.Fatalf("written catalog has %d invalid templates", len(invalid))
	}
	log.Printf("wrote %s: %v (%d rejected)", *out, lib, len(rejected))
}
