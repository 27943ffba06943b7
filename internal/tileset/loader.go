package tileset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaFile = "catalog.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// LoadCatalog reads an embedded catalog, checking it against the authoring schema.
func LoadCatalog(filename string) (*CatalogFile, error) {
	content, err := dataFS.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded file %s: %w", filename, err)
	}
	return ParseCatalog(filename, content)
}

// MustLoadCatalog loads an embedded catalog, panicking on error.
// Use this for data that must be present for the generator to function.
func MustLoadCatalog(filename string) *CatalogFile {
	cat, err := LoadCatalog(filename)
	if err != nil {
		panic(err)
	}
	return cat
}

// ReadCatalog reads a catalog written by the authoring tool from disk.
func ReadCatalog(path string) (*CatalogFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(path, content)
}

// ParseCatalog validates raw JSON against the authoring schema and decodes it.
func ParseCatalog(name string, content []byte) (*CatalogFile, error) {
	sch, err := catalogSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from %s: %w", name, err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("catalog %s does not match schema: %w", name, err)
	}

	var cat CatalogFile
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", name, err)
	}
	return &cat, nil
}

// WriteCatalog encodes a catalog in the authoring format.
func WriteCatalog(path string, cat *CatalogFile) error {
	content, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.WriteFile(path, append(content, '\n'), 0o644); err != nil {
		return fmt.Errorf("write catalog %s: %w", path, err)
	}
	return nil
}

func catalogSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := dataFS.ReadFile(schemaFile)
		if err != nil {
			schemaErr = fmt.Errorf("failed to read embedded file %s: %w", schemaFile, err)
			return
		}
		schema, schemaErr = jsonschema.CompileString(schemaFile, string(raw))
	})
	return schema, schemaErr
}
