package chunker

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names for the files of a sanitized export.
const (
	schemaIncidents = "incidents.schema.json"
	schemaEvents    = "timeline_events.schema.json"
	schemaWarnings  = "warnings.schema.json"
	schemaManifest  = "sanitized_manifest.schema.json"
)

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

// compiledSchemas compiles the embedded schemas once per process.
func compiledSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		compiled := make(map[string]*jsonschema.Schema)
		for _, name := range []string{schemaIncidents, schemaEvents, schemaWarnings, schemaManifest} {
			data, err := schemaFS.ReadFile(path.Join("schemas", name))
			if err != nil {
				schemasErr = fmt.Errorf("read schema %s: %w", name, err)
				return
			}
			compiler := jsonschema.NewCompiler()
			if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
				schemasErr = fmt.Errorf("add schema %s: %w", name, err)
				return
			}
			schema, err := compiler.Compile(name)
			if err != nil {
				schemasErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = schema
		}
		schemas = compiled
	})
	return schemas, schemasErr
}

// validateDocument checks raw JSON against the named schema.
func validateDocument(name string, raw []byte) error {
	compiled, err := compiledSchemas()
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := compiled[name].Validate(instance); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
