// Package schema validates ihop protocol messages with JSON Schema.
//
// The command schemas are embedded and registered under their tag URIs
// (tag:bowtie.report,2023:ihop:command:<name>), so references such as
// {"$ref": "tag:...:run#response"} resolve without network access.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator is a protocol.Validator backed by kaptinlin/jsonschema.
// It is safe for concurrent use.
type Validator struct {
	mu       sync.Mutex
	compiler *jsonschema.Compiler
	compiled map[string]*jsonschema.Schema
}

// NewValidator compiles the embedded command schemas.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}
	for _, entry := range entries {
		data, err := commandSchema(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		var doc struct {
			ID string `json:"$id"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", entry.Name(), err)
		}
		if _, err := compiler.Compile(data, doc.ID); err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", entry.Name(), err)
		}
	}

	return &Validator{
		compiler: compiler,
		compiled: make(map[string]*jsonschema.Schema),
	}, nil
}

// Validate checks instance against schema, typically a {"$ref": ...} into
// one of the command schemas.
func (v *Validator) Validate(instance any, schema map[string]any) error {
	compiled, err := v.compile(schema)
	if err != nil {
		return err
	}

	data, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("encode instance: %w", err)
	}

	result := compiled.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}

func (v *Validator) compile(schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	key := string(raw)

	v.mu.Lock()
	defer v.mu.Unlock()

	if compiled, ok := v.compiled[key]; ok {
		return compiled, nil
	}
	compiled, err := v.compiler.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v.compiled[key] = compiled
	return compiled, nil
}

// commandSchema returns the raw embedded schema for a command name.
func commandSchema(name string) ([]byte, error) {
	data, err := schemaFS.ReadFile(path.Join("schemas", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("no schema for command %q: %w", name, err)
	}
	return data, nil
}
