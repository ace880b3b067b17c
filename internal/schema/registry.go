// Package schema holds one JSON-Schema document per entity kind and
// validates trail create payloads against it during strict replay
// (spec.md §4.13). Grounded on the teacher's internal/validation package's
// validate-and-collect-errors shape; the validator itself is
// santhosh-tekuri/jsonschema/v6, since no example repo in the pack carries
// its own JSON-Schema implementation.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Registry compiles and holds one schema per entity kind. Trail envelope
// payload schemas are permissive (unknown fields pass); config-like
// schemas would be strict, but this module only registers trail payload
// schemas, so every registered schema here is permissive by convention.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewRegistry compiles the built-in entity schemas (defs.go) and returns a
// ready-to-use registry.
func NewRegistry() (*Registry, error) {
	r := &Registry{schemas: make(map[string]*jsonschema.Schema)}
	for kind, raw := range builtinSchemas {
		if err := r.Register(kind, raw); err != nil {
			return nil, fmt.Errorf("schema: compile %s: %w", kind, err)
		}
	}
	return r, nil
}

// Register compiles and installs a schema document for entityKind,
// replacing any previously registered schema for that kind.
func (r *Registry) Register(entityKind string, document []byte) error {
	c := jsonschema.NewCompiler()
	url := "mem://" + entityKind + ".json"

	var doc any
	if err := json.Unmarshal(document, &doc); err != nil {
		return fmt.Errorf("schema: %s: parse: %w", entityKind, err)
	}
	if err := c.AddResource(url, doc); err != nil {
		return fmt.Errorf("schema: %s: add resource: %w", entityKind, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return fmt.Errorf("schema: %s: compile: %w", entityKind, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[entityKind] = compiled
	return nil
}

// Validate checks payload against the registered schema for entityKind and
// returns every validation error found (nil/empty on success). An entity
// kind with no registered schema is treated as always valid: the registry
// only constrains kinds it knows about.
func (r *Registry) Validate(entityKind string, payload []byte) []error {
	r.mu.RLock()
	s, ok := r.schemas[entityKind]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return []error{fmt.Errorf("schema: %s: decode payload: %w", entityKind, err)}
	}

	if err := s.Validate(doc); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return flattenValidationErrors(verr)
		}
		return []error{err}
	}
	return nil
}

// flattenValidationErrors walks a nested ValidationError tree (one node per
// failing schema location) into a flat list, so callers don't need to know
// jsonschema's internal error shape.
func flattenValidationErrors(verr *jsonschema.ValidationError) []error {
	var out []error
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if e == nil {
			return
		}
		loc := "/" + strings.Join(e.InstanceLocation, "/")
		out = append(out, fmt.Errorf("%s: %s", loc, e.Error()))
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	return out
}
