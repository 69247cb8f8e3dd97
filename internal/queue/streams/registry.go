package streams

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

type schemaKey struct{ eventType, version string }

// SchemaRegistry holds the compiled payload schema for each event type and
// version. Publishing an event without a registered schema fails.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[schemaKey]*jsonschema.Schema
}

func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[schemaKey]*jsonschema.Schema)}
}

// Register compiles raw and stores it, replacing any earlier schema for the
// same event type and version.
func (r *SchemaRegistry) Register(eventType, version string, raw []byte) error {
	if eventType == "" || version == "" {
		return fmt.Errorf("event type and version are required")
	}
	if len(raw) == 0 {
		return fmt.Errorf("schema for %s@%s is empty", eventType, version)
	}
	name := eventType + "@" + version + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := c.Compile(name)
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}
	r.mu.Lock()
	r.schemas[schemaKey{eventType, version}] = compiled
	r.mu.Unlock()
	return nil
}

// Validate checks payload against the schema registered for the event.
func (r *SchemaRegistry) Validate(eventType, version string, payload []byte) error {
	r.mu.RLock()
	schema, ok := r.schemas[schemaKey{eventType, version}]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no schema registered for %s@%s", eventType, version)
	}
	if len(payload) == 0 {
		return fmt.Errorf("payload is empty")
	}
	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%s@%s payload invalid: %w", eventType, version, err)
	}
	return nil
}
