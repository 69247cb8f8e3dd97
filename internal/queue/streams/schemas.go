package streams

import "fmt"

const (
	EventReportPublished = "report.published"
	VersionV1            = "v1"
)

// Definition describes a schema entry managed by the registry.
type Definition struct {
	EventType string
	Version   string
	Schema    []byte
}

var baseDefinitions = []Definition{
	{
		EventType: EventReportPublished,
		Version:   VersionV1,
		Schema: []byte(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["job_id", "query", "report_kind", "cost", "elapsed_seconds", "urls"],
  "properties": {
    "job_id": {"type": "string", "minLength": 1},
    "query": {"type": "string", "minLength": 1},
    "report_kind": {"type": "string", "minLength": 1},
    "requester": {"type": "string"},
    "cost": {"type": "number", "minimum": 0},
    "elapsed_seconds": {"type": "number", "minimum": 0},
    "urls": {
      "type": "object",
      "required": ["markdown", "html", "supplementary_markdown", "supplementary_html"],
      "properties": {
        "markdown": {"type": "string", "minLength": 1},
        "html": {"type": "string", "minLength": 1},
        "supplementary_markdown": {"type": "string", "minLength": 1},
        "supplementary_html": {"type": "string", "minLength": 1}
      }
    },
    "sources": {"type": "array", "items": {"type": "string"}}
  },
  "additionalProperties": true
}`),
	},
}

// BaseDefinitions returns the built-in schema definitions.
func BaseDefinitions() []Definition {
	defs := make([]Definition, len(baseDefinitions))
	copy(defs, baseDefinitions)
	return defs
}

// RegisterBaseSchemas loads the built-in event schemas into reg.
func RegisterBaseSchemas(reg *SchemaRegistry) error {
	if reg == nil {
		return fmt.Errorf("registry is nil")
	}
	for _, def := range baseDefinitions {
		if err := reg.Register(def.EventType, def.Version, def.Schema); err != nil {
			return fmt.Errorf("register %s %s: %w", def.EventType, def.Version, err)
		}
	}
	return nil
}
