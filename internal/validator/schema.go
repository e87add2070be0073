package validator

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaDoc is the fixed JSON Schema for a normalized intent mapping. It
// covers the structural contract (type enum, confidence bounds, parameters
// object, raw_entities array-of-strings); intent-specific parameter shapes
// and per-index raw_entities typing are enforced afterward in Go, mirroring
// the schema-level/business-level split in registry/service.go.
const schemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "type": {
      "type": "string",
      "enum": ["CAPTURE_TASKS", "PLAN_DAY", "PROCESS_MEETING_NOTES", "SEARCH_SUMMARIZE", "BUILD_WORKFLOW", "UNKNOWN"]
    },
    "confidence": {
      "type": "number",
      "minimum": 0.0,
      "maximum": 1.0
    },
    "parameters": {
      "type": "object"
    },
    "raw_entities": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "required": ["type", "confidence"]
}`

var compiledSchema *jsonschema.Schema

func init() {
	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaDoc))
	if err != nil {
		panic(fmt.Sprintf("validator: parse embedded schema: %v", err))
	}
	if err := c.AddResource("intent.json", doc); err != nil {
		panic(fmt.Sprintf("validator: add schema resource: %v", err))
	}
	compiledSchema, err = c.Compile("intent.json")
	if err != nil {
		panic(fmt.Sprintf("validator: compile schema: %v", err))
	}
}
