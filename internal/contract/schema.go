package contract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compileSchema compiles a JSON schema document at package init.
func compileSchema(name, doc string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader([]byte(doc))); err != nil {
		panic(fmt.Sprintf("contract: bad schema resource %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("contract: schema %s does not compile: %v", name, err))
	}
	return schema
}

// validates reports whether payload conforms to schema. Validation failure is
// a contract violation, handled by the caller as "no data", never an error.
func validates(schema *jsonschema.Schema, payload map[string]any) bool {
	if schema == nil || payload == nil {
		return false
	}
	// Round-trip so numbers and nested values carry the types the validator
	// expects regardless of how the payload was produced.
	raw, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	return schema.Validate(doc) == nil
}

var (
	titleBlockSchema = compileSchema("title_block.json", `{
		"type": "object",
		"properties": {
			"sheet_number": {"type": ["string", "null"]},
			"sheet_name": {"type": ["string", "null"]},
			"project_address": {"type": ["string", "null"]},
			"firm_name": {"type": ["string", "null"]},
			"has_professional_stamp": {"type": ["boolean", "string", "null"]},
			"has_signature": {"type": ["boolean", "string", "null"]},
			"has_2x2_blank_area": {"type": ["boolean", "string", "null"]},
			"revision_history": {
				"type": ["array", "null"],
				"items": {"type": "object"}
			}
		}
	}`)

	annotationsSchema = compileSchema("annotations.json", `{
		"type": "object",
		"properties": {
			"annotations": {
				"type": "array",
				"items": {"type": "object"}
			}
		},
		"required": ["annotations"]
	}`)

	coverPageSchema = compileSchema("cover_page.json", `{
		"type": "object",
		"properties": {
			"stated_sheet_count": {"type": ["integer", "number", "null"]},
			"permit_number": {"type": ["string", "null"]},
			"has_blank_stamp_area": {"type": ["boolean", "string", "null"]}
		}
	}`)

	hatchingSchema = compileSchema("hatching.json", `{
		"type": "object",
		"properties": {
			"density_percent": {"type": ["number", "null"]},
			"assessment": {"type": ["string", "null"]}
		}
	}`)
)
