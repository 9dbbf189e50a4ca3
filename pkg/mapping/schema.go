package mapping

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "sheets": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["target_sheet"],
        "properties": {
          "target_sheet": {"type": "string"},
          "source_sheet": {"type": ["string", "null"]},
          "target_headers": {"type": ["array", "null"], "items": {"type": "string"}},
          "drop_if_all_blank": {"type": ["boolean", "null"]},
          "columns": {
            "type": ["array", "null"],
            "items": {
              "type": "object",
              "required": ["target"],
              "properties": {
                "target": {"type": "string"},
                "source": {"type": ["string", "null"]},
                "default": {"type": ["string", "null"]},
                "transforms": {"type": ["array", "null"], "items": {"type": "string"}},
                "find_replace": {"$ref": "#/definitions/replacements"},
                "advanced_rules": {
                  "type": ["array", "null"],
                  "items": {
                    "type": "object",
                    "properties": {
                      "ref": {"type": ["string", "null"]},
                      "op": {"type": ["string", "null"]},
                      "match": {"type": ["string", "null"]},
                      "set": {"type": ["string", "null"]}
                    }
                  }
                },
                "advanced_else": {"type": ["string", "null"]},
                "data_type": {"type": ["string", "null"]},
                "number_format": {"type": ["string", "null"]},
                "advanced_code": {"type": ["string", "null"]}
              }
            }
          }
        }
      }
    },
    "global_find_replace": {"$ref": "#/definitions/replacements"}
  },
  "definitions": {
    "replacements": {
      "type": ["object", "null"],
      "additionalProperties": {"type": "string"}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to parse document schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// validateDocument checks a JSON encoded mapping document against the schema.
func validateDocument(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("mapping document is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("mapping document validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}
