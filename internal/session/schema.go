package session

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// slotSchema describes the value stored in the slot.
// minItems enforces that a saved batch is never empty.
const slotSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["name", "type", "data"],
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "type": {"type": "string", "const": "application/pdf"},
      "data": {"type": "string"}
    }
  }
}`

var slotSchemaLoader = gojsonschema.NewStringLoader(slotSchema)

// validateSlot checks a raw slot value against slotSchema.
func validateSlot(raw []byte) error {
	result, err := gojsonschema.Validate(slotSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		// Malformed JSON ends up here
		return fmt.Errorf("unparsable slot value: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		msgs = append(msgs, field+": "+desc.Description())
	}
	return fmt.Errorf("invalid slot value: %s", strings.Join(msgs, "; "))
}
