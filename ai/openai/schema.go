package openai

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Compiled response schemas. The same schema text is embedded in the prompts,
// so the model is asked for exactly the shape we validate against.
var (
	classificationSchema = jsonschema.MustCompileString(
		"classification.json", classificationResponseSchema)
	enrichmentSchema = jsonschema.MustCompileString(
		"enrichment.json", enrichmentResponseSchema)
)

// validateAgainst checks cleaned model output against a compiled schema
// before it is decoded into typed structs. A schema violation is a parse
// failure: the caller's retry loop gets another attempt at a clean response.
func validateAgainst(schema *jsonschema.Schema, text string) error {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return fmt.Errorf("parse model response %q: %w", truncate(text, 200), err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("model response violates schema: %w", err)
	}
	return nil
}
