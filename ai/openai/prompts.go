package openai

import (
	"fmt"
	"strings"

	"github.com/creativeghq/matflow/ai"
)

const classificationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "verdicts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "chunk_index": {
            "type": "integer",
            "minimum": 0
          },
          "is_candidate": {
            "type": "boolean"
          },
          "confidence": {
            "type": "number",
            "minimum": 0,
            "maximum": 1
          },
          "content_type_guess": {
            "type": "string"
          }
        },
        "required": ["chunk_index", "is_candidate", "confidence", "content_type_guess"],
        "additionalProperties": false
      }
    }
  },
  "required": ["verdicts"],
  "additionalProperties": false
}`

const classificationPromptTemplate = `You are a fast bulk filter for material catalog content. For each numbered
chunk, decide whether it describes a concrete product (tile, surface, fabric,
furniture piece) as opposed to index pages, marketing copy, certifications,
sustainability statements, or technical appendices.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Return exactly one verdict per input chunk, with chunk_index matching the chunk's number.
- content_type_guess must match exactly one of the listed values: %s.
- confidence is your certainty in the verdict from 0.0 to 1.0.
- A chunk is a candidate only if it names or clearly describes a specific product. Collection names alone with no product data are not candidates.
- Index pages, tables of contents, designer rosters, and certification lists are never candidates.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input:
[0] VALENOVA Collection. Porcelain stoneware, 15x38 cm, matte finish, colors: white, beige, grey.
[1] INDEX - Sustainability 8 - Quality certifications 10 - Technical characteristics 14
Output:
{
  "verdicts": [
    {"chunk_index":0,"is_candidate":true,"confidence":0.92,"content_type_guess":"product"},
    {"chunk_index":1,"is_candidate":false,"confidence":0.97,"content_type_guess":"index"}
  ]
}`

const enrichmentResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1
    },
    "description": {
      "type": "string"
    },
    "designer": {
      "type": "string"
    },
    "collection": {
      "type": "string"
    },
    "attributes": {
      "type": "object",
      "additionalProperties": {
        "type": "string"
      }
    },
    "quality_assessment": {
      "type": "string",
      "enum": ["high", "medium", "low"]
    },
    "confidence": {
      "type": "number",
      "minimum": 0,
      "maximum": 1
    }
  },
  "required": ["name", "quality_assessment", "confidence"],
  "additionalProperties": false
}`

const enrichmentPromptTemplate = `You are a careful catalog data extractor. Extract full structured product data
from the given catalog text.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- name is the product name as printed (e.g. "VALENOVA", "FOLD").
- attributes is an open key/value map. Use snake_case keys. Include everything the text states: dimensions, thickness, materials, colors, surface_finish, slip_resistance, water_absorption, application, and any other stated property.
- Attribute values are verbatim from the text; do not invent, convert, or summarize values.
- quality_assessment is "high" when the text states name plus several concrete properties, "medium" when data is sparse but real, "low" when you are mostly guessing.
- confidence is your certainty that this text describes the extracted product, from 0.0 to 1.0.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "VALENOVA by ESTUDI{H}AC. Porcelain stoneware 15x38 cm, 8.5 mm. Colors: White, Beige. Matte finish, R10."
Output:
{
  "name": "VALENOVA",
  "description": "Porcelain stoneware wall tile collection",
  "designer": "ESTUDI{H}AC",
  "collection": "VALENOVA",
  "attributes": {
    "material": "Porcelain stoneware",
    "dimensions": "15x38 cm",
    "thickness": "8.5 mm",
    "colors": "White, Beige",
    "surface_finish": "Matte",
    "slip_resistance": "R10"
  },
  "quality_assessment": "high",
  "confidence": 0.93
}`

const visionPromptTemplate = `Describe this catalog page image for product search indexing.

Output ONLY valid JSON with exactly these keys:
{"caption": "<one-sentence factual description>", "tags": ["<3-8 lowercase keywords>"]}

Rules:
- The caption states what is depicted: product, room scene, texture detail, swatch grid, or diagram.
- Tags are concrete nouns and visual properties (e.g. "tile", "bathroom", "matte", "beige").
- No extraneous text outside the JSON object.`

// buildClassificationPrompt creates the stage-1 system prompt with the
// content type vocabulary embedded.
func buildClassificationPrompt() string {
	return fmt.Sprintf(classificationPromptTemplate,
		classificationResponseSchema,
		strings.Join(ai.ContentTypes, ", "))
}

// buildEnrichmentPrompt creates the stage-2 system prompt.
func buildEnrichmentPrompt() string {
	return fmt.Sprintf(enrichmentPromptTemplate, enrichmentResponseSchema)
}

// formatChunkBatch numbers the chunks for the stage-1 user message.
func formatChunkBatch(texts []string) string {
	var b strings.Builder
	for i, text := range texts {
		fmt.Fprintf(&b, "[%d] %s\n\n", i, strings.TrimSpace(text))
	}
	return b.String()
}
