package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// firstChoiceJSON extracts the first choice from a model response, strips
// markdown code fences, and repairs common JSON defects. Returns the cleaned
// JSON text and the choice's generation info.
func firstChoiceJSON(response *llms.ContentResponse) (string, map[string]any, error) {
	if response == nil || len(response.Choices) == 0 {
		return "", nil, fmt.Errorf("model returned no choices")
	}

	choice := response.Choices[0]
	text := strings.TrimSpace(choice.Content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	return repairJSON(text), choice.GenerationInfo, nil
}

// tokenCount reads a token count out of langchaingo generation info, which
// reports ints for OpenAI and may be absent for other backends.
func tokenCount(info map[string]any, key string) int {
	if info == nil {
		return 0
	}
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// decodeJSON unmarshals cleaned model output into out, returning the raw text
// in the error for diagnostics.
func decodeJSON(text string, out any) error {
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("parse model response %q: %w", truncate(text, 200), err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// repairJSON attempts to fix the one malformation small local models emit
// routinely: a missing opening quote before an object key (`, type":` for
// `, "type":`). Anything else is left for the parse-retry loop.
func repairJSON(s string) string {
	result := []rune(s)
	fixed := make([]rune, 0, len(result)+16)

	i := 0
	for i < len(result) {
		ch := result[i]
		if ch != '{' && ch != ',' {
			fixed = append(fixed, ch)
			i++
			continue
		}

		fixed = append(fixed, ch)
		i++

		for i < len(result) && (result[i] == ' ' || result[i] == '\n' || result[i] == '\t') {
			fixed = append(fixed, result[i])
			i++
		}

		if i >= len(result) || result[i] == '"' || !isIdentRune(result[i]) {
			continue
		}

		keyStart := i
		for i < len(result) && (isIdentRune(result[i]) || result[i] == ' ') {
			i++
		}

		if i+1 < len(result) && result[i] == '"' && result[i+1] == ':' {
			// Unquoted key followed by `":` — insert the missing quote.
			fixed = append(fixed, '"')
			fixed = append(fixed, result[keyStart:i]...)
		} else {
			fixed = append(fixed, result[keyStart:i]...)
		}
	}

	return string(fixed)
}

func isIdentRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}
