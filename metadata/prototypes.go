package metadata

import (
	"context"
	"fmt"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/core"
)

const (
	// MinPrototypeDescriptions and MaxPrototypeDescriptions bound how many
	// natural-language descriptions a prototype is averaged over.
	MinPrototypeDescriptions = 3
	MaxPrototypeDescriptions = 5
)

// BuildPrototype embeds several natural-language descriptions of a canonical
// value and averages them into a single normalized prototype vector.
func BuildPrototype(ctx context.Context, gateway *ai.Gateway, scope ai.CallScope, descriptions []string) ([]float32, error) {
	if len(descriptions) < MinPrototypeDescriptions || len(descriptions) > MaxPrototypeDescriptions {
		return nil, fmt.Errorf("prototype needs %d-%d descriptions, got %d",
			MinPrototypeDescriptions, MaxPrototypeDescriptions, len(descriptions))
	}

	vectors, err := gateway.EmbedTexts(ctx, scope, descriptions)
	if err != nil {
		return nil, fmt.Errorf("embed descriptions: %w", err)
	}
	if len(vectors) != len(descriptions) {
		return nil, fmt.Errorf("embedding count mismatch: %d vectors for %d descriptions",
			len(vectors), len(descriptions))
	}

	dim := len(vectors[0])
	mean := make([]float32, dim)
	for _, vector := range vectors {
		if len(vector) != dim {
			return nil, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(vector), dim)
		}
		for i, value := range vector {
			mean[i] += value
		}
	}
	for i := range mean {
		mean[i] /= float32(len(vectors))
	}

	return core.NormalizeVector(mean), nil
}
