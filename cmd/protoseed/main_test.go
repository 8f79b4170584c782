package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/ai/mock"
	"github.com/creativeghq/matflow/storage/badger"
)

const sampleSeeds = `
properties:
  - key: finish
    canonicals:
      - value: glossy
        descriptions:
          - A smooth reflective surface with a mirror-like sheen.
          - High-gloss polished finish that reflects light strongly.
          - Shiny lacquered coating.
      - value: matte
        descriptions:
          - A flat non-reflective surface texture.
          - Dull finish that diffuses light evenly.
          - Unpolished velvety coating.
  - key: thickness
    data_type: number
    canonicals:
      - value: "10mm"
        descriptions:
          - Ten millimeter slab thickness.
          - Standard 10mm thick porcelain panel.
          - A centimeter thick tile body.
`

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSeedFile(t *testing.T) {
	seeds, err := loadSeedFile(writeSeedFile(t, sampleSeeds))
	require.NoError(t, err)
	require.Len(t, seeds.Properties, 2)
	assert.Equal(t, "finish", seeds.Properties[0].Key)
	assert.Len(t, seeds.Properties[0].Canonicals, 2)
	assert.Len(t, seeds.Properties[0].Canonicals[0].Descriptions, 3)

	_, err = loadSeedFile(writeSeedFile(t, "properties: []"))
	require.Error(t, err)

	_, err = loadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestSeedPrototypes(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	gateway, err := ai.NewGateway(mock.NewMockProvider(), store, ai.NewConfig())
	require.NoError(t, err)

	seeds, err := loadSeedFile(writeSeedFile(t, sampleSeeds))
	require.NoError(t, err)
	require.NoError(t, seedPrototypes(context.Background(), gateway, store, seeds))

	ctx := context.Background()
	properties, err := store.ListProperties(ctx)
	require.NoError(t, err)
	require.Len(t, properties, 2)

	assert.Equal(t, "finish", properties[0].Key)
	assert.Equal(t, "string", properties[0].DataType)
	assert.Len(t, properties[0].Prototypes, 2)

	assert.Equal(t, "thickness", properties[1].Key)
	assert.Equal(t, "number", properties[1].DataType)
	assert.Len(t, properties[1].Prototypes, 1)
}
