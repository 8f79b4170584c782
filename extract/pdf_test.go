package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_RejectsGarbage(t *testing.T) {
	extractor := NewPDFExtractor()

	_, err := extractor.Probe(context.Background(), []byte("not a pdf at all"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestExtract_RejectsGarbage(t *testing.T) {
	extractor := NewPDFExtractor()

	_, err := extractor.Extract(context.Background(), []byte{0x00, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestExtract_RejectsEmptyInput(t *testing.T) {
	extractor := NewPDFExtractor()

	_, err := extractor.Extract(context.Background(), nil)
	assert.Error(t, err)
}
