package badger

import (
	"context"
	"testing"

	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProduct(jobID, name string) *core.Product {
	return &core.Product{
		ID:          uuid.NewString(),
		JobID:       jobID,
		WorkspaceID: "ws-1",
		Name:        name,
		Attributes:  map[string]string{"material": "porcelain stoneware"},
		Quality:     core.QualityHigh,
		Confidence:  0.9,
		SourceChunk: core.IDFromContent(name),
	}
}

func TestAddProducts_AndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	product := testProduct("job-1", "Terra Crea Pompei")
	_, err := store.AddProducts(ctx, product)
	require.NoError(t, err)
	assert.False(t, product.CreatedAt.IsZero())

	got, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.Name, got.Name)
	assert.Equal(t, product.Attributes, got.Attributes)
}

func TestAddProducts_RejectsGateFailures(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	lowQuality := testProduct("job-1", "Sospiro")
	lowQuality.Quality = core.QualityLow
	_, err := store.AddProducts(ctx, lowQuality)
	assert.ErrorIs(t, err, core.ErrInvalidProduct)

	lowConfidence := testProduct("job-1", "Sospiro")
	lowConfidence.Confidence = 0.2
	_, err = store.AddProducts(ctx, lowConfidence)
	assert.ErrorIs(t, err, core.ErrInvalidProduct)
}

func TestListProductsByJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddProducts(ctx,
		testProduct("job-1", "Zellige"),
		testProduct("job-1", "Azulej"),
		testProduct("job-2", "Mews"),
	)
	require.NoError(t, err)

	products, err := store.ListProductsByJob(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Azulej", products[0].Name)
	assert.Equal(t, "Zellige", products[1].Name)
}

func TestGetProduct_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAddChunks_AndListOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []*core.Chunk{
		{ID: core.IDFromContent("c2"), JobID: "job-1", Index: 2, Content: "third"},
		{ID: core.IDFromContent("c0"), JobID: "job-1", Index: 0, Content: "first"},
		{ID: core.IDFromContent("c1"), JobID: "job-1", Index: 1, Content: "second"},
	}
	require.NoError(t, store.AddChunks(ctx, chunks...))

	got, err := store.ListChunksByJob(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)
	assert.Equal(t, "third", got[2].Content)
}

func TestAddImageRecords_AndListByPage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddImageRecords(ctx,
		&core.ImageRecord{Ref: "job-1/p5-0.png", JobID: "job-1", Page: 5, Caption: "later page"},
		&core.ImageRecord{Ref: "job-1/p1-0.png", JobID: "job-1", Page: 1, Caption: "cover", Tags: []string{"tile"}},
	))

	images, err := store.ListImagesByJob(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, 1, images[0].Page)
	assert.Equal(t, []string{"tile"}, images[0].Tags)
	assert.Equal(t, 5, images[1].Page)
}
