package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/ai/mock"
	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/extract"
	"github.com/creativeghq/matflow/metadata"
	"github.com/creativeghq/matflow/orchestrator"
	"github.com/creativeghq/matflow/pipeline"
	"github.com/creativeghq/matflow/storage"
	"github.com/creativeghq/matflow/storage/badger"
)

type fixedExtractor struct {
	pages []string
}

var _ extract.DocumentExtractor = (*fixedExtractor)(nil)

func (f *fixedExtractor) Probe(_ context.Context, _ []byte) (int, error) {
	return len(f.pages), nil
}

func (f *fixedExtractor) Extract(_ context.Context, _ []byte) (*extract.Document, error) {
	doc := &extract.Document{PageCount: len(f.pages)}
	for i, text := range f.pages {
		doc.Pages = append(doc.Pages, extract.PageText{Page: i + 1, Text: text})
	}
	return doc, nil
}

func newTestServer(t *testing.T) (*httptest.Server, storage.Store) {
	t.Helper()

	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	docsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "catalog.pdf"), []byte("stub"), 0o644))
	artifacts, err := storage.NewFSArtifactStore(docsDir, filepath.Join(t.TempDir(), "images"))
	require.NoError(t, err)

	provider := mock.NewMockProvider()
	gateway, err := ai.NewGateway(provider, store, ai.DefaultConfig())
	require.NoError(t, err)
	validator := metadata.NewValidator(gateway, store)

	pipe, err := pipeline.New(pipeline.Deps{
		Store:     store,
		Artifacts: artifacts,
		Extractor: &fixedExtractor{pages: []string{"Product MARBLE ARCH. Polished porcelain stoneware slab in six formats for high-traffic flooring and facades."}},
		Gateway:   gateway,
		Validator: validator,
	})
	require.NoError(t, err)

	orch, err := orchestrator.New(store, pipe, &orchestrator.Config{
		Workers:        2,
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { orch.Close() })

	server, err := New("127.0.0.1:0", orch, store, validator, gateway)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// submitAndWait submits a job and polls the API until it completes.
func submitAndWait(t *testing.T, ts *httptest.Server) string {
	t.Helper()

	resp := postJSON(t, ts.URL+"/jobs", map[string]string{
		"document_ref": "catalog.pdf",
		"workspace_id": "ws-1",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var submitted jobView
	decodeBody(t, resp, &submitted)
	require.NotEmpty(t, submitted.ID)

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		getResp, err := http.Get(ts.URL + "/jobs/" + submitted.ID)
		require.NoError(t, err)

		var body struct {
			Job jobView `json:"job"`
		}
		decodeBody(t, getResp, &body)
		if body.Job.Status == core.JobCompleted.String() {
			return submitted.ID
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never completed")
	return ""
}

func TestJobLifecycleEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	jobID := submitAndWait(t, ts)

	// Completed job exposes checkpoints and products.
	resp, err := http.Get(ts.URL + "/jobs/" + jobID + "/checkpoints")
	require.NoError(t, err)
	var checkpoints struct {
		Latest  []checkpointView `json:"latest"`
		History []checkpointView `json:"history"`
	}
	decodeBody(t, resp, &checkpoints)
	assert.Len(t, checkpoints.Latest, len(core.Stages()))
	assert.Len(t, checkpoints.History, len(core.Stages()))
	assert.Equal(t, "discovery", checkpoints.Latest[0].Stage)
	assert.NotNil(t, checkpoints.Latest[0].Payload)

	resp, err = http.Get(ts.URL + "/jobs/" + jobID + "/products")
	require.NoError(t, err)
	var products struct {
		Products []core.Product `json:"products"`
	}
	decodeBody(t, resp, &products)
	require.Len(t, products.Products, 1)
	assert.Equal(t, "PRODUCT", products.Products[0].Name)

	// Usage is aggregated per model.
	resp, err = http.Get(ts.URL + "/jobs/" + jobID + "/ai-usage")
	require.NoError(t, err)
	var usage struct {
		JobID  string                          `json:"job_id"`
		Models map[string]ai.ModelUsageSummary `json:"models"`
	}
	decodeBody(t, resp, &usage)
	assert.Equal(t, jobID, usage.JobID)
	assert.Contains(t, usage.Models, "mock-cheap")
	assert.Contains(t, usage.Models, "mock-deep")

	// Listing includes the job.
	resp, err = http.Get(ts.URL + "/jobs?workspace=ws-1")
	require.NoError(t, err)
	var listing struct {
		Jobs []jobView `json:"jobs"`
	}
	decodeBody(t, resp, &listing)
	require.Len(t, listing.Jobs, 1)
	assert.Equal(t, jobID, listing.Jobs[0].ID)
}

func TestJobEndpointErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/jobs/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/jobs", map[string]string{"workspace_id": "ws-1"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Resuming a completed job is accepted as a no-op.
	jobID := submitAndWait(t, ts)
	resp = postJSON(t, ts.URL+"/jobs/"+jobID+"/resume", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/jobs/"+jobID+"/cancel", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestValidateMetadataEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/validate-metadata", map[string]string{
		"property_key": "finish",
		"raw_value":    "hand glazed",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result core.ValidationResult
	decodeBody(t, resp, &result)
	assert.Equal(t, "hand glazed", result.CanonicalValue)
	assert.False(t, result.Matched)

	resp = postJSON(t, ts.URL+"/validate-metadata", map[string]string{"property_key": "finish"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPrototypeEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/properties/finish/prototypes", map[string]any{
		"canonical": "glossy",
		"descriptions": []string{
			"high gloss reflective surface",
			"polished shiny finish",
			"mirror like glazed coating",
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Key        string `json:"key"`
		Prototypes int    `json:"prototypes"`
	}
	decodeBody(t, resp, &created)
	assert.Equal(t, "finish", created.Key)
	assert.Equal(t, 1, created.Prototypes)

	// Too few descriptions is a client error.
	resp = postJSON(t, ts.URL+"/properties/finish/prototypes", map[string]any{
		"canonical":    "matte",
		"descriptions": []string{"dull surface"},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Get(ts.URL + "/properties")
	require.NoError(t, err)
	var listing struct {
		Properties []struct {
			Key        string   `json:"key"`
			Canonicals []string `json:"canonicals"`
		} `json:"properties"`
	}
	decodeBody(t, resp, &listing)
	require.Len(t, listing.Properties, 1)
	assert.Equal(t, "finish", listing.Properties[0].Key)
	assert.Equal(t, []string{"glossy"}, listing.Properties[0].Canonicals)
}

func TestStreamEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	jobID := submitAndWait(t, ts)

	// A completed job streams its snapshot and closes.
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/jobs/" + jobID + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	var snapshot struct {
		JobID    string `json:"job_id"`
		Status   string `json:"status"`
		Progress int    `json:"progress"`
	}
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, jobID, snapshot.JobID)
	assert.Equal(t, core.JobCompleted.String(), snapshot.Status)
	assert.Equal(t, 100, snapshot.Progress)
}
