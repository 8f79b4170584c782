// Copyright 2025 CreativeGHQ
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/core"
	"github.com/creativeghq/matflow/metadata"
	"github.com/creativeghq/matflow/orchestrator"
	"github.com/creativeghq/matflow/storage"
)

// jobView is the wire shape of a job record.
type jobView struct {
	ID           string    `json:"id"`
	DocumentRef  string    `json:"document_ref"`
	WorkspaceID  string    `json:"workspace_id"`
	Status       string    `json:"status"`
	CurrentStage string    `json:"current_stage"`
	Progress     int       `json:"progress"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func viewJob(job *core.Job) jobView {
	return jobView{
		ID:           job.ID,
		DocumentRef:  job.DocumentRef,
		WorkspaceID:  job.WorkspaceID,
		Status:       job.Status.String(),
		CurrentStage: job.CurrentStage.String(),
		Progress:     job.Progress,
		Error:        job.Error,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

type checkpointView struct {
	Stage       string          `json:"stage"`
	Status      string          `json:"status"`
	Attempt     int             `json:"attempt"`
	Error       string          `json:"error,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func viewCheckpoint(checkpoint *core.Checkpoint) checkpointView {
	view := checkpointView{
		Stage:   checkpoint.Stage.String(),
		Status:  checkpoint.Status.String(),
		Attempt: checkpoint.Attempt,
		Error:   checkpoint.Error,
		Payload: json.RawMessage(checkpoint.Payload),
	}
	if !checkpoint.CompletedAt.IsZero() {
		completed := checkpoint.CompletedAt
		view.CompletedAt = &completed
	}
	return view
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentRef string `json:"document_ref"`
		WorkspaceID string `json:"workspace_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentRef == "" {
		writeError(w, http.StatusBadRequest, "document_ref is required")
		return
	}

	job, err := s.orch.Submit(r.Context(), req.DocumentRef, req.WorkspaceID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, viewJob(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context(), r.URL.Query().Get("workspace"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, viewJob(job))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": views})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	report, err := s.orch.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	checkpoints := make([]checkpointView, 0, len(report.Checkpoints))
	for _, checkpoint := range report.Checkpoints {
		view := viewCheckpoint(checkpoint)
		// Payloads are internal; the checkpoints endpoint exposes them.
		view.Payload = nil
		checkpoints = append(checkpoints, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job":         viewJob(report.Job),
		"checkpoints": checkpoints,
	})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Cancel(r.Context(), r.PathValue("id")); err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *Server) handleResumeJob(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Resume(r.Context(), r.PathValue("id")); err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleListCheckpoints(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if _, err := s.store.GetJob(r.Context(), jobID); err != nil {
		s.writeFailure(w, err)
		return
	}

	checkpoints, err := s.store.ListCheckpoints(r.Context(), jobID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	history, err := s.store.CheckpointHistory(r.Context(), jobID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	latest := make([]checkpointView, 0, len(checkpoints))
	for _, checkpoint := range checkpoints {
		latest = append(latest, viewCheckpoint(checkpoint))
	}
	past := make([]checkpointView, 0, len(history))
	for _, checkpoint := range history {
		view := viewCheckpoint(checkpoint)
		view.Payload = nil
		past = append(past, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{"latest": latest, "history": past})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if _, err := s.store.GetJob(r.Context(), jobID); err != nil {
		s.writeFailure(w, err)
		return
	}
	products, err := s.store.ListProductsByJob(r.Context(), jobID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (s *Server) handleJobUsage(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if _, err := s.store.GetJob(r.Context(), jobID); err != nil {
		s.writeFailure(w, err)
		return
	}
	records, err := s.store.JobUsage(r.Context(), jobID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id": jobID,
		"models": ai.BuildUsageReport(records),
	})
}

func (s *Server) handleValidateMetadata(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyKey string `json:"property_key"`
		RawValue    string `json:"raw_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RawValue == "" {
		writeError(w, http.StatusBadRequest, "raw_value is required")
		return
	}

	// Ad-hoc validations carry no job attribution.
	result, err := s.validator.Validate(r.Context(), ai.CallScope{}, req.PropertyKey, req.RawValue)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := s.store.ListProperties(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	type propertyView struct {
		Key        string   `json:"key"`
		DataType   string   `json:"data_type"`
		Canonicals []string `json:"canonicals"`
		Unmatched  int      `json:"unmatched_values"`
	}
	views := make([]propertyView, 0, len(properties))
	for _, property := range properties {
		view := propertyView{Key: property.Key, DataType: property.DataType}
		for canonical := range property.Prototypes {
			view.Canonicals = append(view.Canonicals, canonical)
		}
		view.Unmatched = len(property.RawValueCounts)
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": views})
}

func (s *Server) handlePutPrototype(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Canonical    string   `json:"canonical"`
		Descriptions []string `json:"descriptions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Canonical == "" {
		writeError(w, http.StatusBadRequest, "canonical is required")
		return
	}

	vector, err := metadata.BuildPrototype(r.Context(), s.gateway, ai.CallScope{}, req.Descriptions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	property, err := s.store.PutPrototype(r.Context(), r.PathValue("key"), req.Canonical, vector)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"key":        property.Key,
		"canonical":  req.Canonical,
		"prototypes": len(property.Prototypes),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure maps domain errors onto HTTP statuses.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orchestrator.ErrJobTerminal),
		errors.Is(err, orchestrator.ErrJobNotResumable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, orchestrator.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, core.ErrInvalidJob), errors.Is(err, core.ErrEmptyPropertyKey):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
