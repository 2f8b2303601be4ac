package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"labelscan/internal/workflow"
)

type CorrectionRequest struct {
	WorkflowID    string            `json:"workflow_id"`
	CorrectedText string            `json:"corrected_text"`
	CorrectedData map[string]string `json:"corrected_structured_data,omitempty"`
	Comments      string            `json:"comments,omitempty"`
}

// Correction merges a human correction into a workflow awaiting review.
func (h *Handle) Correction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req CorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.WorkflowID) == "" {
		http.Error(w, "missing workflow_id", http.StatusBadRequest)
		return
	}

	st, err := h.orch.SubmitCorrection(r.Context(), workflow.Correction{
		WorkflowID:     strings.TrimSpace(req.WorkflowID),
		Text:           req.CorrectedText,
		StructuredData: req.CorrectedData,
		Comments:       req.Comments,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Workflow looks up a workflow by id: /v1/workflows/{id}.
func (h *Handle) Workflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/workflows/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "missing workflow id", http.StatusBadRequest)
		return
	}
	st, err := h.orch.Get(r.Context(), id)
	if errors.Is(err, workflow.ErrNotFound) && h.History != nil {
		if logged, lerr := h.History.FindLatest(r.Context(), id); lerr == nil {
			writeJSON(w, http.StatusOK, logged)
			return
		}
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
