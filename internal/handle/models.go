package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type ModelInfo struct {
	Backend string `json:"backend"`
}

type ModelsResponse struct {
	Backends           []ModelInfo `json:"backends"`
	DefaultModel       string      `json:"default_model"`
	DefaultReviewModel string      `json:"default_review_model"`
}

// Models lists the configured backends and defaults.
func (h *Handle) Models(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	resp := ModelsResponse{
		DefaultModel:       h.defaultModel,
		DefaultReviewModel: h.defaultReviewModel,
	}
	for _, eng := range h.registry.Engines() {
		resp.Backends = append(resp.Backends, ModelInfo{Backend: eng.Name()})
	}
	writeJSON(w, http.StatusOK, resp)
}

type ModelCheckRequest struct {
	Model string `json:"model"`
}

type ModelCheckResponse struct {
	Model   string `json:"model"`
	Backend string `json:"backend"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// ModelsCheck probes a backend with a lightweight text completion.
func (h *Handle) ModelsCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req ModelCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	model := strings.TrimSpace(req.Model)

	eng, err := h.registry.Resolve(model)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	resp := ModelCheckResponse{Model: model, Backend: eng.Name()}
	if _, err := eng.Complete(ctx, "Reply with the single word: ok", model); err != nil {
		resp.Error = err.Error()
	} else {
		resp.OK = true
	}
	writeJSON(w, http.StatusOK, resp)
}
