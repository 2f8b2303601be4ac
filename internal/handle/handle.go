package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"labelscan/internal/provider"
	"labelscan/internal/workflow"
)

type Handle struct {
	orch     *workflow.Orchestrator
	registry *provider.Registry

	defaultModel       string
	defaultReviewModel string

	// History, when set, backs workflow lookups that miss the cache with
	// the persistent log, so results survive restarts and TTL expiry.
	History History
}

// History is the read side of the workflow log.
type History interface {
	FindLatest(ctx context.Context, id string) (*workflow.State, error)
}

func New(orch *workflow.Orchestrator, reg *provider.Registry, defaultModel, defaultReviewModel string) *Handle {
	return &Handle{
		orch:               orch,
		registry:           reg,
		defaultModel:       defaultModel,
		defaultReviewModel: defaultReviewModel,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the workflow error taxonomy onto HTTP statuses. Only
// validation and state errors are expected here; everything else degrades
// inside the workflow.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, workflow.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, workflow.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
