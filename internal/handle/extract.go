package handle

import (
	"encoding/json"
	"net/http"

	"labelscan/internal/extract"
)

type ExtractRequest struct {
	Text string `json:"text"`
}

type ExtractResponse struct {
	Valid          bool              `json:"valid"`
	StructuredData map[string]string `json:"structured_data"`
}

// Extract runs the structured data extractor over plain text, without any
// provider involvement.
func (h *Handle) Extract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}
	sd := extract.FromText(req.Text)
	writeJSON(w, http.StatusOK, ExtractResponse{
		Valid:          len(sd) > 0,
		StructuredData: sd,
	})
}
