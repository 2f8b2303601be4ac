package handle

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"labelscan/internal/util"
	"labelscan/internal/workflow"
)

type RecognizeRequest struct {
	ImageB64    string `json:"image_b64"`
	Model       string `json:"model,omitempty"`
	ReviewModel string `json:"review_model,omitempty"`
	Preprocess  bool   `json:"preprocess"`
	SkipReview  bool   `json:"skip_review"`
}

// Recognize accepts a base64 image in a JSON body and runs the workflow.
func (h *Handle) Recognize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req RecognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}

	img, _, err := util.DecodeBase64MaybeDataURL(req.ImageB64)
	if err != nil || len(img) == 0 {
		http.Error(w, "bad image_b64", http.StatusBadRequest)
		return
	}

	h.submit(w, r, img, req)
}

// RecognizeUpload accepts a multipart form with a "file" part.
func (h *Handle) RecognizeUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "bad multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()
	img, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read file: "+err.Error(), http.StatusBadRequest)
		return
	}

	req := RecognizeRequest{
		Model:       r.FormValue("model"),
		ReviewModel: r.FormValue("review_model"),
		Preprocess:  formBool(r.FormValue("preprocess")),
		SkipReview:  formBool(r.FormValue("skip_review")),
	}
	h.submit(w, r, img, req)
}

func (h *Handle) submit(w http.ResponseWriter, r *http.Request, img []byte, req RecognizeRequest) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = h.defaultModel
	}
	reviewModel := strings.TrimSpace(req.ReviewModel)
	if reviewModel == "" {
		reviewModel = h.defaultReviewModel
	}
	st, err := h.orch.Submit(r.Context(), workflow.Request{
		Image:       img,
		Model:       model,
		ReviewModel: reviewModel,
		Preprocess:  req.Preprocess,
		SkipReview:  req.SkipReview,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func formBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
