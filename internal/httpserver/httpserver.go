package httpserver

import (
	"log"
	"net/http"

	"labelscan/internal/handle"
)

// NewMux wires the API routes.
func NewMux(h *handle.Handle) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/v1/recognize", h.Recognize)
	mux.HandleFunc("/v1/recognize/upload", h.RecognizeUpload)
	mux.HandleFunc("/v1/corrections", h.Correction)
	mux.HandleFunc("/v1/workflows/", h.Workflow)
	mux.HandleFunc("/v1/models", h.Models)
	mux.HandleFunc("/v1/models/check", h.ModelsCheck)
	mux.HandleFunc("/v1/extract", h.Extract)
	return mux
}

func Start(addr string, mux *http.ServeMux) error {
	log.Printf("labelscan listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
