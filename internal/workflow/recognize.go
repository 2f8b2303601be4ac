package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"labelscan/internal/extract"
	"labelscan/internal/parse"
	"labelscan/internal/prompt"
	"labelscan/internal/provider"
)

// Recognizer runs the first pass: prompt, provider call, parse, normalize.
type Recognizer struct {
	Registry *provider.Registry

	// Timeout bounds the first provider call; RetryTimeout bounds the
	// single retry after a provider fault.
	Timeout      time.Duration
	RetryTimeout time.Duration
}

const (
	defaultRecognizeTimeout = 30 * time.Second
	defaultRetryTimeout     = 10 * time.Second
)

// Recognize never returns a provider or parse error: after one retry a
// fault degrades to an empty zero-confidence result so the workflow can
// still reach a human.
func (r *Recognizer) Recognize(ctx context.Context, req Request) RecognitionResult {
	eng, err := r.Registry.Resolve(req.Model)
	if err != nil {
		return r.degraded(req, "", err)
	}

	p := prompt.Recognition()

	raw, err := r.generate(ctx, eng, req.Image, p, req.Model, r.timeout())
	if err != nil {
		log.Printf("recognize: %s failed, retrying once: %v", eng.Name(), err)
		raw, err = r.generate(ctx, eng, req.Image, p, req.Model, r.retryTimeout())
	}
	if err != nil {
		return r.degraded(req, eng.Name(), err)
	}

	payload := parse.Recognition(raw)
	if len(payload.StructuredData) == 0 {
		payload.StructuredData = extract.FromText(payload.Text)
	}

	return RecognitionResult{
		Text:           payload.Text,
		Confidence:     payload.Confidence,
		StructuredData: payload.StructuredData,
		Meta: Meta{
			Model:       modelLabel(req.Model, eng.Name()),
			ImageHash:   req.Hash,
			GeneratedAt: time.Now().UTC(),
			Issues:      payload.Issues,
		},
	}
}

func (r *Recognizer) generate(ctx context.Context, eng provider.Engine, image []byte, p, model string, timeout time.Duration) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return eng.Generate(cctx, image, p, model)
}

func (r *Recognizer) degraded(req Request, backend string, err error) RecognitionResult {
	issue := fmt.Sprintf("recognition failed: %v", err)
	log.Printf("recognize: degrading to empty result (backend=%s): %v", backend, err)
	return RecognitionResult{
		Text:           "",
		Confidence:     0,
		StructuredData: map[string]string{},
		Meta: Meta{
			Model:       modelLabel(req.Model, backend),
			ImageHash:   req.Hash,
			GeneratedAt: time.Now().UTC(),
			Issues:      []string{issue},
		},
	}
}

func (r *Recognizer) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return defaultRecognizeTimeout
}

func (r *Recognizer) retryTimeout() time.Duration {
	if r.RetryTimeout > 0 {
		return r.RetryTimeout
	}
	return defaultRetryTimeout
}

func modelLabel(requested, backend string) string {
	if requested != "" {
		return requested
	}
	return backend
}
