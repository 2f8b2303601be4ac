// Package tesseract is the local, offline backend. It ignores the prompt
// and answers with the same JSON shape the cloud models are asked for, so
// the response parser treats every backend uniformly.
package tesseract

import (
	"context"
	"encoding/json"
	"strings"

	"labelscan/internal/provider"

	"github.com/otiai10/gosseract/v2"
)

type Engine struct {
	Languages []string
}

func New(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Engine{Languages: languages}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Generate(ctx context.Context, image []byte, prompt, model string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &provider.Error{Backend: e.Name(), Err: err}
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.Languages...); err != nil {
		return "", &provider.Error{Backend: e.Name(), Err: err}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", &provider.Error{Backend: e.Name(), Err: err}
	}
	text, err := client.Text()
	if err != nil {
		return "", &provider.Error{Backend: e.Name(), Err: err}
	}

	reply := map[string]any{
		"text":            text,
		"confidence":      estimateConfidence(text),
		"structured_data": map[string]string{},
	}
	out, _ := json.Marshal(reply)
	return string(out), nil
}

func (e *Engine) Complete(_ context.Context, _, _ string) (string, error) {
	return "", provider.Errorf(e.Name(), "text completion not supported; tesseract is image-only")
}

// estimateConfidence scores the OCR output on crude quality signals, since
// plain Text() carries no per-word confidences.
func estimateConfidence(text string) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	conf := 0.7
	if len(t) < 10 {
		conf -= 0.2
	}
	var garbage int
	for _, r := range t {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ' ', r == '\n', r == '\t', r == '.', r == ',', r == ':', r == '-', r == '/':
		default:
			garbage++
		}
	}
	if n := len([]rune(t)); n > 0 && float64(garbage)/float64(n) > 0.2 {
		conf -= 0.3
	}
	if conf < 0.1 {
		conf = 0.1
	}
	return conf
}
