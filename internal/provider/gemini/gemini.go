package gemini

import (
	"context"
	"strings"

	"labelscan/internal/provider"
	"labelscan/internal/util"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string { return "gemini" }

func (e *Engine) Generate(ctx context.Context, image []byte, prompt, model string) (string, error) {
	parts := []genai.Part{genai.Text(prompt)}
	if len(image) > 0 {
		format := "jpeg"
		if util.SniffMimeHTTP(image) == "image/png" {
			format = "png"
		}
		parts = append(parts, genai.ImageData(format, image))
	}
	return e.call(ctx, model, true, parts...)
}

func (e *Engine) Complete(ctx context.Context, text, model string) (string, error) {
	return e.call(ctx, model, false, genai.Text(text))
}

func (e *Engine) call(ctx context.Context, model string, wantJSON bool, parts ...genai.Part) (string, error) {
	if e.APIKey == "" {
		return "", provider.Errorf(e.Name(), "GEMINI_API_KEY is empty")
	}
	if model == "" {
		model = e.Model
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", &provider.Error{Backend: e.Name(), Err: err}
	}
	defer cl.Close()

	m := cl.GenerativeModel(strings.TrimSpace(model))
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}
	if wantJSON {
		m.GenerationConfig.ResponseMIMEType = "application/json"
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", &provider.Error{Backend: e.Name(), Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", provider.Errorf(e.Name(), "empty response")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", provider.Errorf(e.Name(), "no text parts in response")
	}
	return out, nil
}

func ptrFloat32(v float32) *float32 { return &v }
