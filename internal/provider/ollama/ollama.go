package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"labelscan/internal/provider"
)

type Engine struct {
	BaseURL string
	Model   string
	httpc   *http.Client
}

func New(baseURL, model string) *Engine {
	return &Engine{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string { return "ollama" }

func (e *Engine) Generate(ctx context.Context, image []byte, prompt, model string) (string, error) {
	if model == "" {
		model = e.Model
	}
	body := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	if len(image) > 0 {
		body["images"] = []string{base64.StdEncoding.EncodeToString(image)}
	}
	return e.generate(ctx, body)
}

func (e *Engine) Complete(ctx context.Context, text, model string) (string, error) {
	if model == "" {
		model = e.Model
	}
	return e.generate(ctx, map[string]any{
		"model":  model,
		"prompt": text,
		"stream": false,
	})
}

func (e *Engine) generate(ctx context.Context, body map[string]any) (string, error) {
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, "POST", e.BaseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", &provider.Error{Backend: e.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", &provider.Error{Backend: e.Name(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return "", provider.Errorf(e.Name(), "generate %d: %s", resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var raw struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", &provider.Error{Backend: e.Name(), Err: err}
	}
	if strings.TrimSpace(raw.Response) == "" {
		return "", provider.Errorf(e.Name(), "empty response")
	}
	return raw.Response, nil
}
