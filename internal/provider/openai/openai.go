package openai

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
	"labelscan/internal/util"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Engine struct {
	APIKey  string
	Model   string
	BaseURL string
	httpc   *http.Client
}

func New(key, model string) *Engine {
	return &Engine{
		APIKey:  key,
		Model:   model,
		BaseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string { return "openai" }

func (e *Engine) Generate(ctx context.Context, image []byte, prompt, model string) (string, error) {
	if e.APIKey == "" {
		return "", provider.Errorf(e.Name(), "OPENAI_API_KEY is empty")
	}
	if model == "" {
		model = e.Model
	}

	mime := util.SniffMimeHTTP(image)
	dataURL := util.MakeDataURL(mime, base64.StdEncoding.EncodeToString(image))

	body := map[string]any{
		"model": model,
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": prompt},
					map[string]any{"type": "image_url", "image_url": map[string]any{"url": dataURL, "detail": "high"}},
				},
			},
		},
		"temperature":     0,
		"response_format": map[string]any{"type": "json_object"},
	}
	return e.chat(ctx, body)
}

func (e *Engine) Complete(ctx context.Context, text, model string) (string, error) {
	if e.APIKey == "" {
		return "", provider.Errorf(e.Name(), "OPENAI_API_KEY is empty")
	}
	if model == "" {
		model = e.Model
	}
	body := map[string]any{
		"model": model,
		"messages": []any{
			map[string]any{"role": "user", "content": text},
		},
		"temperature": 0,
	}
	return e.chat(ctx, body)
}

func (e *Engine) chat(ctx context.Context, body map[string]any) (string, error) {
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, "POST", e.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", &provider.Error{Backend: e.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", &provider.Error{Backend: e.Name(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return "", provider.Errorf(e.Name(), "chat %d: %s", resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", &provider.Error{Backend: e.Name(), Err: err}
	}
	if len(raw.Choices) == 0 {
		return "", provider.Errorf(e.Name(), "empty response")
	}
	return strings.TrimSpace(raw.Choices[0].Message.Content), nil
}
