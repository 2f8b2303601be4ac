// Package backends wires the configured provider engines into a registry.
// Backends without credentials are simply not registered.
package backends

import (
	"strings"

	"labelscan/internal/config"
	"labelscan/internal/provider"
	"labelscan/internal/provider/gemini"
	"labelscan/internal/provider/groq"
	"labelscan/internal/provider/ollama"
	"labelscan/internal/provider/openai"
	"labelscan/internal/provider/tesseract"
)

// Build maps model-name fragments onto engines. The local backends are
// always available; cloud backends require an API key.
func Build(cfg *config.Config) *provider.Registry {
	reg := provider.NewRegistry(nil)

	ol := ollama.New(cfg.OllamaBaseURL, cfg.OllamaModel)
	reg.Register("llava", ol)
	reg.Register("bakllava", ol)
	reg.Register("cogvlm", ol)

	reg.Register("tesseract", tesseract.New(strings.Split(cfg.TesseractLang, "+")...))

	if cfg.GroqAPIKey != "" {
		gq := groq.New(cfg.GroqAPIKey, cfg.GroqModel)
		reg.Register("llama", gq)
		reg.Register("mixtral", gq)
	}
	if cfg.GeminiAPIKey != "" {
		reg.Register("gemini", gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel))
	}
	if cfg.OpenAIAPIKey != "" {
		oa := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		reg.Register("gpt", oa)
		reg.Register("text-", oa)
	}

	// The default engine serves requests that name no model; resolve the
	// configured default so "llava:latest" lands on ollama and "gpt-4o"
	// on openai.
	if eng, err := reg.Resolve(cfg.DefaultModel); err == nil {
		reg.SetDefault(eng)
	}
	return reg
}
