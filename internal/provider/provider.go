// Package provider defines the uniform interface over heterogeneous
// inference backends and the model-name-to-backend registry.
package provider

import (
	"context"
	"fmt"
	"strings"
)

type Engine interface {
	Name() string
	// Generate runs an image-conditioned generation with the given prompt.
	Generate(ctx context.Context, image []byte, prompt, model string) (string, error)
	// Complete runs a plain text completion; used for connectivity checks
	// and text-only review models.
	Complete(ctx context.Context, text, model string) (string, error)
}

// Error wraps any transport or backend fault. The adapter never retries;
// retry policy belongs to the calling stage.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Errorf(backend, format string, args ...any) *Error {
	return &Error{Backend: backend, Err: fmt.Errorf(format, args...)}
}

// Registry resolves a model name to the engine that serves it. Rules are
// supplied at configuration time; first match wins, substring matching,
// case-insensitive.
type Registry struct {
	rules []rule
	def   Engine
}

type rule struct {
	pattern string
	eng     Engine
}

func NewRegistry(def Engine) *Registry {
	return &Registry{def: def}
}

// Register binds a model-name fragment to an engine. Nil engines are
// ignored so mains can register backends unconditionally and let missing
// API keys disable them.
func (r *Registry) Register(pattern string, eng Engine) {
	if eng == nil {
		return
	}
	r.rules = append(r.rules, rule{pattern: strings.ToLower(pattern), eng: eng})
	if r.def == nil {
		r.def = eng
	}
}

func (r *Registry) Resolve(model string) (Engine, error) {
	m := strings.ToLower(strings.TrimSpace(model))
	if m == "" {
		if r.def == nil {
			return nil, fmt.Errorf("no default engine configured")
		}
		return r.def, nil
	}
	for _, ru := range r.rules {
		if strings.Contains(m, ru.pattern) {
			return ru.eng, nil
		}
	}
	if r.def == nil {
		return nil, fmt.Errorf("no engine for model %q", model)
	}
	return r.def, nil
}

// Default returns the engine used when no model is requested.
func (r *Registry) Default() Engine { return r.def }

// SetDefault overrides the engine used when no model is requested.
func (r *Registry) SetDefault(eng Engine) {
	if eng != nil {
		r.def = eng
	}
}

// Engines lists the registered backends once each, registration order.
func (r *Registry) Engines() []Engine {
	var out []Engine
	seen := map[string]bool{}
	for _, ru := range r.rules {
		if !seen[ru.eng.Name()] {
			seen[ru.eng.Name()] = true
			out = append(out, ru.eng)
		}
	}
	return out
}
