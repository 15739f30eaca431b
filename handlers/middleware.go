package handlers

import (
	"context"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"projets/config"
	"projets/formula"
)

type contextKey string

const ConfigKey contextKey = "config"

// ValidationModeHeader lets a client ask for a different cycle-check mode
// on a single request, e.g. when the form switches to "save" validation.
const ValidationModeHeader = "X-Validation-Mode"

// GetConfig extracts the configuration from the request context, falling
// back to the defaults when ConfigMiddleware did not run.
func GetConfig(r *http.Request) *config.Config {
	if val, ok := r.Context().Value(ConfigKey).(*config.Config); ok && val != nil {
		return val
	}
	return config.Default()
}

// validationMode returns the mode for this request: the header override
// when valid, otherwise the configured mode.
func validationMode(r *http.Request) formula.ValidationMode {
	if h := r.Header.Get(ValidationModeHeader); h != "" {
		if mode, err := formula.ParseValidationMode(h); err == nil {
			return mode
		}
	}
	return GetConfig(r).ValidationMode
}

// ConfigMiddleware stores cfg in the request context so handlers can read
// the validation mode and project defaults.
func ConfigMiddleware(cfg *config.Config) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		ctx := context.WithValue(e.Request.Context(), ConfigKey, cfg)
		e.Request = e.Request.WithContext(ctx)
		return e.Next()
	}
}
