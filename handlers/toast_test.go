package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase/core"
)

func parseTrigger(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	trigger := rec.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("expected HX-Trigger header to be set")
	}
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trigger), &parsed); err != nil {
		t.Fatalf("HX-Trigger is not valid JSON: %v", err)
	}
	return parsed
}

func TestSetToast_Types(t *testing.T) {
	tests := []struct {
		name      string
		toastType string
		message   string
	}{
		{"success", "success", "Ligne enregistrée"},
		{"error", "error", "Formule invalide"},
		{"warning", "warning", "Référence circulaire"},
		{"special characters", "info", `<script>alert("xss")</script>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e := &core.RequestEvent{}
			e.Response = rec

			SetToast(e, tt.toastType, tt.message)

			var toast map[string]string
			if err := json.Unmarshal(parseTrigger(t, rec)["showToast"], &toast); err != nil {
				t.Fatalf("showToast is not valid JSON: %v", err)
			}
			if toast["type"] != tt.toastType {
				t.Errorf("expected type %q, got %q", tt.toastType, toast["type"])
			}
			if toast["message"] != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, toast["message"])
			}
			if rec.Header().Get("Set-Cookie") == "" {
				t.Error("expected flash_toast cookie")
			}
		})
	}
}

func TestSetTrigger_MergesWithExisting(t *testing.T) {
	rec := httptest.NewRecorder()
	e := &core.RequestEvent{}
	e.Response = rec

	SetTrigger(e, "quoteRecalculated", map[string]any{"passes": 2})
	SetToast(e, "success", "Quote updated")

	parsed := parseTrigger(t, rec)
	if _, ok := parsed["quoteRecalculated"]; !ok {
		t.Error("expected quoteRecalculated key to be preserved after merge")
	}
	var recalc map[string]int
	if err := json.Unmarshal(parsed["quoteRecalculated"], &recalc); err != nil {
		t.Fatalf("quoteRecalculated is not valid JSON: %v", err)
	}
	if recalc["passes"] != 2 {
		t.Errorf("expected passes 2, got %d", recalc["passes"])
	}
	if _, ok := parsed["showToast"]; !ok {
		t.Error("expected showToast key in merged HX-Trigger JSON")
	}
}

func TestSetTrigger_OverwritesInvalidExisting(t *testing.T) {
	rec := httptest.NewRecorder()
	e := &core.RequestEvent{}
	e.Response = rec
	rec.Header().Set("HX-Trigger", "notValidJSON")

	SetToast(e, "error", "Overwritten")

	if _, ok := parseTrigger(t, rec)["showToast"]; !ok {
		t.Error("expected showToast key after overwriting invalid header")
	}
}

func TestErrorToast_SetsHeaderAndReswap(t *testing.T) {
	tests := []struct {
		name string
		code int
		msg  string
	}{
		{"bad request", http.StatusBadRequest, "Invalid input"},
		{"not found", http.StatusNotFound, "Project not found"},
		{"unprocessable", http.StatusUnprocessableEntity, "Formula rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e := &core.RequestEvent{}
			e.Response = rec

			if err := ErrorToast(e, tt.code, tt.msg); err != nil {
				t.Fatalf("ErrorToast returned error: %v", err)
			}
			if rec.Code != tt.code {
				t.Errorf("expected status %d, got %d", tt.code, rec.Code)
			}
			if rec.Header().Get("HX-Reswap") != "none" {
				t.Error("expected HX-Reswap: none")
			}
			if rec.Body.String() != tt.msg {
				t.Errorf("expected body %q, got %q", tt.msg, rec.Body.String())
			}
		})
	}
}
