package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"projets/services"
	"projets/testhelpers"
)

// newTestRequestEvent creates a RequestEvent suitable for handler tests.
func newTestRequestEvent(app *pocketbase.PocketBase, req *http.Request, rec *httptest.ResponseRecorder) *core.RequestEvent {
	e := &core.RequestEvent{}
	e.App = app
	e.Request = req
	e.Response = rec
	return e
}

// newFormRequest builds an HTMX form request with the given path values.
func newFormRequest(method, target string, form url.Values, pathValues map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return req
}

// serve runs handler on req and fails the test on a handler error.
func serve(t *testing.T, app *pocketbase.PocketBase, handler func(*core.RequestEvent) error, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := handler(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

// seedQuote creates a project with one position "pos1" (quantity 1, 10%
// management) holding line L1: 100 x 2 at coefficient 1.5.
func seedQuote(t *testing.T, app *pocketbase.PocketBase) *core.Record {
	t.Helper()
	proj := testhelpers.CreateTestProject(t, app, "Pharmacie du Centre")
	pos := testhelpers.CreateTestPosition(t, app, proj.Id, "pos1", "Croix LED", 1, 10)
	testhelpers.CreateTestQuoteLine(t, app, pos.Id, "L1", 1, "Caisson", 100, 2, 1.5)
	return proj
}

func loadQuote(t *testing.T, app *pocketbase.PocketBase, projectID string) services.Project {
	t.Helper()
	p, err := services.LoadProject(app, projectID)
	if err != nil {
		t.Fatalf("failed to load project: %v", err)
	}
	return p
}

func findLine(t *testing.T, p services.Project, positionID, lineID string) services.PricingLine {
	t.Helper()
	pi := services.FindPosition(p, positionID)
	if pi < 0 {
		t.Fatalf("position %s not found", positionID)
	}
	for _, l := range p.Positions[pi].Lines {
		if l.ID == lineID {
			return l
		}
	}
	t.Fatalf("line %s not found in position %s", lineID, positionID)
	return services.PricingLine{}
}
