package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"projets/testhelpers"
)

func TestHandleProjectList_ShowsProjects(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	proj := seedQuote(t, app)
	testhelpers.CreateTestProject(t, app, "Boulangerie Martin")

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	rec := serve(t, app, HandleProjectList(app), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(),
		"Pharmacie du Centre",
		"Boulangerie Martin",
		`href="/projects/`+proj.Id+`"`,
	)
}

func TestHandleProjectList_Search(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	seedQuote(t, app)
	testhelpers.CreateTestProject(t, app, "Boulangerie Martin")

	req := httptest.NewRequest(http.MethodGet, "/projects?q=boulang", nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(t, app, HandleProjectList(app), req)

	body := rec.Body.String()
	if !strings.Contains(body, "Boulangerie Martin") {
		t.Error("expected matching project in results")
	}
	if strings.Contains(body, "Pharmacie du Centre") {
		t.Error("expected other project to be filtered out")
	}
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("expected a fragment for HTMX requests")
	}
}

func TestHandleProjectCreate_RendersForm(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/projects/create", nil)
	rec := serve(t, app, HandleProjectCreate(app), req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(), `name="project_management_percentage" inputmode="decimal" value="10"`)
}

func TestHandleProjectSave_ValidData(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	form := url.Values{}
	form.Set("name", "Opticien Lumière")
	form.Set("client_name", "SARL Lumière")
	form.Set("status", "en_cours")
	form.Set("project_management_percentage", "12,5")

	rec := serve(t, app, HandleProjectSave(app), newFormRequest(http.MethodPost, "/projects", form, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	records, err := app.FindRecordsByFilter("projects", "name = {:name}", "", 1, 0,
		map[string]any{"name": "Opticien Lumière"})
	if err != nil || len(records) == 0 {
		t.Fatal("expected project to be created in database")
	}
	p := records[0]
	testhelpers.AssertHXRedirect(t, rec.Header().Get("HX-Redirect"), "/projects/"+p.Id)

	wantRef := fmt.Sprintf("DEV-%d-001", time.Now().Year())
	if got := p.GetString("reference_number"); got != wantRef {
		t.Errorf("expected reference %q, got %q", wantRef, got)
	}
	if got := p.GetString("status"); got != "en_cours" {
		t.Errorf("expected status en_cours, got %q", got)
	}
	if got := p.GetFloat("project_management_percentage"); got != 12.5 {
		t.Errorf("expected percentage 12.5, got %v", got)
	}
}

func TestHandleProjectSave_InvalidData(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	form := url.Values{}
	form.Set("name", "")
	form.Set("project_management_percentage", "beaucoup")

	rec := serve(t, app, HandleProjectSave(app), newFormRequest(http.MethodPost, "/projects", form, nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", rec.Code)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "Project name is required", "Percentage must be a positive number")
	if n := testhelpers.CountRecords(t, app, "projects", "id != ''", nil); n != 0 {
		t.Errorf("expected no project, found %d", n)
	}
}

func TestHandleProjectView(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	proj := seedQuote(t, app)

	req := httptest.NewRequest(http.MethodGet, "/projects/"+proj.Id, nil)
	req.SetPathValue("id", proj.Id)
	rec := serve(t, app, HandleProjectView(app), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "Pharmacie du Centre", "Caisson", `id="position-pos1"`)
}

func TestHandleProjectView_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/projects/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	rec := serve(t, app, HandleProjectView(app), req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleProjectUpdate_Status(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	proj := seedQuote(t, app)

	form := url.Values{}
	form.Set("status", "livre")
	rec := serve(t, app, HandleProjectUpdate(app), newFormRequest(http.MethodPost, "/projects/"+proj.Id, form, map[string]string{"id": proj.Id}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	updated, _ := app.FindRecordById("projects", proj.Id)
	if updated.GetString("status") != "livre" {
		t.Errorf("expected status livre, got %q", updated.GetString("status"))
	}

	form.Set("status", "archived")
	rec = serve(t, app, HandleProjectUpdate(app), newFormRequest(http.MethodPost, "/projects/"+proj.Id, form, map[string]string{"id": proj.Id}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestHandleProjectDelete_CascadesPositions(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	proj := seedQuote(t, app)

	req := httptest.NewRequest(http.MethodDelete, "/projects/"+proj.Id, nil)
	req.Header.Set("HX-Request", "true")
	req.SetPathValue("id", proj.Id)
	rec := serve(t, app, HandleProjectDelete(app), req)

	testhelpers.AssertHXRedirect(t, rec.Header().Get("HX-Redirect"), "/projects")
	if _, err := app.FindRecordById("projects", proj.Id); err == nil {
		t.Error("expected project to be deleted")
	}
	if n := testhelpers.CountRecords(t, app, "quote_lines", "id != ''", nil); n != 0 {
		t.Errorf("expected lines to be deleted with the project, found %d", n)
	}
}

func TestHandleProjectDelete_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	req := httptest.NewRequest(http.MethodDelete, "/projects/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	rec := serve(t, app, HandleProjectDelete(app), req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
