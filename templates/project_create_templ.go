package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func ProjectCreatePage(data ProjectCreateData) templ.Component {
	return Page("Nouveau projet", projectCreateForm(data))
}

func projectCreateForm(data ProjectCreateData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.printf(`<h1>Nouveau projet</h1><form method="post" action="/projects" hx-post="/projects" hx-target="#main-content">`)

		w.printf(`<label>Nom<input name="name" value="%s" required></label>`, esc(data.Name))
		w.render(ctx, fieldError(data.Errors["name"]))
		w.printf(`<label>Client<input name="client_name" value="%s"></label>`, esc(data.ClientName))

		w.printf(`<label>Statut<select name="status">`)
		for _, s := range data.StatusOptions {
			selected := ""
			if s == data.Status {
				selected = " selected"
			}
			w.printf(`<option value="%s"%s>%s</option>`, esc(s), selected, esc(StatusLabel(s)))
		}
		w.printf(`</select></label>`)

		w.printf(`<label>Gestion de projet (%%)<input name="project_management_percentage" inputmode="decimal" value="%s"></label>`,
			esc(data.ProjectManagementPercentage))
		w.render(ctx, fieldError(data.Errors["project_management_percentage"]))

		w.printf(`<button type="submit">Créer</button></form>`)
		return w.err
	})
}

func fieldError(msg string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		if msg != "" {
			w.printf(`<p class="field-error">%s</p>`, esc(msg))
		}
		return w.err
	})
}
