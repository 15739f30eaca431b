package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func ProjectListPage(data ProjectListData) templ.Component {
	return Page("Projets", ProjectListContent(data))
}

// ProjectListContent renders the project table. It is also returned alone
// for HTMX searches.
func ProjectListContent(data ProjectListData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.printf(`<section id="project-list"><div class="toolbar"><h1>Projets</h1>`)
		w.printf(`<input type="search" name="q" value="%s" hx-get="/projects" hx-target="#project-list" hx-swap="outerHTML" hx-trigger="keyup changed delay:300ms">`, esc(data.Search))
		w.printf(`<a class="btn" href="/projects/create">Nouveau projet</a></div>`)
		if len(data.Items) == 0 {
			w.printf(`<p class="empty">Aucun projet</p></section>`)
			return w.err
		}
		w.printf(`<table><thead><tr><th>Référence</th><th>Projet</th><th>Client</th><th>Statut</th><th>Positions</th><th>Total vente</th><th></th></tr></thead><tbody>`)
		for _, it := range data.Items {
			w.printf(`<tr id="project-%s">`, esc(it.ID))
			w.printf(`<td>%s</td>`, esc(it.ReferenceNumber))
			w.printf(`<td><a href="/projects/%s">%s</a></td>`, esc(it.ID), esc(it.Name))
			w.printf(`<td>%s</td><td><span class="status status-%s">%s</span></td>`, esc(it.ClientName), esc(it.Status), esc(StatusLabel(it.Status)))
			w.printf(`<td>%d</td><td class="num">%s</td>`, it.PositionCount, esc(it.TotalVente))
			w.printf(`<td><button hx-delete="/projects/%s" hx-confirm="Supprimer ce projet ?">Supprimer</button></td></tr>`, esc(it.ID))
		}
		w.printf(`</tbody></table></section>`)
		return w.err
	})
}
