package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func QuoteViewPage(data QuoteViewData) templ.Component {
	return Page(data.ReferenceNumber+" "+data.Name, QuoteViewContent(data))
}

// QuoteViewContent is the quote editor. HTMX edits swap it whole, so every
// recalculated total is refreshed together.
func QuoteViewContent(data QuoteViewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		id := esc(data.ProjectID)
		w.printf(`<section id="quote" data-project="%s">`, id)
		w.printf(`<div class="quote-header"><h1>%s</h1><p>%s · %s · <span class="status status-%s">%s</span></p>`,
			esc(data.Name), esc(data.ReferenceNumber), esc(data.ClientName), esc(data.Status), esc(StatusLabel(data.Status)))
		w.printf(`<div class="actions"><a href="/projects/%[1]s/export/excel">Excel</a> <a href="/projects/%[1]s/export/pdf">PDF</a>`, id)
		w.printf(` <button hx-post="/projects/%s/formulas/check" hx-target="#quote-check">Vérifier les formules</button></div>`, id)
		w.printf(`<div id="quote-check"></div></div>`)

		for _, pos := range data.Positions {
			w.render(ctx, positionTable(data.ProjectID, pos))
		}

		w.printf(`<form class="add-position" hx-post="/projects/%s/positions" hx-target="#quote" hx-swap="outerHTML"><input name="name" placeholder="Nouvelle position" required><button type="submit">Ajouter</button></form>`, id)

		w.printf(`<table class="quote-summary"><tbody>`)
		w.printf(`<tr><th>Gestion de projet</th><td class="num">%s</td></tr>`, esc(data.Management))
		w.printf(`<tr><th>Commission agence</th><td class="num">%s</td></tr>`, esc(data.Commission))
		w.printf(`<tr><th>Total achat</th><td class="num">%s</td></tr>`, esc(data.TotalAchat))
		w.printf(`<tr><th>Total vente</th><td class="num">%s</td></tr>`, esc(data.TotalVente))
		w.printf(`<tr><th>Marge</th><td class="num">%s (%s)</td></tr>`, esc(data.Marge), esc(data.MargePercent))
		w.printf(`</tbody></table></section>`)
		return w.err
	})
}

func positionTable(projectID string, pos PositionView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		base := esc(positionURL(projectID, pos.ID))
		w.printf(`<div class="position" id="position-%s">`, esc(pos.ID))
		w.printf(`<form class="position-header" hx-patch="%s" hx-target="#quote" hx-swap="outerHTML" hx-trigger="change">`, base)
		w.printf(`<h2>%s <small>%s</small></h2>`, esc(pos.Name), esc(pos.ID))
		w.printf(`<label>Qté<input name="quantite" value="%s" inputmode="decimal"></label>`, esc(pos.Quantite))
		w.printf(`<label>Gestion (%%)<input name="project_management_percentage" value="%s" inputmode="decimal"></label>`, esc(pos.ProjectManagementPercentage))
		w.printf(`<button type="button" hx-delete="%s" hx-target="#quote" hx-swap="outerHTML" hx-confirm="Supprimer cette position ?">Supprimer</button></form>`, base)

		w.printf(`<table class="lines"><thead><tr><th>#</th><th>Désignation</th><th>Prix unit. achat</th><th>Qté</th><th>Coeff</th><th>Total achat</th><th>Prix de vente</th><th>P.U. vente</th><th>Marge</th><th></th></tr></thead><tbody>`)
		for _, l := range pos.Lines {
			w.render(ctx, lineRow(projectID, pos.ID, l))
		}
		w.printf(`</tbody></table>`)

		w.printf(`<form class="add-line" hx-post="%s/lines" hx-target="#quote" hx-swap="outerHTML"><input name="designation" placeholder="Désignation" required><input name="prixUnitAchat" placeholder="Prix unit. achat"><input name="quantite" placeholder="Qté"><input name="coeff" placeholder="Coeff"><button type="submit">Ajouter une ligne</button></form>`, base)
		w.printf(`<form class="import-lines" hx-post="%s/lines/import" hx-encoding="multipart/form-data" hx-target="#quote" hx-swap="outerHTML"><input type="file" name="file" accept=".csv,.xlsx"><button type="submit">Importer</button></form>`, base)
		w.printf(`<p class="position-total">Total achat %s · Total vente %s</p></div>`, esc(pos.TotalAchat), esc(pos.TotalVente))
		return w.err
	})
}

// lineRow renders one line. Synthetic lines are derived by the quote and
// cannot be edited or deleted.
func lineRow(projectID, positionID string, l LineView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		url := esc(lineURL(projectID, positionID, l.ID))
		w.printf(`<tr class="%s" id="line-%s-%s"><td>%s</td><td>%s</td>`,
			lineRowClass(l), esc(positionID), esc(l.ID), esc(l.ID), esc(l.Designation))

		for _, in := range lineInputs(positionID, l) {
			if l.Synthetic {
				w.printf(`<td class="num">%s</td>`, esc(in.Raw))
				continue
			}
			fb := esc(in.FeedbackID)
			w.printf(`<td><form hx-patch="%s" hx-trigger="change" hx-target="#quote" hx-swap="outerHTML">`, url)
			w.printf(`<input name="%s" value="%s" hx-post="%s" hx-trigger="keyup changed delay:300ms" hx-target="#%s" hx-swap="innerHTML">`,
				in.Name, esc(in.Raw), esc(validateURL(projectID, positionID, l.ID, in.Name)), fb)
			w.printf(`<span id="%s">`, fb)
			if in.Error != "" {
				w.printf(`<span class="formula-error">%s</span>`, esc(in.Error))
			}
			w.printf(`</span></form></td>`)
		}

		w.printf(`<td class="num">%s</td><td class="num">%s</td><td class="num">%s</td><td class="num">%s</td>`,
			esc(l.TotalAchat), esc(l.PVente), esc(l.PUnitaire), esc(l.Marge))
		if l.Synthetic {
			w.printf(`<td></td></tr>`)
		} else {
			w.printf(`<td><button hx-delete="%s" hx-target="#quote" hx-swap="outerHTML">×</button></td></tr>`, url)
		}
		return w.err
	})
}
