package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"projets/formula"
)

// FormulaFeedback is the inline result of live formula validation.
func FormulaFeedback(res formula.ValidationResult, preview string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		if res.IsValid {
			if preview != "" {
				w.printf(`<span class="formula-ok">= %s</span>`, esc(preview))
			}
			return w.err
		}
		w.printf(`<span class="formula-error">%s`, esc(res.Error))
		if len(res.CircularDependencies) > 0 {
			w.printf(`<br><small>%s</small>`, esc(cyclePath(res.CircularDependencies)))
		}
		w.printf(`</span>`)
		return w.err
	})
}

// FormulaCheckReport lists the outcome of validating every formula of a quote.
func FormulaCheckReport(report formula.SaveReport) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		if report.IsValid {
			w.printf(`<p class="formula-ok">%d formule(s) valide(s)</p>`, len(report.Fields))
			return w.err
		}
		w.printf(`<ul class="formula-errors">`)
		for _, path := range invalidPaths(report) {
			w.printf(`<li><code>%s</code> %s</li>`, esc(path), esc(report.Fields[path].Error))
		}
		for _, cycle := range report.Cycles {
			w.printf(`<li>Référence circulaire : %s</li>`, esc(cyclePath(cycle)))
		}
		w.printf(`</ul>`)
		return w.err
	})
}
