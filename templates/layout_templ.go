package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.printf(`<!DOCTYPE html><html lang="fr"><head><meta charset="utf-8">`)
		w.printf(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.printf(`<title>%s</title>`, esc(title))
		w.printf(`<link rel="stylesheet" href="/static/css/app.css">`)
		w.printf(`<script src="/static/js/htmx.min.js" defer></script>`)
		w.printf(`</head><body><header class="topbar"><a href="/projects">Projets</a></header>`)
		w.printf(`<main id="main-content">`)
		w.render(ctx, body)
		w.printf(`</main><div id="toast-container"></div></body></html>`)
		return w.err
	})
}
