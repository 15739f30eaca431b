package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// esc escapes text for HTML element content and quoted attributes.
func esc(s string) string {
	return templ.EscapeString(s)
}

// writer formats to w and keeps the first error.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

func (w *writer) render(ctx context.Context, c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}
