// Package render turns a card.View into HTML: a fragment for live updates
// and a standalone page for the dashboard or a one-shot export.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// DefaultWebsocketPath is where the page's live script connects.
const DefaultWebsocketPath = "/ws"

// PageOptions controls the standalone page.
type PageOptions struct {
	// Live adds the script that streams updates and forwards gestures.
	Live          bool
	WebsocketPath string
	// GeneratedAt is shown under the card when set.
	GeneratedAt string
}

// Renderer executes the parsed card and page templates. It is safe for
// concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("render").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Fragment writes the card markup only.
func (r *Renderer) Fragment(w io.Writer, v card.View) error {
	if err := r.tmpl.ExecuteTemplate(w, "card", v); err != nil {
		return fmt.Errorf("render card: %w", err)
	}
	return nil
}

// FragmentString is Fragment into a string.
func (r *Renderer) FragmentString(v card.View) (string, error) {
	var buf bytes.Buffer
	if err := r.Fragment(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Page writes a complete HTML document containing the card.
func (r *Renderer) Page(w io.Writer, v card.View, opts PageOptions) error {
	if opts.WebsocketPath == "" {
		opts.WebsocketPath = DefaultWebsocketPath
	}
	title := v.Header
	if title == "" {
		title = card.DefaultHeader
	}

	data := struct {
		Title         string
		View          card.View
		Live          bool
		WebsocketPath string
		GeneratedAt   string
	}{
		Title:         title,
		View:          v,
		Live:          opts.Live,
		WebsocketPath: opts.WebsocketPath,
		GeneratedAt:   opts.GeneratedAt,
	}
	if err := r.tmpl.ExecuteTemplate(w, "page", data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
