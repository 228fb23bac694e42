// Package ui holds the HTML templates and static assets of the upload page.
package ui

import (
	"fmt"
	"html/template"
	"io/fs"
)

// PageTemplate is the name of the upload page template.
const PageTemplate = "index.html"

// Templates parses every template under templates/.
func Templates() (*template.Template, error) {
	tmpl, err := template.ParseFS(Files(), "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// Static returns the static asset filesystem rooted at static/.
func Static() (fs.FS, error) {
	return fs.Sub(Files(), "static")
}
