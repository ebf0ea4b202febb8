// Package web renders the browser demo page that posts to /chat.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"people-partner/internal/category"
)

//go:embed templates
var templateFS embed.FS

var demoTmpl = template.Must(template.ParseFS(templateFS, "templates/demo.html"))

type categoryOption struct {
	Key      string
	Label    string
	Selected bool
}

type demoPageData struct {
	Title      string
	Version    string
	Categories []categoryOption
}

// DemoHandler returns an http.Handler serving the demo page. The page is
// rendered once since categories are fixed for the life of the process.
func DemoHandler(title, version string) (http.Handler, error) {
	data := demoPageData{Title: title, Version: version}
	for _, c := range category.All() {
		data.Categories = append(data.Categories, categoryOption{
			Key:      c.Key(),
			Label:    c.Label(),
			Selected: c == category.Default,
		})
	}

	var buf bytes.Buffer
	if err := demoTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	page := buf.Bytes()

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(page); err != nil {
			slog.Debug("web: failed to write demo page", "error", err)
		}
	}), nil
}
