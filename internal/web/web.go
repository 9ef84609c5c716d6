// Package web serves the embedded front-end.
package web

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"
	"time"
)

// IndexPath is the entry page the root path redirects to.
const IndexPath = "/static/index.html"

//go:embed static
var staticFiles embed.FS

// RegisterRoutes mounts the static assets under /static/ and redirects / to the index page.
func RegisterRoutes(mux *http.ServeMux) {
	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	index, err := fs.ReadFile(assets, "index.html")
	if err != nil {
		panic(err)
	}

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(assets)))
	// FileServer would bounce .../index.html to the directory; serve the page at its own path.
	mux.HandleFunc("GET "+IndexPath, func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(index))
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, IndexPath, http.StatusTemporaryRedirect)
	})
}
