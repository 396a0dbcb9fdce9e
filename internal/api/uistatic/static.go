// Package uistatic serves the browser chat page that posts to /ask.
package uistatic

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed app
var appFS embed.FS

// Handler serves the embedded chat assets. Unknown paths get the chat page.
func Handler() http.Handler {
	sub, err := fs.Sub(appFS, "app")
	if err != nil {
		return http.NotFoundHandler()
	}
	files := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean(strings.TrimPrefix(r.URL.Path, "/"))
		if name == "." || name == "" || name == "index.html" {
			serveChat(w, sub)
			return
		}
		if _, err := fs.Stat(sub, name); err != nil {
			serveChat(w, sub)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}

func serveChat(w http.ResponseWriter, filesystem fs.FS) {
	page, err := fs.ReadFile(filesystem, "index.html")
	if err != nil {
		http.Error(w, "chat page is missing", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(page)
}
