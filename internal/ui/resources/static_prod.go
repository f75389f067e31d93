//go:build !dev

package resources

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var staticFS embed.FS

func static() fs.FS {
	fsys, _ := fs.Sub(staticFS, "static")
	return fsys
}

// Handler serves the embedded static files.
func Handler() http.Handler {
	fileServer := http.FileServer(http.FS(static()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Embedded assets only change with the binary.
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		http.StripPrefix("/static/", fileServer).ServeHTTP(w, r)
	})
}

// Index serves the embedded browser page.
func Index() http.Handler {
	return indexHandler(static())
}
