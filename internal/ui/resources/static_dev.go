//go:build dev

package resources

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// getStaticDir resolves the static directory next to this source file so
// edits show up without rebuilding, wherever the binary runs from.
func getStaticDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return StaticDirectoryPath
	}
	return filepath.Join(filepath.Dir(filename), "static")
}

func static() fs.FS {
	return os.DirFS(getStaticDir())
}

// Handler serves static files from disk.
func Handler() http.Handler {
	slog.Info("static assets served from filesystem", "path", getStaticDir())
	return http.StripPrefix("/static/", http.FileServer(http.FS(static())))
}

// Index serves the browser page from disk.
func Index() http.Handler {
	return indexHandler(static())
}
