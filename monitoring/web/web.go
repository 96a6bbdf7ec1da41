// Package web serves the page of the harness monitor.
//
// The page is embedded in the binary. When BACKENDTB_MONITOR_ASSETS names a
// directory, the page is served from there instead.
package web

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

//go:embed dist/*
var dist embed.FS

// AssetsEnv names the environment variable holding an asset directory.
const AssetsEnv = "BACKENDTB_MONITOR_ASSETS"

// ErrNoIndex is returned when an asset directory has no index.html.
var ErrNoIndex = errors.New("web: asset directory has no index.html")

// Assets returns the files of the page. A directory named by AssetsEnv takes
// precedence over the embedded page.
func Assets() (http.FileSystem, error) {
	dir, ok := os.LookupEnv(AssetsEnv)
	if !ok || dir == "" {
		return embedded(), nil
	}

	info, err := os.Stat(filepath.Join(dir, "index.html"))
	if err != nil || info.IsDir() {
		return nil, errors.Wrap(ErrNoIndex, dir)
	}

	return http.Dir(dir), nil
}

func embedded() http.FileSystem {
	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

// Handler serves the page. Responses are marked as not cacheable since the
// page follows a run that changes every step. An unusable asset directory is
// reported and the embedded page is served.
func Handler() http.Handler {
	assets, err := Assets()
	if err != nil {
		log.Printf("Warning: %v, serving the built-in monitor page", err)
		assets = embedded()
	}

	files := http.FileServer(assets)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
}
