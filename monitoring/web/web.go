// Package web includes the static web pages for the monitoring tool.
package web

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path"
	"runtime"
	"strings"
)

//go:embed dist/*
var staticAssets embed.FS

// GetAssets returns the static assets
func GetAssets() http.FileSystem {
	if isDevelopmentMode() {
		_, sourcePath, _, ok := runtime.Caller(0)
		if !ok {
			panic("error getting path")
		}

		assetPath := path.Join(path.Dir(sourcePath), "dist")

		log.Printf("monitor development mode, serving assets from %s", assetPath)

		return http.Dir(assetPath)
	}

	subFS, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(subFS)
}

// isDevelopmentMode returns true if environment variable SEGVM_MONITOR_DEV
// is set to true or 1.
func isDevelopmentMode() bool {
	evValue, exist := os.LookupEnv("SEGVM_MONITOR_DEV")
	if !exist {
		return false
	}

	return strings.ToLower(evValue) == "true" || evValue == "1"
}
