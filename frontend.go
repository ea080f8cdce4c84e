package main

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ledger/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// apiPrefixes never fall back to index.html.
var apiPrefixes = []string{
	"/payments", "/health", "/dbcheck", "/version", "/notifications", "/bitrix",
	"/categories", "/projects", "/accounts", "/contractors", "/transfers", "/auth",
}

// setupFrontend serves the browser client from dir at "/" and "/app".
// Bitrix24 opens embedded apps with POST, so POST / also returns index.html.
func setupFrontend(r *gin.Engine, dir string) {
	index := filepath.Join(dir, "index.html")
	serveIndex := func(c *gin.Context) {
		if _, err := os.Stat(index); err != nil {
			c.String(http.StatusInternalServerError, "index.html not found in %s/", dir)
			return
		}
		c.File(index)
	}
	toRoot := func(c *gin.Context) { c.Redirect(http.StatusFound, "/") }

	r.GET("/", serveIndex)
	r.POST("/", serveIndex)
	r.GET("/install", toRoot)
	r.POST("/install", toRoot)
	r.GET("/handler", toRoot)

	r.NoRoute(func(c *gin.Context) {
		p := c.Request.URL.Path
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			respondError(c, apperrors.ErrNotFound)
			return
		}
		if file, ok := staticFile(dir, strings.TrimPrefix(p, "/app")); ok && (p == "/app" || strings.HasPrefix(p, "/app/")) {
			c.File(file)
			return
		}
		if file, ok := staticFile(dir, p); ok {
			c.File(file)
			return
		}
		if isAPIPath(p) {
			respondError(c, apperrors.ErrNotFound)
			return
		}
		if _, err := os.Stat(index); err != nil {
			c.String(http.StatusNotFound, "Not found")
			return
		}
		c.File(index)
	})
}

// staticFile resolves p inside dir, trying index.html for directories and
// the .html extension for bare names.
func staticFile(dir, p string) (string, bool) {
	clean := path.Clean("/" + p)
	base := filepath.Join(dir, filepath.FromSlash(clean))
	for _, candidate := range []string{base, filepath.Join(base, "index.html"), base + ".html"} {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func isAPIPath(p string) bool {
	for _, prefix := range apiPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
