package httpapi

import (
	"embed"
	"io/fs"
)

// Static files served under /assets/.
//
//go:embed assets/*
var embeddedAssets embed.FS

// Page templates parsed once per server.
//
//go:embed templates/*.html
var templateFS embed.FS

var assetsFS = mustSub(embeddedAssets, "assets")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return fsys
	}
	return sub
}
