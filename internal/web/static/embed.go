// Package static holds the attendance UI bundled into the binary.
package static

import (
	"embed"
	"io/fs"
	"sync"
)

//go:embed all:dist
var bundle embed.FS

// UI returns the bundle with the dist/ prefix stripped, so "index.html"
// resolves to the page served at "/".
var UI = sync.OnceValue(func() fs.FS {
	sub, err := fs.Sub(bundle, "dist")
	if err != nil {
		panic("static: dist missing from bundle: " + err.Error())
	}
	return sub
})
