package main

import (
	"embed"
	"io/fs"
)

//go:embed web/style.css
var styleCSS string

//go:embed web/*.html
var templateFiles embed.FS

// pageFS returns the embedded page templates rooted at the web directory.
func pageFS() fs.FS {
	sub, err := fs.Sub(templateFiles, "web")
	if err != nil {
		panic(err)
	}
	return sub
}
