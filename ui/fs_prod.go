//go:build !debug

package ui

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Files returns the embedded UI filesystem (production: baked into binary).
func Files() fs.FS {
	return files
}
