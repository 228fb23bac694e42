//go:build debug

package ui

import (
	"io/fs"
	"os"
)

// Files returns a live filesystem rooted at ui/ (debug: reads from disk).
// Template and stylesheet edits are visible after a page reload without recompiling Go.
func Files() fs.FS {
	return os.DirFS("ui")
}
