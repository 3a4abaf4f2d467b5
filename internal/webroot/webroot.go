// Package webroot provides the page served at the root path.
package webroot

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed index.html
var indexPage []byte

// Index returns the built-in page.
func Index() []byte {
	return indexPage
}

// Load returns the contents of path, or the built-in page when path is empty.
// The page is read once at startup and served from memory afterwards.
func Load(path string) ([]byte, error) {
	if path == "" {
		return indexPage, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read static page %s: %w", path, err)
	}
	return data, nil
}
