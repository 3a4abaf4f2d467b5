package webroot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsToEmbeddedPage(t *testing.T) {
	page, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Index(), page)
	assert.Contains(t, string(page), `src="/frames"`)
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>custom</p>"), 0o644))

	page, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "<p>custom</p>", string(page))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.html"))
	assert.Error(t, err)
}
