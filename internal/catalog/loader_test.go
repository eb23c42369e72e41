package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pointPathsAt redirects both overlay lookups into tempDir for the duration
// of the test.
func pointPathsAt(t *testing.T, tempDir string) {
	t.Helper()

	originalUser := getUserCatalogPath
	originalProject := getProjectCatalogPath
	t.Cleanup(func() {
		getUserCatalogPath = originalUser
		getProjectCatalogPath = originalProject
	})

	getUserCatalogPath = func() (string, error) {
		return filepath.Join(tempDir, "user", catalogFileName), nil
	}
	getProjectCatalogPath = func() (string, error) {
		return filepath.Join(tempDir, "project", catalogFileName), nil
	}
}

func writeOverlay(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_BuiltinOnly(t *testing.T) {
	pointPathsAt(t, t.TempDir())

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, len(Builtin()), c.Len())
}

func TestLoad_OverlayReplacesByID(t *testing.T) {
	tempDir := t.TempDir()
	pointPathsAt(t, tempDir)

	writeOverlay(t, filepath.Join(tempDir, "user", catalogFileName), `
services:
  - id: sonarr
    image: lscr.io/linuxserver/sonarr:4.0.11
    category: media-management
    ports:
      - port: 8989
        protocol: tcp
`)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, len(Builtin()), c.Len())

	d, ok := c.Lookup("sonarr")
	require.True(t, ok)
	assert.Equal(t, "lscr.io/linuxserver/sonarr:4.0.11", d.Image)
}

func TestLoad_OverlayAddsNewService(t *testing.T) {
	tempDir := t.TempDir()
	pointPathsAt(t, tempDir)

	writeOverlay(t, filepath.Join(tempDir, "project", catalogFileName), `
services:
  - id: navidrome
    image: deluan/navidrome:0.54.3
    category: media-server
    ports:
      - port: 4533
        protocol: tcp
`)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, len(Builtin())+1, c.Len())

	d, ok := c.Lookup("navidrome")
	require.True(t, ok)
	assert.Equal(t, CategoryMediaServer, d.Category)
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	tempDir := t.TempDir()
	pointPathsAt(t, tempDir)

	writeOverlay(t, filepath.Join(tempDir, "user", catalogFileName), `
services:
  - id: radarr
    image: lscr.io/linuxserver/radarr:5.15.0
    category: media-management
    ports:
      - port: 7878
        protocol: tcp
`)
	writeOverlay(t, filepath.Join(tempDir, "project", catalogFileName), `
services:
  - id: radarr
    image: lscr.io/linuxserver/radarr:5.16.0
    category: media-management
    ports:
      - port: 7878
        protocol: tcp
`)

	c, err := Load()
	require.NoError(t, err)

	d, ok := c.Lookup("radarr")
	require.True(t, ok)
	assert.Equal(t, "lscr.io/linuxserver/radarr:5.16.0", d.Image)
}

func TestLoad_MalformedOverlayIsFatal(t *testing.T) {
	tempDir := t.TempDir()
	pointPathsAt(t, tempDir)

	writeOverlay(t, filepath.Join(tempDir, "user", catalogFileName), "services: [not: valid")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_DefectiveOverlayIsFatal(t *testing.T) {
	tempDir := t.TempDir()
	pointPathsAt(t, tempDir)

	// An overlay that introduces a dangling dependency must fail the whole
	// load, not produce a partially resolved catalog.
	writeOverlay(t, filepath.Join(tempDir, "user", catalogFileName), `
services:
  - id: homarr
    image: ghcr.io/ajnart/homarr:0.15.10
    category: monitoring
    ports:
      - port: 7575
        protocol: tcp
    dependsOn: [does-not-exist]
`)

	_, err := Load()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, DefectUnknownDependency, verr.Defects[0].Kind)
}
