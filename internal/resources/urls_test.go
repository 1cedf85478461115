package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestFlagURLExactName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, SubdirFlags, "Canada.svg"))

	l := NewLocator(dir, "/local")
	assert.Equal(t, "/local/flags/Canada.svg", l.FlagURL("Canada"))
}

func TestFlagURLUppercaseFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, SubdirFlags, "USA.png"))

	l := NewLocator(dir, "/local")
	assert.Equal(t, "/local/flags/USA.png", l.FlagURL("usa"))
}

func TestFlagURLMissing(t *testing.T) {
	l := NewLocator(t.TempDir(), "/local")
	assert.Empty(t, l.FlagURL("Atlantis"))
	assert.Empty(t, l.FlagURL(""))
}

func TestExtensionPriority(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, SubdirLogos, "club.png"))
	writeFile(t, filepath.Join(dir, SubdirLogos, "club.webp"))

	l := NewLocator(dir, "/local")
	assert.Equal(t, "/local/logos/club.png", l.LogoURL("club"), "svg then png before webp")
}

func TestPictureAndHeaderLogo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, SubdirPictures, "1234.jpg"))
	writeFile(t, filepath.Join(dir, SubdirLogos, "federation.svg"))

	l := NewLocator(dir, "/assets")
	assert.Equal(t, "/assets/pictures/1234.jpg", l.PictureURL("1234"))
	assert.Equal(t, "/assets/logos/federation.svg", l.HeaderLogoURL([]string{"missing", "federation"}))
	assert.Empty(t, l.HeaderLogoURL([]string{"none"}))
}
