package resources

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

var imageExtensions = []string{"svg", "png", "jpg", "jpeg", "gif", "webp"}

// Locator resolves consumer-facing URLs for extracted resources by probing
// the local files directory. It never serves the files itself.
type Locator struct {
	baseDir   string
	urlPrefix string
}

// NewLocator constructs a locator over the given root and URL prefix.
func NewLocator(baseDir, urlPrefix string) *Locator {
	return &Locator{baseDir: baseDir, urlPrefix: urlPrefix}
}

// FlagURL probes flags/ for an image named after the team.
func (l *Locator) FlagURL(teamName string) string {
	return l.probe(SubdirFlags, teamName)
}

// LogoURL probes logos/ for an image named after the team.
func (l *Locator) LogoURL(teamName string) string {
	return l.probe(SubdirLogos, teamName)
}

// PictureURL probes pictures/ for an athlete portrait.
func (l *Locator) PictureURL(athleteID string) string {
	return l.probe(SubdirPictures, athleteID)
}

// HeaderLogoURL probes logos/ for the first matching base name.
func (l *Locator) HeaderLogoURL(baseNames []string) string {
	for _, name := range baseNames {
		if url := l.probe(SubdirLogos, name); url != "" {
			return url
		}
	}
	return ""
}

// probe tries <baseDir>/<subdir>/<name>.<ext> across the image extensions,
// exact name first, then uppercased. Returns the first found URL or "".
func (l *Locator) probe(subdir, name string) string {
	if l == nil || name == "" {
		return ""
	}
	for _, candidate := range []string{name, strings.ToUpper(name)} {
		for _, ext := range imageExtensions {
			file := candidate + "." + ext
			if _, err := os.Stat(filepath.Join(l.baseDir, subdir, file)); err == nil {
				return path.Join(l.urlPrefix, subdir, file)
			}
		}
	}
	return ""
}
