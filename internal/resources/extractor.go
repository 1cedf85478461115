package resources

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/owlcms/tracker-core/internal/logging"
	"github.com/owlcms/tracker-core/internal/protocol"
)

// Fixed subdirectory layout under the local files root.
const (
	SubdirFlags    = "flags"
	SubdirLogos    = "logos"
	SubdirPictures = "pictures"
	SubdirStyles   = "styles"
)

// SubdirFor maps a binary frame type to its resource subdirectory.
func SubdirFor(frameType string) (string, bool) {
	switch frameType {
	case protocol.TypeFlagsZip:
		return SubdirFlags, true
	case protocol.TypeLogosZip:
		return SubdirLogos, true
	case protocol.TypePicturesZip:
		return SubdirPictures, true
	default:
		return "", false
	}
}

// Extractor expands binary ZIP payloads into the local files directory.
type Extractor struct {
	baseDir string
	logger  logging.Logger
}

// NewExtractor constructs an extractor rooted at baseDir.
func NewExtractor(baseDir string, logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Extractor{baseDir: baseDir, logger: logger}
}

// BaseDir returns the configured root.
func (e *Extractor) BaseDir() string {
	if e == nil {
		return ""
	}
	return e.baseDir
}

// SetBaseDir repoints the extractor; subsequent extractions land there.
func (e *Extractor) SetBaseDir(dir string) {
	e.baseDir = dir
}

// Extract expands the ZIP payload into the subdirectory for the frame type.
// Entries with traversal components are skipped silently. Returns the number
// of files written. A malformed archive leaves the directory untouched.
func (e *Extractor) Extract(frameType string, payload []byte) (int, error) {
	subdir, ok := SubdirFor(frameType)
	if !ok {
		return 0, fmt.Errorf("no resource directory for frame type %q", frameType)
	}

	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return 0, fmt.Errorf("open %s archive: %w", frameType, err)
	}

	target := filepath.Join(e.baseDir, subdir)
	written := 0
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := sanitizeEntryName(entry.Name)
		if name == "" {
			continue
		}
		if err := e.writeEntry(target, name, entry); err != nil {
			e.logger.Warn("resource entry write failed",
				logging.FieldFrameType, frameType,
				logging.FieldPath, entry.Name,
				logging.FieldError, err,
			)
			continue
		}
		written++
	}
	return written, nil
}

// ReadSingleEntry opens the payload as a ZIP and returns the contents of the
// named entry; used for the translations and database archives that carry
// exactly one JSON file.
func ReadSingleEntry(payload []byte, name string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if filepath.Base(sanitizeEntryName(entry.Name)) != name {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("open entry %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("entry %s not found in archive", name)
}

// writeEntry writes one archive entry atomically: the contents go to a
// temporary file that is renamed into place once fully written.
func (e *Extractor) writeEntry(targetDir, name string, entry *zip.File) error {
	dest := filepath.Join(targetDir, name)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".extract-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// sanitizeEntryName rejects absolute paths and traversal components. The
// producer is trusted, but the archive still never escapes its subdirectory.
func sanitizeEntryName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return ""
	}
	clean := filepath.Clean(name)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return ""
	}
	for _, part := range strings.Split(filepath.ToSlash(clean), "/") {
		if part == ".." {
			return ""
		}
	}
	return clean
}
