// Package assets provides embedded static assets for the application.
package assets

import (
	_ "embed"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// DefaultPlaceholder is the bundled placeholder image, used when no
// placeholder attachment is configured.
//
//go:embed default-post-thumbnail.png
var DefaultPlaceholder []byte

// DefaultPlaceholderMIMEType is the MIME type of DefaultPlaceholder.
const DefaultPlaceholderMIMEType = "image/png"

// EnsurePlaceholder writes DefaultPlaceholder to path unless a file is
// already there. It reports whether it wrote the file.
func EnsurePlaceholder(fs afero.Fs, path string) (bool, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return false, fmt.Errorf("failed to stat placeholder: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create placeholder directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, DefaultPlaceholder, 0o644); err != nil {
		return false, fmt.Errorf("failed to write placeholder: %w", err)
	}
	log.Info().Str("path", path).Int("bytes", len(DefaultPlaceholder)).Msg("Installed default placeholder")
	return true, nil
}
