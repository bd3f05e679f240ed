package resolve

import (
	"path"
	"strings"

	"github.com/fpang/post-image/internal/imagesize"
)

// PlaceholderFilename is the file name of the bundled default placeholder.
const PlaceholderFilename = "default-post-thumbnail.png"

// Config holds the resolver's defaults. It is passed to New once and never
// mutated afterwards.
type Config struct {
	// DefaultImageSize is used when a request carries no size.
	DefaultImageSize imagesize.Size `json:"defaultImageSize"`
	// DefaultPlaceholderSize is the size the chain asks for when it falls
	// back to the placeholder.
	DefaultPlaceholderSize imagesize.Size `json:"defaultPlaceholderSize"`
	// PlaceholderPath is where the editor can read the bundled placeholder.
	PlaceholderPath string `json:"placeholderPath"`
	// PlaceholderURL is the public URL of the same file.
	PlaceholderURL string `json:"placeholderURL"`
}

// DefaultConfig returns a Config that asks for full-size images and reads
// the placeholder from {themeDir}/images, served at {themeURL}/images.
func DefaultConfig(themeDir, themeURL string) Config {
	return Config{
		DefaultImageSize:       imagesize.Named(imagesize.Full),
		DefaultPlaceholderSize: imagesize.Named(imagesize.Full),
		PlaceholderPath:        path.Join(themeDir, "images", PlaceholderFilename),
		PlaceholderURL:         joinURL(themeURL, "images/"+PlaceholderFilename),
	}
}

// withDefaults fills unset or unacceptable sizes with full.
func (c Config) withDefaults() Config {
	if !imagesize.IsAcceptable(c.DefaultImageSize) {
		c.DefaultImageSize = imagesize.Named(imagesize.Full)
	}
	if !imagesize.IsAcceptable(c.DefaultPlaceholderSize) {
		c.DefaultPlaceholderSize = imagesize.Named(imagesize.Full)
	}
	return c
}

func joinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + name
}
