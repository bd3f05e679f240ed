// Package uploads provides the persistent storage where resized variants are
// written, and maps stored names to public URLs.
//
// Two backends are available: FSStorage (a local upload directory, via afero)
// and S3Storage (a bucket fronted by a CDN or website endpoint).
package uploads

import (
	"context"
	"strings"
)

// Storage is a flat namespace of files under a base directory that is
// published at a base URL.
type Storage interface {
	// BaseDir is the directory (or key prefix) new files are written under.
	BaseDir() string
	// BaseURL is the public URL of BaseDir.
	BaseURL() string
	// Exists reports whether name is already stored.
	Exists(ctx context.Context, name string) (bool, error)
	// Write stores data under name, replacing any previous content in full.
	// Readers never observe a partially written file.
	Write(ctx context.Context, name string, data []byte, contentType string) error
	// URL returns the public URL for name.
	URL(name string) string
}

// joinURL appends name to base with exactly one slash between them.
func joinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(name, "/")
}
