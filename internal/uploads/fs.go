package uploads

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// FSStorage stores files in a directory on an afero filesystem.
type FSStorage struct {
	fs      afero.Fs
	dir     string
	baseURL string
}

// Compile-time interface check.
var _ Storage = (*FSStorage)(nil)

// NewFSStorage creates an FSStorage rooted at dir and published at baseURL.
// A nil fs uses the operating system filesystem.
func NewFSStorage(fs afero.Fs, dir, baseURL string) *FSStorage {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FSStorage{fs: fs, dir: dir, baseURL: baseURL}
}

// BaseDir implements Storage.
func (s *FSStorage) BaseDir() string { return s.dir }

// BaseURL implements Storage.
func (s *FSStorage) BaseURL() string { return s.baseURL }

// URL implements Storage. Like Path, it uses only the base name.
func (s *FSStorage) URL(name string) string { return joinURL(s.baseURL, filepath.Base(name)) }

// Path returns the filesystem path for name.
func (s *FSStorage) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Exists implements Storage.
func (s *FSStorage) Exists(_ context.Context, name string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.Path(name))
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", s.Path(name), err)
	}
	return ok, nil
}

// Write implements Storage. The data is written to a temporary file in the
// same directory and renamed into place.
func (s *FSStorage) Write(_ context.Context, name string, data []byte, _ string) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	target := s.Path(name)
	if err := s.fs.Rename(tmpName, target); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", target, err)
	}
	if err := s.fs.Chmod(target, 0o644); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", target).Msg("Failed to set variant permissions")
	}

	log.Debug().Str("path", target).Int("bytes", len(data)).Msg("Upload written")
	return nil
}
