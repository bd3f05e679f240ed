package resize

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/post-image/internal/imagesize"
	"github.com/fpang/post-image/internal/metrics"
	"github.com/fpang/post-image/internal/uploads"
)

// Source is an image that can be resized: a path the Editor can open and
// the public URL of the unresized original.
type Source struct {
	Path string
	URL  string
}

// Cache returns resized variants of source images, generating and storing
// them on first use. A stored variant is reused as-is: there is no staleness
// check, so replacing a source does not invalidate its variants.
//
// Concurrent requests for the same missing variant may both generate it.
// Each writes the whole file under the same name, so the survivor is a
// valid variant either way.
type Cache struct {
	storage uploads.Storage
	editor  Editor
	presets imagesize.Presets
	metrics *metrics.Emitter
}

// NewCache creates a Cache. A nil emitter disables metrics.
func NewCache(storage uploads.Storage, editor Editor, presets imagesize.Presets, emitter *metrics.Emitter) *Cache {
	if presets == nil {
		presets = imagesize.DefaultPresets()
	}
	if emitter == nil {
		emitter = metrics.Discard()
	}
	return &Cache{storage: storage, editor: editor, presets: presets, metrics: emitter}
}

// VariantName returns the stored name of the variant of filename at size:
// "{sizePrefix}-{filename}".
func VariantName(size imagesize.Size, filename string) string {
	return size.Prefix() + "-" + filename
}

// GetOrCreateVariant returns the URL of src resized to size.
//
// It returns "" when src has no path or size is not acceptable, so the
// caller knows no resize is possible. When the size has no concrete
// dimensions (e.g. "full") or the editor cannot process the source, it
// returns src.URL unchanged. Only storage failures are returned as errors.
//
// filename names the variant; it defaults to src.Path. Only its base name
// is used, so variants always live flat in the upload directory.
func (c *Cache) GetOrCreateVariant(ctx context.Context, src Source, size imagesize.Size, filename string) (string, error) {
	if src.Path == "" || !imagesize.IsAcceptable(size) {
		log.Debug().Str("path", src.Path).Stringer("size", size).Msg("Resize skipped: no source or unacceptable size")
		return "", nil
	}
	if filename == "" {
		filename = src.Path
	}
	filename = filepath.Base(filename)
	if filename == "." || filename == ".." || filename == string(filepath.Separator) {
		log.Debug().Str("path", src.Path).Msg("Resize skipped: no usable variant file name")
		return "", nil
	}
	name := VariantName(size, filename)

	logger := log.With().
		Str("source", src.Path).
		Str("variant", name).
		Logger()

	rec := c.metrics.New().Dimension("Size", size.String())
	defer rec.Flush()

	exists, err := c.storage.Exists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("check variant %s: %w", name, err)
	}
	if exists {
		logger.Debug().Msg("Variant cache hit")
		rec.Count(metrics.VariantCacheHit)
		return c.storage.URL(name), nil
	}

	dims, ok := c.presets.Lookup(size)
	if !ok {
		logger.Debug().Stringer("size", size).Msg("No dimensions for size, using original")
		rec.Count(metrics.VariantDegraded)
		return src.URL, nil
	}

	start := time.Now()
	data, contentType, err := c.render(src.Path, dims)
	if err != nil {
		logger.Warn().Err(err).Msg("Image editor failed, using original")
		rec.Count(metrics.VariantDegraded)
		return src.URL, nil
	}

	if err := c.storage.Write(ctx, name, data, contentType); err != nil {
		return "", fmt.Errorf("store variant %s: %w", name, err)
	}

	logger.Info().
		Int("width", dims.Width).
		Int("height", dims.Height).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("Variant generated")
	rec.Count(metrics.VariantGenerated).
		Since(metrics.ResizeLatency, start).
		Metric(metrics.VariantBytes, float64(len(data)), metrics.UnitBytes)

	return c.storage.URL(name), nil
}

// render opens, crops, resizes and encodes the source entirely in memory,
// so a failure at any step leaves nothing behind in storage.
func (c *Cache) render(path string, dims imagesize.Dimensions) ([]byte, string, error) {
	h, err := c.editor.Open(path)
	if err != nil {
		return nil, "", err
	}
	resized, err := h.ResizeCrop(dims.Width, dims.Height)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	contentType, err := resized.Encode(&buf)
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), contentType, nil
}
