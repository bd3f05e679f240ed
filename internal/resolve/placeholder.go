package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/post-image/internal/content"
	"github.com/fpang/post-image/internal/imagesize"
	"github.com/fpang/post-image/internal/resize"
)

// ResolvePlaceholder returns the placeholder image at size. A zero size uses
// Config.DefaultPlaceholderSize.
//
// The placeholder setting is read on every call. When it names a known
// attachment, by URL or by id, that attachment is used. Otherwise the bundled
// default is returned as-is for full size, or resized through the cache.
func (r *Resolver) ResolvePlaceholder(ctx context.Context, size imagesize.Size) (string, error) {
	if size.IsZero() {
		size = r.cfg.DefaultPlaceholderSize
	}

	setting, err := r.settings.PlaceholderSetting(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read placeholder setting: %w", err)
	}

	id, err := r.placeholderAttachment(ctx, setting)
	if err != nil {
		return "", err
	}
	if id != 0 {
		img, err := r.sized(ctx, id, size)
		if err != nil {
			return "", err
		}
		if img != nil {
			log.Debug().Int64("attachment_id", int64(id)).Stringer("size", size).Msg("Using configured placeholder")
			return img.URL, nil
		}
	}

	if size.IsFull() {
		return r.cfg.PlaceholderURL, nil
	}

	src := resize.Source{Path: r.cfg.PlaceholderPath, URL: r.cfg.PlaceholderURL}
	url, err := r.cache.GetOrCreateVariant(ctx, src, size, PlaceholderFilename)
	if err != nil {
		return "", fmt.Errorf("failed to resize placeholder: %w", err)
	}
	if url == "" {
		return r.cfg.PlaceholderURL, nil
	}
	return url, nil
}

// placeholderAttachment interprets the setting as a numeric attachment id
// or an attachment URL. It returns 0 for an unset or unknown value.
func (r *Resolver) placeholderAttachment(ctx context.Context, setting string) (content.AttachmentID, error) {
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return 0, nil
	}
	if id := content.ParseAttachmentID(setting); id != 0 {
		return id, nil
	}
	id, err := r.store.AttachmentIDByURL(ctx, setting)
	if err != nil {
		return 0, fmt.Errorf("failed to look up placeholder attachment: %w", err)
	}
	return id, nil
}
