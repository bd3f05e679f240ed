// Package resolve picks the display image for a content item.
//
// Sources are tried in a fixed order: an explicit attachment, the featured
// image, meta fields, page-builder data, the first image in the body, and
// the item itself as an attachment. When none of them yields an image the
// configured placeholder is returned, so a successful call always produces
// a URL.
package resolve

import (
	"context"
	"fmt"
	"html"

	"github.com/rs/zerolog/log"

	"github.com/fpang/post-image/internal/content"
	"github.com/fpang/post-image/internal/imagesize"
	"github.com/fpang/post-image/internal/resize"
	"github.com/fpang/post-image/internal/settings"
)

// Image is a resolved image. Meta is the sized attachment record and is only
// set when the request asked for it and the image came from an attachment.
type Image struct {
	URL    string              `json:"src"`
	Meta   *content.SizedImage `json:"meta,omitempty"`
	Source string              `json:"source"`
}

// Resolver resolves images against a content store. It is safe for
// concurrent use when its collaborators are.
type Resolver struct {
	store    content.Store
	settings settings.Store
	cache    *resize.Cache
	cfg      Config
}

// New creates a Resolver. A nil settings store behaves as an unset setting.
func New(store content.Store, settingsStore settings.Store, cache *resize.Cache, cfg Config) *Resolver {
	if settingsStore == nil {
		settingsStore = settings.Static("")
	}
	return &Resolver{
		store:    store,
		settings: settingsStore,
		cache:    cache,
		cfg:      cfg.withDefaults(),
	}
}

// Config returns the resolver's effective configuration.
func (r *Resolver) Config() Config {
	return r.cfg
}

type resolverFunc func(context.Context, Request) (*Image, error)

// normalize applies the request defaults.
func (r *Resolver) normalize(ctx context.Context, req Request) Request {
	if req.Size.IsZero() {
		req.Size = r.cfg.DefaultImageSize
	}
	if req.ItemID == 0 {
		req.ItemID = content.CurrentItemID(ctx)
	}
	return req
}

// ResolveImage returns the image for req. It only returns an error when the
// content store, settings or upload storage fail; running out of sources
// yields the placeholder.
func (r *Resolver) ResolveImage(ctx context.Context, req Request) (*Image, error) {
	req = r.normalize(ctx, req)
	logger := log.With().
		Int64("item_id", req.ItemID).
		Int64("attachment_id", int64(req.AttachmentID)).
		Stringer("size", req.Size).
		Logger()

	img, source, err := r.fromSources(ctx, req)
	if err != nil {
		return nil, err
	}

	if img == nil {
		url, err := r.ResolvePlaceholder(ctx, r.cfg.DefaultPlaceholderSize)
		if err != nil {
			return nil, err
		}
		img, source = &Image{URL: url}, SourcePlaceholder
	}

	img.Source = source
	if !req.IncludeMeta {
		img.Meta = nil
	}
	logger.Debug().Str("source", source).Str("url", img.URL).Msg("Image resolved")
	return img, nil
}

// fromSources runs the override or the cascade, then the body scan and the
// item-as-attachment fallback. It returns nil when nothing matched.
func (r *Resolver) fromSources(ctx context.Context, req Request) (*Image, string, error) {
	var (
		img    *Image
		source string
		err    error
	)
	if req.Priority != "" {
		img, source, err = r.fromPriority(ctx, req)
	} else {
		img, source, err = r.fromCascade(ctx, req)
	}
	if err != nil || img != nil {
		return img, source, err
	}

	for _, step := range []struct {
		name string
		fn   resolverFunc
	}{
		{SourceBody, r.firstImageInBody},
		{SourceFallback, r.itemAsAttachment},
	} {
		img, err := step.fn(ctx, req)
		if err != nil {
			return nil, "", err
		}
		if img != nil {
			return img, step.name, nil
		}
	}
	return nil, "", nil
}

// fromPriority consults exactly one resolver. Unknown priorities use the
// featured image.
func (r *Resolver) fromPriority(ctx context.Context, req Request) (*Image, string, error) {
	var (
		name string
		fn   resolverFunc
	)
	switch req.Priority {
	case PriorityMetaKey:
		name, fn = SourceMetaField, r.fromMetaField
	case PriorityPageBuilder:
		name, fn = SourcePageBuilder, r.fromPageBuilder
	default:
		name, fn = SourceFeatured, r.featuredImage
	}
	log.Debug().Str("priority", string(req.Priority)).Str("source", name).Msg("Using priority source")
	img, err := fn(ctx, req)
	return img, name, err
}

// fromCascade tries each applicable source in priority order and stops at
// the first match.
func (r *Resolver) fromCascade(ctx context.Context, req Request) (*Image, string, error) {
	if req.AttachmentID != 0 {
		img, err := r.byAttachmentID(ctx, req)
		if err != nil || img != nil {
			return img, SourceAttachment, err
		}
	}

	if req.ItemID != 0 {
		has, err := r.store.HasFeaturedImage(ctx, req.ItemID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to check featured image of item %d: %w", req.ItemID, err)
		}
		if has {
			img, err := r.featuredImage(ctx, req)
			if err != nil || img != nil {
				return img, SourceFeatured, err
			}
		}
	}

	if len(req.MetaKeys) > 0 {
		img, err := r.fromMetaField(ctx, req)
		if err != nil || img != nil {
			return img, SourceMetaField, err
		}
	}

	if req.PageBuilder != nil {
		img, err := r.fromPageBuilder(ctx, req)
		if err != nil || img != nil {
			return img, SourcePageBuilder, err
		}
	}
	return nil, "", nil
}

// ResolveResized returns the URL of src resized to size, generating the
// variant on first use. See resize.Cache.GetOrCreateVariant.
func (r *Resolver) ResolveResized(ctx context.Context, src resize.Source, size imagesize.Size, filename string) (string, error) {
	return r.cache.GetOrCreateVariant(ctx, src, size, filename)
}

// RenderImageTag returns an <img> element for the resolved image, with the
// item title as alt text.
func (r *Resolver) RenderImageTag(ctx context.Context, req Request) (string, error) {
	req = r.normalize(ctx, req)
	req.IncludeMeta = false

	img, err := r.ResolveImage(ctx, req)
	if err != nil {
		return "", err
	}

	var title string
	if req.ItemID != 0 {
		item, err := r.store.Item(ctx, req.ItemID)
		if err != nil {
			return "", fmt.Errorf("failed to get item %d: %w", req.ItemID, err)
		}
		if item != nil {
			title = item.Title
		}
	}

	return fmt.Sprintf(`<img src="%s" class="attachment-thumbnail wp-post-image" alt="%s" />`,
		html.EscapeString(img.URL), html.EscapeString(title)), nil
}
