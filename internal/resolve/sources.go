package resolve

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/post-image/internal/content"
	"github.com/fpang/post-image/internal/imagesize"
)

// Source names, used in logs and in the resolve API response.
const (
	SourceAttachment  = "attachment"
	SourceFeatured    = "featured"
	SourceMetaField   = "meta"
	SourcePageBuilder = "pageBuilder"
	SourceBody        = "body"
	SourceFallback    = "itemAttachment"
	SourcePlaceholder = "placeholder"
)

// firstImgSrc matches the src attribute of the first <img> tag. It tolerates
// other attributes before src, either quote style and tags spanning lines.
var firstImgSrc = regexp.MustCompile(`(?is)<img\b[^>]*?\ssrc\s*=\s*['"]([^'"]+)['"]`)

// Each resolver returns nil, nil when its source has no image.

// sized fetches attachment id at size. Ids <= 0 never match.
func (r *Resolver) sized(ctx context.Context, id content.AttachmentID, size imagesize.Size) (*Image, error) {
	if id <= 0 {
		return nil, nil
	}
	rec, err := r.store.SizedAttachment(ctx, id, size)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %d: %w", id, err)
	}
	if rec == nil || rec.URL == "" {
		return nil, nil
	}
	return &Image{URL: rec.URL, Meta: rec}, nil
}

// byURL maps an image URL back to its attachment and fetches it at size.
func (r *Resolver) byURL(ctx context.Context, url string, size imagesize.Size) (*Image, error) {
	id, err := r.store.AttachmentIDByURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to look up attachment for %s: %w", url, err)
	}
	return r.sized(ctx, id, size)
}

func (r *Resolver) byAttachmentID(ctx context.Context, req Request) (*Image, error) {
	return r.sized(ctx, req.AttachmentID, req.Size)
}

func (r *Resolver) featuredImage(ctx context.Context, req Request) (*Image, error) {
	id, err := r.store.FeaturedImageID(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get featured image of item %d: %w", req.ItemID, err)
	}
	return r.sized(ctx, id, req.Size)
}

// fromMetaField walks req.MetaKeys in order and returns the first field
// whose value is an image URL that maps to a known attachment.
func (r *Resolver) fromMetaField(ctx context.Context, req Request) (*Image, error) {
	for _, key := range req.MetaKeys {
		if key == "" {
			continue
		}
		value, err := r.store.MetaField(ctx, req.ItemID, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read meta %q of item %d: %w", key, req.ItemID, err)
		}
		value = strings.TrimSpace(value)
		if !IsImageFile(value) {
			continue
		}
		img, err := r.byURL(ctx, value, req.Size)
		if err != nil {
			return nil, err
		}
		if img != nil {
			log.Debug().Str("meta_key", key).Str("url", value).Msg("Image found in meta field")
			return img, nil
		}
	}
	return nil, nil
}

// fromPageBuilder reads page-builder part data. An image URL is mapped back
// to its attachment; any other value is taken as an attachment id.
func (r *Resolver) fromPageBuilder(ctx context.Context, req Request) (*Image, error) {
	ref := req.PageBuilder
	if !ref.Complete() {
		return nil, nil
	}
	value, err := r.store.PageBuilderField(ctx, ref.Part, ref.MetaKey, ref.ItemID, ref.Area)
	if err != nil {
		return nil, fmt.Errorf("failed to read page builder field %s/%s: %w", ref.Part, ref.MetaKey, err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if IsImageFile(value) {
		return r.byURL(ctx, value, req.Size)
	}
	return r.sized(ctx, content.ParseAttachmentID(value), req.Size)
}

// firstImageInBody returns the first <img> in the item body. A src that
// maps to an attachment is returned at the requested size; any other src is
// returned as-is with no metadata.
func (r *Resolver) firstImageInBody(ctx context.Context, req Request) (*Image, error) {
	if req.ItemID == 0 {
		return nil, nil
	}
	item, err := r.store.Item(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", req.ItemID, err)
	}
	if item == nil {
		return nil, nil
	}

	m := firstImgSrc.FindStringSubmatch(item.Body)
	if m == nil {
		return nil, nil
	}
	src := m[1]

	id, err := r.store.AttachmentIDByURL(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to look up attachment for %s: %w", src, err)
	}
	if id == 0 {
		log.Debug().Str("url", src).Msg("Body image is not an attachment, using as-is")
		return &Image{URL: src}, nil
	}
	return r.sized(ctx, id, req.Size)
}

// itemAsAttachment treats the item id itself as an attachment id, which
// resolves when the item being rendered is an attachment page.
func (r *Resolver) itemAsAttachment(ctx context.Context, req Request) (*Image, error) {
	return r.sized(ctx, content.AttachmentID(req.ItemID), req.Size)
}
