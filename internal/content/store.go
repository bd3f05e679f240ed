// Package content defines the contract the image resolver needs from the
// hosting content store: item bodies, meta fields, page-builder fields,
// attachments at a given size, and reverse URL lookup.
//
// All lookups return a zero value with a nil error when the requested record
// does not exist. Errors are reserved for backend failures.
package content

import (
	"context"

	"github.com/fpang/post-image/internal/imagesize"
)

// AttachmentID identifies a stored media asset. Zero means "none".
type AttachmentID int64

// Item is a content item (e.g. an article).
type Item struct {
	ID    int64  `json:"id" dynamodbav:"-"`
	Title string `json:"title" dynamodbav:"title"`
	Body  string `json:"body" dynamodbav:"body"`
}

// SizedImage is an attachment rendition at a particular size.
type SizedImage struct {
	URL          string `json:"url" dynamodbav:"url"`
	Width        int    `json:"width" dynamodbav:"width"`
	Height       int    `json:"height" dynamodbav:"height"`
	MimeType     string `json:"mimeType,omitempty" dynamodbav:"mimeType,omitempty"`
	Intermediate bool   `json:"intermediate" dynamodbav:"intermediate"`
}

// Store is the narrow view of the content-management system used by the
// resolver. Implementations must be safe for concurrent use.
type Store interface {
	// Item returns the content item, or nil, nil if it does not exist.
	Item(ctx context.Context, itemID int64) (*Item, error)

	// HasFeaturedImage reports whether the item has a featured image.
	HasFeaturedImage(ctx context.Context, itemID int64) (bool, error)

	// FeaturedImageID returns the item's featured image, or 0.
	FeaturedImageID(ctx context.Context, itemID int64) (AttachmentID, error)

	// SizedAttachment returns the attachment at the requested size, or
	// nil, nil if there is no such attachment.
	SizedAttachment(ctx context.Context, id AttachmentID, size imagesize.Size) (*SizedImage, error)

	// MetaField returns the raw value stored under key, or "".
	MetaField(ctx context.Context, itemID int64, key string) (string, error)

	// PageBuilderField returns the page-builder part data, or "".
	PageBuilderField(ctx context.Context, part, key string, itemID int64, area string) (string, error)

	// AttachmentIDByURL maps an attachment's canonical URL back to its id,
	// or 0 if no attachment matches.
	AttachmentIDByURL(ctx context.Context, url string) (AttachmentID, error)
}

type currentItemKey struct{}

// WithCurrentItem returns a context carrying the item being rendered.
// Resolution requests without an explicit item id fall back to it.
func WithCurrentItem(ctx context.Context, itemID int64) context.Context {
	return context.WithValue(ctx, currentItemKey{}, itemID)
}

// CurrentItemID returns the item being rendered, or 0 when none is set.
func CurrentItemID(ctx context.Context) int64 {
	id, _ := ctx.Value(currentItemKey{}).(int64)
	return id
}
