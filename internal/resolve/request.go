package resolve

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fpang/post-image/internal/content"
	"github.com/fpang/post-image/internal/imagesize"
)

// Priority names a single source that should be consulted instead of the
// normal cascade.
type Priority string

// Recognized priority overrides. Any other non-empty value behaves like
// PriorityFeatured.
const (
	PriorityFeatured    Priority = "featured"
	PriorityMetaKey     Priority = "metaKey"
	PriorityPageBuilder Priority = "pageBuilderData"
)

// PageBuilderRef locates an image stored in page-builder part data.
// All four fields are required.
type PageBuilderRef struct {
	Part    string `json:"part"`
	MetaKey string `json:"metaKey"`
	ItemID  int64  `json:"itemId"`
	Area    string `json:"area"`
}

// Complete reports whether every field is set.
func (p *PageBuilderRef) Complete() bool {
	return p != nil && p.Part != "" && p.MetaKey != "" && p.ItemID != 0 && p.Area != ""
}

// Request describes one image resolution.
//
// A zero Size uses Config.DefaultImageSize. A zero ItemID uses the item
// carried by the context (content.WithCurrentItem).
type Request struct {
	Size         imagesize.Size       `json:"size"`
	ItemID       int64                `json:"itemId,omitempty"`
	AttachmentID content.AttachmentID `json:"attachmentId,omitempty"`
	IncludeMeta  bool                 `json:"includeMeta,omitempty"`
	// MetaKeys are consulted in order; the first key holding an image wins.
	MetaKeys    []string        `json:"metaKeys,omitempty"`
	PageBuilder *PageBuilderRef `json:"pageBuilder,omitempty"`
	Priority    Priority        `json:"priority,omitempty"`
}

// DecodeRequest parses a JSON request, rejecting unknown fields.
//
// The size may be given either as a string ("medium", "150x150") or as an
// object ({"width":150,"height":150}).
func DecodeRequest(data []byte) (Request, error) {
	var wire struct {
		Request
		Size json.RawMessage `json:"size"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return Request{}, fmt.Errorf("decode request: unexpected data after the request object")
	}

	req := wire.Request
	size, err := decodeSize(wire.Size)
	if err != nil {
		return Request{}, err
	}
	req.Size = size
	return req, nil
}

func decodeSize(raw json.RawMessage) (imagesize.Size, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return imagesize.Size{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return imagesize.Size{}, fmt.Errorf("decode size: %w", err)
		}
		return imagesize.Parse(s), nil
	}
	var s imagesize.Size
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return imagesize.Size{}, fmt.Errorf("decode size: %w", err)
	}
	return s, nil
}
