package content

import (
	"github.com/fpang/post-image/internal/imagesize"
)

// Attachment is a stored media asset and its renditions keyed by size name.
// The "full" rendition is the original upload.
type Attachment struct {
	ID       AttachmentID          `json:"id" dynamodbav:"-"`
	GUID     string                `json:"guid" dynamodbav:"guid"`
	MimeType string                `json:"mimeType" dynamodbav:"mimeType"`
	Sizes    map[string]SizedImage `json:"sizes" dynamodbav:"sizes"`
}

// Rendition picks the rendition that best serves size.
//
// A named size returns its own rendition when one was generated, otherwise
// the original. An explicit size returns the smallest rendition that covers
// the requested box, otherwise the original. Returns nil when the
// attachment has no original.
func (a *Attachment) Rendition(size imagesize.Size) *SizedImage {
	full, ok := a.Sizes[imagesize.Full]
	if !ok || full.URL == "" {
		return nil
	}

	var pick *SizedImage
	switch {
	case size.IsExplicit():
		bestArea := 0
		for name, r := range a.Sizes {
			if name == imagesize.Full || r.URL == "" || r.Width < size.Width || r.Height < size.Height {
				continue
			}
			if area := r.Width * r.Height; pick == nil || area < bestArea {
				pick, bestArea = &r, area
			}
		}
	case size.Name != imagesize.Full:
		if r, ok := a.Sizes[size.Name]; ok && r.URL != "" {
			pick = &r
		}
	}

	if pick == nil {
		pick = &full
		pick.Intermediate = false
	} else {
		pick.Intermediate = true
	}
	if pick.MimeType == "" {
		pick.MimeType = a.MimeType
	}
	return pick
}
