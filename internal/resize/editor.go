// Package resize produces cropped, resized variants of source images and
// caches them in upload storage under deterministic names.
package resize

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// DefaultJPEGQuality matches the CMS default for generated renditions.
const DefaultJPEGQuality = 82

// Editor opens source images for editing.
type Editor interface {
	Open(path string) (Handle, error)
}

// Handle is an opened image.
type Handle interface {
	// Bounds returns the image width and height in pixels.
	Bounds() (width, height int)
	// ResizeCrop scales the image to cover width x height and crops the
	// overflow equally from both sides.
	ResizeCrop(width, height int) (Handle, error)
	// Encode writes the image in its output format and returns the MIME type.
	Encode(w io.Writer) (string, error)
}

// DrawEditor is a pure Go Editor built on golang.org/x/image/draw.
// It reads JPEG, PNG, GIF and WebP sources. WebP sources are written as PNG
// since there is no pure Go WebP encoder.
type DrawEditor struct {
	fs          afero.Fs
	jpegQuality int
}

// Compile-time interface check.
var _ Editor = (*DrawEditor)(nil)

// NewDrawEditor creates a DrawEditor reading sources from fs. A nil fs
// uses the operating system filesystem.
func NewDrawEditor(fs afero.Fs) *DrawEditor {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DrawEditor{fs: fs, jpegQuality: DefaultJPEGQuality}
}

// Open implements Editor.
func (e *DrawEditor) Open(path string) (Handle, error) {
	f, err := e.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Str("format", format).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("Source image opened")

	return &drawHandle{img: img, format: format, jpegQuality: e.jpegQuality}, nil
}

type drawHandle struct {
	img         image.Image
	format      string
	jpegQuality int
}

func (h *drawHandle) Bounds() (int, int) {
	b := h.img.Bounds()
	return b.Dx(), b.Dy()
}

func (h *drawHandle) ResizeCrop(width, height int) (Handle, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target dimensions %dx%d", width, height)
	}
	bounds := h.img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("source image is empty")
	}

	crop := coverCrop(bounds, width, height)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), h.img, crop, draw.Src, nil)

	log.Debug().
		Int("orig_width", bounds.Dx()).
		Int("orig_height", bounds.Dy()).
		Str("crop", crop.String()).
		Int("new_width", width).
		Int("new_height", height).
		Msg("Image resized (pure Go)")

	return &drawHandle{img: dst, format: h.format, jpegQuality: h.jpegQuality}, nil
}

func (h *drawHandle) Encode(w io.Writer) (string, error) {
	switch h.format {
	case "jpeg":
		if err := jpeg.Encode(w, h.img, &jpeg.Options{Quality: h.jpegQuality}); err != nil {
			return "", fmt.Errorf("failed to encode JPEG: %w", err)
		}
		return "image/jpeg", nil
	case "gif":
		if err := gif.Encode(w, h.img, nil); err != nil {
			return "", fmt.Errorf("failed to encode GIF: %w", err)
		}
		return "image/gif", nil
	default:
		if err := png.Encode(w, h.img); err != nil {
			return "", fmt.Errorf("failed to encode PNG: %w", err)
		}
		return "image/png", nil
	}
}

// coverCrop returns the largest centered rectangle inside bounds with the
// aspect ratio of width:height.
func coverCrop(bounds image.Rectangle, width, height int) image.Rectangle {
	srcW, srcH := bounds.Dx(), bounds.Dy()

	// Compare srcW/srcH against width/height without floating point.
	cropW, cropH := srcW, srcH
	if srcW*height > srcH*width {
		cropW = srcH * width / height
	} else {
		cropH = srcW * height / width
	}
	if cropW < 1 {
		cropW = 1
	}
	if cropH < 1 {
		cropH = 1
	}

	x0 := bounds.Min.X + (srcW-cropW)/2
	y0 := bounds.Min.Y + (srcH-cropH)/2
	return image.Rect(x0, y0, x0+cropW, y0+cropH)
}
