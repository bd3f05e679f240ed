package resize

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/spf13/afero"
)

func TestCoverCrop(t *testing.T) {
	tests := []struct {
		name   string
		bounds image.Rectangle
		w, h   int
		want   image.Rectangle
	}{
		{"wide source to square", image.Rect(0, 0, 400, 200), 100, 100, image.Rect(100, 0, 300, 200)},
		{"tall source to square", image.Rect(0, 0, 200, 400), 100, 100, image.Rect(0, 100, 200, 300)},
		{"same aspect", image.Rect(0, 0, 300, 150), 100, 50, image.Rect(0, 0, 300, 150)},
		{"offset bounds", image.Rect(10, 10, 410, 210), 50, 50, image.Rect(110, 10, 310, 210)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coverCrop(tt.bounds, tt.w, tt.h); got != tt.want {
				t.Errorf("coverCrop() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDrawEditor_JPEGRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 300, 300)), nil); err != nil {
		t.Fatal(err)
	}
	afero.WriteFile(fs, "/in.jpg", buf.Bytes(), 0o644)

	h, err := NewDrawEditor(fs).Open("/in.jpg")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if w, hh := h.Bounds(); w != 300 || hh != 300 {
		t.Errorf("Bounds() = %dx%d, want 300x300", w, hh)
	}

	resized, err := h.ResizeCrop(150, 100)
	if err != nil {
		t.Fatalf("ResizeCrop() error = %v", err)
	}
	var out bytes.Buffer
	contentType, err := resized.Encode(&out)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if contentType != "image/jpeg" {
		t.Errorf("content type = %q, want image/jpeg", contentType)
	}
	cfg, err := jpeg.DecodeConfig(&out)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 150 || cfg.Height != 100 {
		t.Errorf("output = %dx%d, want 150x100", cfg.Width, cfg.Height)
	}
}

func TestDrawEditor_InvalidTarget(t *testing.T) {
	h := &drawHandle{img: image.NewRGBA(image.Rect(0, 0, 10, 10)), format: "png"}
	if _, err := h.ResizeCrop(0, 10); err == nil {
		t.Error("ResizeCrop(0, 10) expected error")
	}
}
