package content

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/fpang/post-image/internal/imagesize"
)

const fixtureJSON = `{
  "items": [
    {
      "id": 7,
      "title": "Hello",
      "body": "<p>hi</p>",
      "featuredImage": 42,
      "meta": {"hero": "https://cdn.example/uploads/photo.jpg"},
      "pageBuilder": {"hero-part#main#image": "42"}
    }
  ],
  "attachments": [
    {
      "id": 42,
      "guid": "https://cdn.example/uploads/photo.jpg",
      "mimeType": "image/jpeg",
      "sizes": {
        "full": {"url": "https://cdn.example/uploads/photo.jpg", "width": 800, "height": 600},
        "thumbnail": {"url": "https://cdn.example/uploads/photo-150x150.jpg", "width": 150, "height": 150}
      }
    }
  ]
}`

func TestLoadFixture(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data/content.json", []byte(fixtureJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFixture(fs, "/data/content.json")
	if err != nil {
		t.Fatalf("LoadFixture() error = %v", err)
	}
	ctx := context.Background()

	item, err := s.Item(ctx, 7)
	if err != nil || item == nil || item.Title != "Hello" || item.Body != "<p>hi</p>" {
		t.Fatalf("Item(7) = %+v, %v", item, err)
	}

	has, _ := s.HasFeaturedImage(ctx, 7)
	if !has {
		t.Error("HasFeaturedImage(7) = false, want true")
	}
	if id, _ := s.FeaturedImageID(ctx, 7); id != 42 {
		t.Errorf("FeaturedImageID(7) = %d, want 42", id)
	}

	if v, _ := s.MetaField(ctx, 7, "hero"); v != "https://cdn.example/uploads/photo.jpg" {
		t.Errorf("MetaField(hero) = %q", v)
	}
	if v, _ := s.PageBuilderField(ctx, "hero-part", "image", 7, "main"); v != "42" {
		t.Errorf("PageBuilderField() = %q, want 42", v)
	}

	id, _ := s.AttachmentIDByURL(ctx, "https://cdn.example/uploads/photo.jpg")
	if id != 42 {
		t.Errorf("AttachmentIDByURL() = %d, want 42", id)
	}

	img, _ := s.SizedAttachment(ctx, 42, imagesize.Named("thumbnail"))
	if img == nil || img.URL != "https://cdn.example/uploads/photo-150x150.jpg" {
		t.Errorf("SizedAttachment(42, thumbnail) = %+v", img)
	}
}

func TestLoadFixture_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := LoadFixture(fs, "/missing.json"); err == nil {
		t.Error("expected error for missing fixture")
	}

	afero.WriteFile(fs, "/bad.json", []byte("{"), 0o644)
	if _, err := LoadFixture(fs, "/bad.json"); err == nil {
		t.Error("expected error for malformed fixture")
	}
}

func TestMemoryStore_Missing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if item, err := s.Item(ctx, 1); item != nil || err != nil {
		t.Errorf("Item(1) = %+v, %v; want nil, nil", item, err)
	}
	if has, _ := s.HasFeaturedImage(ctx, 1); has {
		t.Error("HasFeaturedImage(1) = true, want false")
	}
	if img, err := s.SizedAttachment(ctx, 0, imagesize.Named("full")); img != nil || err != nil {
		t.Errorf("SizedAttachment(0) = %+v, %v; want nil, nil", img, err)
	}
	if img, _ := s.SizedAttachment(ctx, 99, imagesize.Named("full")); img != nil {
		t.Errorf("SizedAttachment(99) = %+v, want nil", img)
	}
	if id, _ := s.AttachmentIDByURL(ctx, "https://nowhere/x.png"); id != 0 {
		t.Errorf("AttachmentIDByURL() = %d, want 0", id)
	}
}

func TestCurrentItemID(t *testing.T) {
	ctx := context.Background()
	if got := CurrentItemID(ctx); got != 0 {
		t.Errorf("CurrentItemID(empty) = %d, want 0", got)
	}
	ctx = WithCurrentItem(ctx, 12)
	if got := CurrentItemID(ctx); got != 12 {
		t.Errorf("CurrentItemID() = %d, want 12", got)
	}
}
