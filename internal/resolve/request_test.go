package resolve

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fpang/post-image/internal/imagesize"
)

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example/a.jpg", true},
		{"https://cdn.example/a.JPEG", true},
		{"https://cdn.example/dir/a.Gif", true},
		{"https://cdn.example/a.png?ver=3#top", true},
		{"/relative/path/a.png", true},
		{"https://cdn.example/a.pdf", false},
		{"https://cdn.example/a.svg", false},
		{"https://cdn.example/no-extension", false},
		{"https://cdn.example/?file=a.png", false},
		{"", false},
		{"://bad url.png", false},
	}
	for _, tt := range tests {
		if got := IsImageFile(tt.url); got != tt.want {
			t.Errorf("IsImageFile(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Request
	}{
		{
			name: "named size",
			body: `{"size":"medium","attachmentId":42}`,
			want: Request{Size: imagesize.Named("medium"), AttachmentID: 42},
		},
		{
			name: "dimension string",
			body: `{"size":"150x100","itemId":7}`,
			want: Request{Size: imagesize.Explicit(150, 100), ItemID: 7},
		},
		{
			name: "dimension object",
			body: `{"size":{"width":150,"height":100},"itemId":7,"includeMeta":true}`,
			want: Request{Size: imagesize.Explicit(150, 100), ItemID: 7, IncludeMeta: true},
		},
		{
			name: "no size",
			body: `{"itemId":7,"metaKeys":["a","b"],"priority":"metaKey"}`,
			want: Request{ItemID: 7, MetaKeys: []string{"a", "b"}, Priority: PriorityMetaKey},
		},
		{
			name: "page builder",
			body: `{"pageBuilder":{"part":"hero","metaKey":"image","itemId":7,"area":"main"}}`,
			want: Request{PageBuilder: &PageBuilderRef{Part: "hero", MetaKey: "image", ItemID: 7, Area: "main"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeRequest() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodeRequest() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeRequest_Rejects(t *testing.T) {
	for _, body := range []string{
		`{"size":"medium","post_id":7}`,
		`{"size":{"width":150,"height":100,"crop":true}}`,
		`{"size":150}`,
		`not json`,
		`{"size":"medium"} trailing`,
		`{"size":"medium"}{"size":"large"}`,
	} {
		if _, err := DecodeRequest([]byte(body)); err == nil {
			t.Errorf("DecodeRequest(%s) expected error", body)
		}
	}
}

func TestPageBuilderRef_Complete(t *testing.T) {
	var nilRef *PageBuilderRef
	if nilRef.Complete() {
		t.Error("nil ref should not be complete")
	}
	full := PageBuilderRef{Part: "p", MetaKey: "k", ItemID: 1, Area: "a"}
	if !full.Complete() {
		t.Error("full ref should be complete")
	}
	partial := full
	partial.Area = ""
	if partial.Complete() {
		t.Error("ref without area should be complete = false")
	}
}
