package uploads

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/afero"
)

func TestFSStorage_WriteAndExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewFSStorage(fs, "/var/uploads", "https://example.com/uploads/")
	ctx := context.Background()

	ok, err := s.Exists(ctx, "large-x.png")
	if err != nil || ok {
		t.Fatalf("Exists() before write = %v, %v", ok, err)
	}

	if err := s.Write(ctx, "large-x.png", []byte("data"), "image/png"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	ok, err = s.Exists(ctx, "large-x.png")
	if err != nil || !ok {
		t.Fatalf("Exists() after write = %v, %v", ok, err)
	}

	got, _ := afero.ReadFile(fs, "/var/uploads/large-x.png")
	if string(got) != "data" {
		t.Errorf("file content = %q, want data", got)
	}

	entries, _ := afero.ReadDir(fs, "/var/uploads")
	if len(entries) != 1 {
		t.Errorf("upload dir has %d entries, want 1 (no temp files left)", len(entries))
	}

	if u := s.URL("large-x.png"); u != "https://example.com/uploads/large-x.png" {
		t.Errorf("URL() = %q", u)
	}
	if u, p := s.URL("nested/large-x.png"), s.Path("nested/large-x.png"); u != "https://example.com/uploads/large-x.png" || p != "/var/uploads/large-x.png" {
		t.Errorf("URL/Path of nested name = %q, %q; want the same flat file", u, p)
	}
}

func TestFSStorage_ReadOnlyFails(t *testing.T) {
	s := NewFSStorage(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/var/uploads", "https://example.com/uploads")
	if err := s.Write(context.Background(), "a.png", []byte("x"), ""); err == nil {
		t.Error("Write() on read-only fs expected error")
	}
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	headErr error
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	if in.ContentType != nil {
		f.types[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Storage(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	s := &S3Storage{client: fake, bucket: "media", prefix: "cache", baseURL: "https://cdn.example/cache"}
	ctx := context.Background()

	if ok, err := s.Exists(ctx, "medium-p.png"); ok || err != nil {
		t.Fatalf("Exists() before write = %v, %v", ok, err)
	}
	if err := s.Write(ctx, "medium-p.png", []byte("png"), "image/png"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if ok, err := s.Exists(ctx, "medium-p.png"); !ok || err != nil {
		t.Fatalf("Exists() after write = %v, %v", ok, err)
	}
	if string(fake.objects["cache/medium-p.png"]) != "png" {
		t.Errorf("object content = %q", fake.objects["cache/medium-p.png"])
	}
	if fake.types["cache/medium-p.png"] != "image/png" {
		t.Errorf("content type = %q", fake.types["cache/medium-p.png"])
	}
	if u := s.URL("medium-p.png"); u != "https://cdn.example/cache/medium-p.png" {
		t.Errorf("URL() = %q", u)
	}
}

func TestS3Storage_HeadError(t *testing.T) {
	fake := &fakeS3{headErr: errors.New("forbidden")}
	s := &S3Storage{client: fake, bucket: "media"}
	if _, err := s.Exists(context.Background(), "x.png"); err == nil {
		t.Error("Exists() expected error")
	}
}
