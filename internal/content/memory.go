package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/fpang/post-image/internal/imagesize"
)

// Fixture is the on-disk JSON layout read by LoadFixture.
type Fixture struct {
	Items       []FixtureItem `json:"items"`
	Attachments []Attachment  `json:"attachments"`
}

// FixtureItem is a content item with its meta and page-builder fields.
type FixtureItem struct {
	Item
	FeaturedImage AttachmentID      `json:"featuredImage,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
	// PageBuilder is keyed by PageBuilderKey(part, area, key).
	PageBuilder map[string]string `json:"pageBuilder,omitempty"`
}

// MemoryStore is an in-process Store, used by the CLI and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	items       map[int64]*FixtureItem
	attachments map[AttachmentID]*Attachment
	byURL       map[string]AttachmentID
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:       make(map[int64]*FixtureItem),
		attachments: make(map[AttachmentID]*Attachment),
		byURL:       make(map[string]AttachmentID),
	}
}

// ReadFixture reads and parses a JSON fixture from fs.
func ReadFixture(fs afero.Fs, path string) (*Fixture, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &fx, nil
}

// LoadFixture reads a JSON fixture from fs into a new MemoryStore.
func LoadFixture(fs afero.Fs, path string) (*MemoryStore, error) {
	fx, err := ReadFixture(fs, path)
	if err != nil {
		return nil, err
	}

	s := NewMemoryStore()
	for i := range fx.Items {
		s.PutItem(fx.Items[i])
	}
	for i := range fx.Attachments {
		s.PutAttachment(fx.Attachments[i])
	}
	log.Debug().
		Str("path", path).
		Int("items", len(fx.Items)).
		Int("attachments", len(fx.Attachments)).
		Msg("Content fixture loaded")
	return s, nil
}

// PutItem adds or replaces an item.
func (s *MemoryStore) PutItem(item FixtureItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = &item
}

// PutAttachment adds or replaces an attachment and indexes its GUID.
func (s *MemoryStore) PutAttachment(a Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[a.ID] = &a
	if a.GUID != "" {
		s.byURL[a.GUID] = a.ID
	}
}

func (s *MemoryStore) item(itemID int64) *FixtureItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[itemID]
}

// Item implements Store.
func (s *MemoryStore) Item(_ context.Context, itemID int64) (*Item, error) {
	it := s.item(itemID)
	if it == nil {
		return nil, nil
	}
	out := it.Item
	return &out, nil
}

// HasFeaturedImage implements Store.
func (s *MemoryStore) HasFeaturedImage(ctx context.Context, itemID int64) (bool, error) {
	id, err := s.FeaturedImageID(ctx, itemID)
	return id != 0, err
}

// FeaturedImageID implements Store.
func (s *MemoryStore) FeaturedImageID(_ context.Context, itemID int64) (AttachmentID, error) {
	if it := s.item(itemID); it != nil {
		return it.FeaturedImage, nil
	}
	return 0, nil
}

// SizedAttachment implements Store.
func (s *MemoryStore) SizedAttachment(_ context.Context, id AttachmentID, size imagesize.Size) (*SizedImage, error) {
	if id == 0 {
		return nil, nil
	}
	s.mu.RLock()
	a := s.attachments[id]
	s.mu.RUnlock()
	if a == nil {
		return nil, nil
	}
	return a.Rendition(size), nil
}

// MetaField implements Store.
func (s *MemoryStore) MetaField(_ context.Context, itemID int64, key string) (string, error) {
	if it := s.item(itemID); it != nil {
		return it.Meta[key], nil
	}
	return "", nil
}

// PageBuilderField implements Store.
func (s *MemoryStore) PageBuilderField(_ context.Context, part, key string, itemID int64, area string) (string, error) {
	if it := s.item(itemID); it != nil {
		return it.PageBuilder[PageBuilderKey(part, area, key)], nil
	}
	return "", nil
}

// AttachmentIDByURL implements Store.
func (s *MemoryStore) AttachmentIDByURL(_ context.Context, url string) (AttachmentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byURL[url], nil
}

// PageBuilderKey is the flat key under which a page-builder field is stored:
// "{part}#{area}#{key}".
func PageBuilderKey(part, area, key string) string {
	return part + "#" + area + "#" + key
}

// ParseAttachmentID reads a decimal attachment id. Anything that is not a
// positive integer yields 0.
func ParseAttachmentID(value string) AttachmentID {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return AttachmentID(n)
}
