package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/fpang/post-image/internal/imagesize"
)

// fakeDynamo is an in-memory table keyed by PK and SK, with the guid
// attribute served as a secondary index.
type fakeDynamo struct {
	items   map[string]map[string]types.AttributeValue
	batches int
	err     error
	// throttle is how many upcoming batch calls leave their last request
	// unprocessed.
	throttle int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func attrS(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := attrS(in.Key, "PK") + "|" + attrS(in.Key, "SK")
	return &dynamodb.GetItemOutput{Item: f.items[key]}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	want := attrS(in.ExpressionAttributeValues, ":guid")
	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		if attrS(item, "guid") == want {
			out = append(out, item)
		}
	}
	return &dynamodb.QueryOutput{Items: out}, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches++
	out := &dynamodb.BatchWriteItemOutput{}
	for table, reqs := range in.RequestItems {
		if f.throttle > 0 && len(reqs) > 0 {
			f.throttle--
			out.UnprocessedItems = map[string][]types.WriteRequest{table: reqs[len(reqs)-1:]}
			reqs = reqs[:len(reqs)-1]
		}
		for _, r := range reqs {
			item := r.PutRequest.Item
			f.items[attrS(item, "PK")+"|"+attrS(item, "SK")] = item
		}
	}
	return out, nil
}

func seededDynamoStore(t *testing.T) (*DynamoStore, *fakeDynamo) {
	t.Helper()
	fake := newFakeDynamo()
	s := &DynamoStore{client: fake, tableName: "content"}
	fx := &Fixture{
		Items: []FixtureItem{{
			Item:          Item{ID: 7, Title: "Hello", Body: `<img src="https://cdn.example/uploads/photo.jpg">`},
			FeaturedImage: 42,
			Meta:          map[string]string{"hero": "https://cdn.example/uploads/photo.jpg"},
			PageBuilder:   map[string]string{PageBuilderKey("hero-part", "main", "image"): "42"},
		}},
		Attachments: []Attachment{*testAttachment()},
	}
	if err := s.Seed(context.Background(), fx); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return s, fake
}

func TestDynamoStore_RoundTrip(t *testing.T) {
	s, fake := seededDynamoStore(t)
	ctx := context.Background()

	if fake.batches != 1 {
		t.Errorf("batches = %d, want 1", fake.batches)
	}

	item, err := s.Item(ctx, 7)
	if err != nil || item == nil || item.Title != "Hello" || item.ID != 7 {
		t.Fatalf("Item(7) = %+v, %v", item, err)
	}
	if id, _ := s.FeaturedImageID(ctx, 7); id != 42 {
		t.Errorf("FeaturedImageID(7) = %d, want 42", id)
	}
	if has, _ := s.HasFeaturedImage(ctx, 8); has {
		t.Error("HasFeaturedImage(8) = true, want false")
	}
	if v, _ := s.MetaField(ctx, 7, "hero"); v != "https://cdn.example/uploads/photo.jpg" {
		t.Errorf("MetaField(hero) = %q", v)
	}
	if v, _ := s.MetaField(ctx, 7, "missing"); v != "" {
		t.Errorf("MetaField(missing) = %q, want empty", v)
	}
	if v, _ := s.PageBuilderField(ctx, "hero-part", "image", 7, "main"); v != "42" {
		t.Errorf("PageBuilderField() = %q, want 42", v)
	}

	img, err := s.SizedAttachment(ctx, 42, imagesize.Named("large"))
	if err != nil || img == nil || img.URL != "https://cdn.example/uploads/photo-1024x768.jpg" {
		t.Errorf("SizedAttachment(42, large) = %+v, %v", img, err)
	}
	if img, _ := s.SizedAttachment(ctx, 43, imagesize.Named("large")); img != nil {
		t.Errorf("SizedAttachment(43) = %+v, want nil", img)
	}

	id, err := s.AttachmentIDByURL(ctx, "https://cdn.example/uploads/photo.jpg")
	if err != nil || id != 42 {
		t.Errorf("AttachmentIDByURL() = %d, %v; want 42", id, err)
	}
	if id, _ := s.AttachmentIDByURL(ctx, "https://cdn.example/other.jpg"); id != 0 {
		t.Errorf("AttachmentIDByURL(other) = %d, want 0", id)
	}
}

func TestDynamoStore_BackendError(t *testing.T) {
	s, fake := seededDynamoStore(t)
	fake.err = errors.New("throttled")
	ctx := context.Background()

	if _, err := s.Item(ctx, 7); err == nil {
		t.Error("Item() expected error")
	}
	if _, err := s.SizedAttachment(ctx, 42, imagesize.Named("full")); err == nil {
		t.Error("SizedAttachment() expected error")
	}
	if _, err := s.AttachmentIDByURL(ctx, "https://cdn.example/uploads/photo.jpg"); err == nil {
		t.Error("AttachmentIDByURL() expected error")
	}
}

func TestDynamoStore_SeedRetriesUnprocessedItems(t *testing.T) {
	orig := batchRetryDelay
	batchRetryDelay = time.Millisecond
	t.Cleanup(func() { batchRetryDelay = orig })

	fake := newFakeDynamo()
	fake.throttle = 2
	s := &DynamoStore{client: fake, tableName: "content"}
	fx := &Fixture{Attachments: []Attachment{*testAttachment()}, Items: []FixtureItem{{Item: Item{ID: 7, Title: "Hello"}}}}

	if err := s.Seed(context.Background(), fx); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if fake.batches != 3 {
		t.Errorf("batches = %d, want 3 (two retries)", fake.batches)
	}
	if len(fake.items) != 2 {
		t.Errorf("stored %d records, want 2", len(fake.items))
	}
}

func TestDynamoStore_SeedGivesUpOnPersistentThrottling(t *testing.T) {
	orig := batchRetryDelay
	batchRetryDelay = time.Millisecond
	t.Cleanup(func() { batchRetryDelay = orig })

	fake := newFakeDynamo()
	fake.throttle = maxBatchAttempts
	s := &DynamoStore{client: fake, tableName: "content"}
	fx := &Fixture{Attachments: []Attachment{*testAttachment()}}

	if err := s.Seed(context.Background(), fx); err == nil {
		t.Fatal("Seed() expected error when items stay unprocessed")
	}
	if fake.batches != maxBatchAttempts {
		t.Errorf("batches = %d, want %d", fake.batches, maxBatchAttempts)
	}
}
