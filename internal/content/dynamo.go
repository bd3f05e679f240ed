package content

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/post-image/internal/imagesize"
)

// DynamoDB key constants for the single-table design.
//
//	PK=ITEM#{id}        SK=META                      title, body, featuredImage
//	PK=ITEM#{id}        SK=FIELD#{key}               value
//	PK=ITEM#{id}        SK=PB#{part}#{area}#{key}    value
//	PK=ATTACHMENT#{id}  SK=META                      guid, mimeType, sizes
//
// The guid attribute is projected into a GSI for reverse URL lookup.
const (
	itemPrefix       = "ITEM#"
	attachmentPrefix = "ATTACHMENT#"
	skMeta           = "META"
	skField          = "FIELD#"
	skPageBuilder    = "PB#"

	// GUIDIndexName is the GSI keyed on the attachment guid attribute.
	GUIDIndexName = "guid-index"

	// maxBatchWrite is the DynamoDB BatchWriteItem limit per call.
	maxBatchWrite = 25

	// maxBatchAttempts bounds retries of items DynamoDB returns as
	// unprocessed (typically under throttling).
	maxBatchAttempts = 5
)

// batchRetryDelay is the first backoff before resending unprocessed items.
// It doubles on every attempt.
var batchRetryDelay = 100 * time.Millisecond

// dynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoStore implements Store on a single DynamoDB table.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
}

// Compile-time interface check.
var _ Store = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

// itemRecord is the stored shape of an item's META record.
type itemRecord struct {
	Title         string `dynamodbav:"title"`
	Body          string `dynamodbav:"body"`
	FeaturedImage int64  `dynamodbav:"featuredImage,omitempty"`
}

// fieldRecord is the stored shape of meta and page-builder field records.
type fieldRecord struct {
	Value string `dynamodbav:"value"`
}

func itemPK(itemID int64) string {
	return itemPrefix + strconv.FormatInt(itemID, 10)
}

func attachmentPK(id AttachmentID) string {
	return attachmentPrefix + strconv.FormatInt(int64(id), 10)
}

func keyOf(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// getItem reads a single item from DynamoDB and unmarshals it into out.
// Returns false if the item does not exist (out is not modified).
func (s *DynamoStore) getItem(ctx context.Context, pk, sk string, out interface{}) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       keyOf(pk, sk),
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}

func (s *DynamoStore) itemRecord(ctx context.Context, itemID int64) (*itemRecord, error) {
	if itemID == 0 {
		return nil, nil
	}
	var rec itemRecord
	found, err := s.getItem(ctx, itemPK(itemID), skMeta, &rec)
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", itemID, err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

func (s *DynamoStore) field(ctx context.Context, itemID int64, sk string) (string, error) {
	var rec fieldRecord
	found, err := s.getItem(ctx, itemPK(itemID), sk, &rec)
	if err != nil || !found {
		return "", err
	}
	return rec.Value, nil
}

// Item implements Store.
func (s *DynamoStore) Item(ctx context.Context, itemID int64) (*Item, error) {
	rec, err := s.itemRecord(ctx, itemID)
	if err != nil || rec == nil {
		return nil, err
	}
	return &Item{ID: itemID, Title: rec.Title, Body: rec.Body}, nil
}

// HasFeaturedImage implements Store.
func (s *DynamoStore) HasFeaturedImage(ctx context.Context, itemID int64) (bool, error) {
	id, err := s.FeaturedImageID(ctx, itemID)
	return id != 0, err
}

// FeaturedImageID implements Store.
func (s *DynamoStore) FeaturedImageID(ctx context.Context, itemID int64) (AttachmentID, error) {
	rec, err := s.itemRecord(ctx, itemID)
	if err != nil || rec == nil {
		return 0, err
	}
	return AttachmentID(rec.FeaturedImage), nil
}

// SizedAttachment implements Store.
func (s *DynamoStore) SizedAttachment(ctx context.Context, id AttachmentID, size imagesize.Size) (*SizedImage, error) {
	if id <= 0 {
		return nil, nil
	}
	var a Attachment
	found, err := s.getItem(ctx, attachmentPK(id), skMeta, &a)
	if err != nil {
		return nil, fmt.Errorf("get attachment %d: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	a.ID = id
	return a.Rendition(size), nil
}

// MetaField implements Store.
func (s *DynamoStore) MetaField(ctx context.Context, itemID int64, key string) (string, error) {
	if itemID == 0 || key == "" {
		return "", nil
	}
	v, err := s.field(ctx, itemID, skField+key)
	if err != nil {
		return "", fmt.Errorf("get meta field %d/%s: %w", itemID, key, err)
	}
	return v, nil
}

// PageBuilderField implements Store.
func (s *DynamoStore) PageBuilderField(ctx context.Context, part, key string, itemID int64, area string) (string, error) {
	sk := skPageBuilder + PageBuilderKey(part, area, key)
	v, err := s.field(ctx, itemID, sk)
	if err != nil {
		return "", fmt.Errorf("get page builder field %d/%s: %w", itemID, sk, err)
	}
	return v, nil
}

// AttachmentIDByURL implements Store using the guid GSI.
func (s *DynamoStore) AttachmentIDByURL(ctx context.Context, url string) (AttachmentID, error) {
	if url == "" {
		return 0, nil
	}
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.tableName,
		IndexName:              aws.String(GUIDIndexName),
		KeyConditionExpression: aws.String("guid = :guid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":guid": &types.AttributeValueMemberS{Value: url},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return 0, fmt.Errorf("Query %s guid=%s: %w", GUIDIndexName, url, err)
	}
	for _, item := range result.Items {
		pk, ok := item["PK"].(*types.AttributeValueMemberS)
		if !ok || !strings.HasPrefix(pk.Value, attachmentPrefix) {
			continue
		}
		return ParseAttachmentID(strings.TrimPrefix(pk.Value, attachmentPrefix)), nil
	}
	return 0, nil
}

// Seed writes every item, field, and attachment in fx to the table.
// Existing records with the same keys are replaced.
func (s *DynamoStore) Seed(ctx context.Context, fx *Fixture) error {
	var requests []types.WriteRequest

	add := func(pk, sk string, data interface{}) error {
		item, err := attributevalue.MarshalMap(data)
		if err != nil {
			return fmt.Errorf("marshal PK=%s SK=%s: %w", pk, sk, err)
		}
		item["PK"] = &types.AttributeValueMemberS{Value: pk}
		item["SK"] = &types.AttributeValueMemberS{Value: sk}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		return nil
	}

	for _, it := range fx.Items {
		pk := itemPK(it.ID)
		rec := itemRecord{Title: it.Title, Body: it.Body, FeaturedImage: int64(it.FeaturedImage)}
		if err := add(pk, skMeta, rec); err != nil {
			return err
		}
		for key, value := range it.Meta {
			if err := add(pk, skField+key, fieldRecord{Value: value}); err != nil {
				return err
			}
		}
		for key, value := range it.PageBuilder {
			if err := add(pk, skPageBuilder+key, fieldRecord{Value: value}); err != nil {
				return err
			}
		}
	}
	for _, a := range fx.Attachments {
		if err := add(attachmentPK(a.ID), skMeta, a); err != nil {
			return err
		}
	}

	for i := 0; i < len(requests); i += maxBatchWrite {
		end := i + maxBatchWrite
		if end > len(requests) {
			end = len(requests)
		}
		if err := s.writeBatch(ctx, requests[i:end]); err != nil {
			return err
		}
	}

	log.Info().
		Str("table", s.tableName).
		Int("items", len(fx.Items)).
		Int("attachments", len(fx.Attachments)).
		Int("records", len(requests)).
		Msg("Content table seeded")
	return nil
}

// writeBatch writes one batch, resending unprocessed items with
// exponential backoff until they are all accepted or the attempts run out.
func (s *DynamoStore) writeBatch(ctx context.Context, pending []types.WriteRequest) error {
	delay := batchRetryDelay
	for attempt := 1; ; attempt++ {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.tableName: pending,
			},
		})
		if err != nil {
			return fmt.Errorf("BatchWriteItem put (%d items): %w", len(pending), err)
		}
		pending = out.UnprocessedItems[s.tableName]
		if len(pending) == 0 {
			return nil
		}
		if attempt >= maxBatchAttempts {
			return fmt.Errorf("BatchWriteItem put: %d items still unprocessed after %d attempts", len(pending), attempt)
		}

		log.Warn().
			Str("table", s.tableName).
			Int("unprocessed", len(pending)).
			Int("attempt", attempt).
			Dur("retryIn", delay).
			Msg("Retrying unprocessed batch items")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
