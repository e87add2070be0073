// Package mongostore provides a MongoDB-backed implementation of the
// receipts store for durability across restarts, adapted from
// registry/store/mongo/mongo.go (swap toolset-by-name documents for
// receipt-by-id documents; add a created-at index for List/GetRecent
// ordering).
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/receipts"
)

// Store is a MongoDB implementation of receipts.Store.
type Store struct {
	collection *mongo.Collection
}

var _ receipts.Store = (*Store)(nil)

// New creates a new MongoDB receipts store using the provided collection.
// The collection should be from a connected client.
func New(collection *mongo.Collection) *Store {
	return &Store{collection: collection}
}

// document is the MongoDB representation of a Receipt, keyed by receipt id
// so Create/Update/Get/Delete map directly onto _id lookups. ReceiptID
// duplicates ID into its own field so migration 001 can build a named unique
// index on it independent of the reserved default _id index.
type document struct {
	ID        string         `bson:"_id"`
	ReceiptID string         `bson:"receipt_id"`
	Receipt   *model.Receipt `bson:"receipt"`
}

// migrationsCollection holds the ledger of applied migrations, mirroring the
// name/applied_at shape of a _migrations table.
const migrationsCollection = "_migrations"

// migrationCreateReceipts is the name of the one migration this store
// currently defines: the receipts collection plus its two indexes.
const migrationCreateReceipts = "001_create_receipts"

type migrationRecord struct {
	Name      string    `bson:"_id"`
	AppliedAt time.Time `bson:"applied_at"`
}

// Migrate idempotently creates the receipt_id unique index and the
// created_at descending index, recording completion in a _migrations
// ledger collection so repeated calls (every process start) are cheap and
// safe.
func (s *Store) Migrate(ctx context.Context) error {
	ledger := s.collection.Database().Collection(migrationsCollection)

	var existing migrationRecord
	err := ledger.FindOne(ctx, bson.M{"_id": migrationCreateReceipts}).Decode(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("mongodb check migration ledger: %w", err)
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "receipt_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_receipts_receipt_id"),
		},
		{
			Keys:    bson.D{{Key: "receipt.timestamp_utc", Value: -1}},
			Options: options.Index().SetName("idx_receipts_created_at"),
		},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("mongodb create indexes: %w", err)
	}

	_, err = ledger.InsertOne(ctx, migrationRecord{Name: migrationCreateReceipts, AppliedAt: time.Now().UTC()})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("mongodb record migration: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, r *model.Receipt) error {
	_, err := s.collection.InsertOne(ctx, document{ID: r.ReceiptID, ReceiptID: r.ReceiptID, Receipt: r})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("receipt %q already exists", r.ReceiptID)
		}
		return fmt.Errorf("mongodb create receipt %q: %w", r.ReceiptID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*model.Receipt, error) {
	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, receipts.ErrNotFound
		}
		return nil, fmt.Errorf("mongodb get receipt %q: %w", id, err)
	}
	return doc.Receipt, nil
}

func (s *Store) Update(ctx context.Context, r *model.Receipt) error {
	opts := options.Replace().SetUpsert(false)
	result, err := s.collection.ReplaceOne(ctx, bson.M{"_id": r.ReceiptID}, document{ID: r.ReceiptID, ReceiptID: r.ReceiptID, Receipt: r}, opts)
	if err != nil {
		return fmt.Errorf("mongodb update receipt %q: %w", r.ReceiptID, err)
	}
	if result.MatchedCount == 0 {
		return receipts.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongodb delete receipt %q: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return receipts.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, filter receipts.ListFilter) ([]*model.Receipt, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["receipt.status"] = string(filter.Status)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "receipt.timestamp_utc", Value: -1}})
	if filter.Offset > 0 {
		findOpts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		findOpts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.collection.Find(ctx, query, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongodb list receipts: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb list receipts decode: %w", err)
	}
	out := make([]*model.Receipt, len(docs))
	for i, d := range docs {
		out[i] = d.Receipt
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, status model.ReceiptStatus) (int, error) {
	query := bson.M{}
	if status != "" {
		query["receipt.status"] = string(status)
	}
	n, err := s.collection.CountDocuments(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("mongodb count receipts: %w", err)
	}
	return int(n), nil
}

func (s *Store) GetRecent(ctx context.Context, n int) ([]*model.Receipt, error) {
	return s.List(ctx, receipts.ListFilter{Limit: n})
}

func (s *Store) Close() error { return nil }
