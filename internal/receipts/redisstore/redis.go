// Package redisstore provides a Redis-backed implementation of the receipts
// store: a JSON blob per receipt id, a sorted set (score = receipt timestamp
// unix-nano) for time-ordered List/GetRecent and the total Count, and a hash
// of receipt id to status for Count-by-status. New to
// this domain, but built on the same github.com/redis/go-redis/v9 client
// already used for Pulse-backed result streams (registry/result_stream.go).
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/receipts"
)

const (
	keyPrefix  = "intentd:receipt:"
	indexKey   = "intentd:receipts:by_time"
	statusHash = "intentd:receipts:status"

	// migrationsKey is a set recording the names of migrations already
	// applied, the Redis equivalent of a _migrations ledger table. Redis has
	// no index DDL; indexKey and statusHash already serve as the
	// by-creation-time and by-status indexes migration 001 would otherwise
	// create explicitly, so applying this migration only needs to record
	// that those structures are in place.
	migrationsKey = "intentd:_migrations"

	migrationCreateReceipts = "001_create_receipts"
)

// Store is a Redis implementation of receipts.Store.
type Store struct {
	client *redis.Client
}

var _ receipts.Store = (*Store)(nil)

// New creates a new Redis receipts store using the provided client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func receiptKey(id string) string { return keyPrefix + id }

func (s *Store) Create(ctx context.Context, r *model.Receipt) error {
	exists, err := s.client.Exists(ctx, receiptKey(r.ReceiptID)).Result()
	if err != nil {
		return fmt.Errorf("redis create receipt %q: %w", r.ReceiptID, err)
	}
	if exists == 1 {
		return fmt.Errorf("receipt %q already exists", r.ReceiptID)
	}
	return s.write(ctx, r)
}

func (s *Store) Update(ctx context.Context, r *model.Receipt) error {
	exists, err := s.client.Exists(ctx, receiptKey(r.ReceiptID)).Result()
	if err != nil {
		return fmt.Errorf("redis update receipt %q: %w", r.ReceiptID, err)
	}
	if exists == 0 {
		return receipts.ErrNotFound
	}
	return s.write(ctx, r)
}

func (s *Store) write(ctx context.Context, r *model.Receipt) error {
	blob, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis marshal receipt %q: %w", r.ReceiptID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, receiptKey(r.ReceiptID), blob, 0)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(r.TimestampUTC.UnixNano()), Member: r.ReceiptID})
	pipe.HSet(ctx, statusHash, r.ReceiptID, string(r.Status))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis write receipt %q: %w", r.ReceiptID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*model.Receipt, error) {
	blob, err := s.client.Get(ctx, receiptKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, receipts.ErrNotFound
		}
		return nil, fmt.Errorf("redis get receipt %q: %w", id, err)
	}
	var r model.Receipt
	if err := json.Unmarshal(blob, &r); err != nil {
		return nil, fmt.Errorf("redis unmarshal receipt %q: %w", id, err)
	}
	return &r, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, receiptKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis delete receipt %q: %w", id, err)
	}
	if removed == 0 {
		return receipts.ErrNotFound
	}
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, indexKey, id)
	pipe.HDel(ctx, statusHash, id)
	_, _ = pipe.Exec(ctx)
	return nil
}

func (s *Store) List(ctx context.Context, filter receipts.ListFilter) ([]*model.Receipt, error) {
	ids, err := s.client.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list receipts: %w", err)
	}

	out := make([]*model.Receipt, 0, len(ids))
	for _, id := range ids {
		r, err := s.Get(ctx, id)
		if errors.Is(err, receipts.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}

	if filter.Offset >= len(out) {
		return []*model.Receipt{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, status model.ReceiptStatus) (int, error) {
	if status == "" {
		n, err := s.client.ZCard(ctx, indexKey).Result()
		if err != nil {
			return 0, fmt.Errorf("redis count receipts: %w", err)
		}
		return int(n), nil
	}
	statuses, err := s.client.HGetAll(ctx, statusHash).Result()
	if err != nil {
		return 0, fmt.Errorf("redis count receipts by status: %w", err)
	}
	n := 0
	for _, v := range statuses {
		if v == string(status) {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetRecent(ctx context.Context, n int) ([]*model.Receipt, error) {
	return s.List(ctx, receipts.ListFilter{Limit: n})
}

// Migrate idempotently records migration 001 in the ledger set. SADD is
// naturally idempotent, so this is safe to call on every process start; the
// by-time and by-status structures it would otherwise have to create are
// already established on first write via write's TxPipeline.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.client.SAdd(ctx, migrationsKey, migrationCreateReceipts).Result(); err != nil {
		return fmt.Errorf("redis record migration: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }
