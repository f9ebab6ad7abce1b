// Package redis stores entities as JSON strings in Redis with one sorted
// set per kind recording insertion order.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/digigm/internal/config"
	"github.com/cory-johannsen/digigm/internal/storage"
)

const maxUpdateRetries = 8

// Store implements storage.Store on a go-redis client.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// NewStore wraps client. Every key is namespaced under prefix.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Open connects to the server described by cfg and pings it.
//
// Postcondition: returns a ready Store or a non-nil error.
func Open(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}
	return NewStore(client, cfg.KeyPrefix), nil
}

func (s *Store) docKey(kind storage.Kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, kind, id)
}

func (s *Store) indexKey(kind storage.Kind) string {
	return fmt.Sprintf("%s:%s:index", s.prefix, kind)
}

func (s *Store) seqKey() string {
	return s.prefix + ":seq"
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, kind storage.Kind, id string) (json.RawMessage, error) {
	data, err := s.client.Get(ctx, s.docKey(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s %q: %w", kind, id, err)
	}
	return data, nil
}

// List implements storage.Store.
func (s *Store) List(ctx context.Context, kind storage.Kind, filter map[string]any) ([]json.RawMessage, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(kind), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing %s index: %w", kind, err)
	}
	out := []json.RawMessage{}
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(kind, id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", kind, err)
	}
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			// Deleted between ZRANGE and MGET.
			continue
		}
		doc := json.RawMessage(str)
		match, err := storage.Matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if match {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Insert implements storage.Store.
func (s *Store) Insert(ctx context.Context, kind storage.Kind, id string, doc json.RawMessage) error {
	ok, err := s.client.SetNX(ctx, s.docKey(kind, id), []byte(doc), 0).Result()
	if err != nil {
		return fmt.Errorf("inserting %s %q: %w", kind, id, err)
	}
	if !ok {
		return storage.ErrExists
	}
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("sequencing %s %q: %w", kind, id, err)
	}
	if err := s.client.ZAdd(ctx, s.indexKey(kind), redis.Z{Score: float64(seq), Member: id}).Err(); err != nil {
		return fmt.Errorf("indexing %s %q: %w", kind, id, err)
	}
	return nil
}

// Update implements storage.Store. The read-merge-write runs under WATCH
// and is retried when another writer touches the key.
func (s *Store) Update(ctx context.Context, kind storage.Kind, id string, patch map[string]any) (json.RawMessage, error) {
	key := s.docKey(kind, id)
	var merged json.RawMessage
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		merged, err = storage.Merge(data, patch)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, []byte(merged), 0)
			return nil
		})
		return err
	}
	for range maxUpdateRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("updating %s %q: %w", kind, id, err)
		}
		return merged, nil
	}
	return nil, fmt.Errorf("updating %s %q: too many concurrent writers", kind, id)
}

// Delete implements storage.Store.
func (s *Store) Delete(ctx context.Context, kind storage.Kind, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.docKey(kind, id))
		pipe.ZRem(ctx, s.indexKey(kind), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting %s %q: %w", kind, id, err)
	}
	if del.Val() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
