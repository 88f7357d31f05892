// Package redisstore keeps audit envelopes in Redis: one JSON string per
// envelope plus sorted-set indexes ordered by an insertion counter.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/sentinel"
)

const defaultPrefix = "audit:"

// Store implements audit.Store on go-redis.
type Store struct {
	client redis.UniversalClient
	prefix string
	clock  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key the store touches.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New builds a store. The client lifecycle is managed by the caller.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) envelopeKey(id string) string { return s.prefix + "env:" + id }
func (s *Store) seqKey() string               { return s.prefix + "seq" }
func (s *Store) indexKey() string             { return s.prefix + "index" }
func (s *Store) typeIndexKey(t string) string { return s.prefix + "index:" + t }

// Create writes the envelope and its index entries in one MULTI/EXEC.
func (s *Store) Create(ctx context.Context, envelope *audit.Envelope) (*audit.Envelope, error) {
	stored := *envelope
	stored.ID = uuid.NewString()
	now := s.clock().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	payload, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("marshal audit log: %w", err)
	}

	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate audit sequence: %w", err)
	}

	member := redis.Z{Score: float64(seq), Member: stored.ID}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.envelopeKey(stored.ID), payload, 0)
		pipe.ZAdd(ctx, s.indexKey(), member)
		pipe.ZAdd(ctx, s.typeIndexKey(stored.EntityType), member)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("write audit log: %w", err)
	}
	return &stored, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*audit.Envelope, error) {
	data, err := s.client.Get(ctx, s.envelopeKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audit log: %w", err)
	}
	var env audit.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode audit log: %w", err)
	}
	return &env, nil
}

// List returns one page, most recent first.
func (s *Store) List(ctx context.Context, page audit.Page) (*audit.PageResult, error) {
	page = page.Normalize()
	index := s.indexKey()
	if page.EntityType != "" {
		index = s.typeIndexKey(page.EntityType)
	}

	total, err := s.client.ZCard(ctx, index).Result()
	if err != nil {
		return nil, fmt.Errorf("count audit logs: %w", err)
	}
	result := &audit.PageResult{
		Items:  []*audit.Envelope{},
		Number: page.Number,
		Size:   page.Size,
		Total:  int(total),
	}

	start := int64(page.Offset())
	if start >= total {
		return result, nil
	}
	ids, err := s.client.ZRevRange(ctx, index, start, start+int64(page.Size)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("range audit logs: %w", err)
	}
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.envelopeKey(id)
	}
	payloads, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load audit logs: %w", err)
	}
	for i, raw := range payloads {
		data, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("load audit log %s: missing payload", ids[i])
		}
		var env audit.Envelope
		if err := json.Unmarshal([]byte(data), &env); err != nil {
			return nil, fmt.Errorf("decode audit log %s: %w", ids[i], err)
		}
		result.Items = append(result.Items, &env)
	}
	return result, nil
}
