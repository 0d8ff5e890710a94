package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aretw0/evalrepl/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the adapter.
const DefaultPrefix = "evalrepl:"

// Store implements ports.HistoryStore using Redis.
//
// Each session is a list of JSON records under <prefix>history:<session>.
// A sorted set <prefix>index tracks sessions; with a TTL its scores are
// expiry times and expired members are pruned lazily on Sessions.
type Store struct {
	client     *backend.Client
	prefix     string
	ttl        time.Duration
	maxRecords int64
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix. Defaults to DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires a session's history after ttl without new records.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithMaxRecords keeps only the newest n records per session.
func WithMaxRecords(n int) Option {
	return func(s *Store) {
		s.maxRecords = int64(n)
	}
}

// New connects to the Redis server described by url
// (redis://[user:password@]host:port/db).
func New(url string, opts ...Option) (*Store, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(o), opts...), nil
}

// NewFromClient creates a store on an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the underlying client, for sharing it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) key(sessionID string) string {
	return s.prefix + "history:" + sessionID
}

func (s *Store) index() string {
	return s.prefix + "index"
}

// Append pushes rec to the session list and refreshes the index.
func (s *Store) Append(ctx context.Context, rec *domain.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := s.key(rec.SessionID)
	score := float64(time.Now().Add(s.ttl).Unix())

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if s.maxRecords > 0 {
			pipe.LTrim(ctx, key, -s.maxRecords, -1)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		pipe.ZAdd(ctx, s.index(), backend.Z{Score: score, Member: rec.SessionID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}

// List returns the session's records, oldest first.
func (s *Store) List(ctx context.Context, sessionID string) ([]*domain.Record, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	records := make([]*domain.Record, 0, len(raw))
	for _, item := range raw {
		var rec domain.Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, nil
}

// Get scans the session's records for recordID.
func (s *Store) Get(ctx context.Context, sessionID, recordID string) (*domain.Record, error) {
	records, err := s.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ID == recordID {
			return rec, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

// Delete removes the session's history and its index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.key(sessionID))
		pipe.ZRem(ctx, s.index(), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// Sessions lists indexed sessions, pruning expired ones first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	if s.ttl > 0 {
		now := strconv.FormatInt(time.Now().Unix(), 10)
		if err := s.client.ZRemRangeByScore(ctx, s.index(), "-inf", "("+now).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune index: %w", err)
		}
	}

	sessions, err := s.client.ZRange(ctx, s.index(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Strings(sessions)
	return sessions, nil
}
