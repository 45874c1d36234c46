package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/molgrid/internal/domain/molecule"
	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/pkg/errors"
)

// DefaultKeyPrefix namespaces geometry entries.
const DefaultKeyPrefix = "molgrid:geom:"

// Serializer encodes cached geometry.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type jsonSerializer struct{}

func (jsonSerializer) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonSerializer) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// GeometryStore shares built MolInfo between processes through Redis. It
// implements molecule.GeometryStore.
type GeometryStore struct {
	client     *Client
	logger     logging.Logger
	prefix     string
	ttl        time.Duration
	serializer Serializer
}

type StoreOption func(*GeometryStore)

func WithPrefix(prefix string) StoreOption {
	return func(s *GeometryStore) { s.prefix = prefix }
}

// WithTTL sets the entry lifetime. Zero keeps entries until evicted by Redis.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *GeometryStore) { s.ttl = ttl }
}

func WithSerializer(ser Serializer) StoreOption {
	return func(s *GeometryStore) { s.serializer = ser }
}

func NewGeometryStore(client *Client, log logging.Logger, opts ...StoreOption) *GeometryStore {
	s := &GeometryStore{
		client:     client,
		logger:     log,
		prefix:     DefaultKeyPrefix,
		serializer: jsonSerializer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ molecule.GeometryStore = (*GeometryStore)(nil)

func (s *GeometryStore) fullKey(key string) string {
	return s.prefix + key
}

// jitterTTL spreads expiry by +/- 10% so entries written together do not all
// expire together.
func (s *GeometryStore) jitterTTL() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitter := float64(s.ttl) * 0.1 * (rand.Float64()*2 - 1)
	return s.ttl + time.Duration(jitter)
}

// Get returns the stored MolInfo. A missing key yields ErrCodeCacheMiss.
func (s *GeometryStore) Get(ctx context.Context, key string) (*molecule.MolInfo, error) {
	data, err := s.client.Get(ctx, s.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, errors.New(errors.ErrCodeCacheMiss, "geometry not cached").WithDetail(key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "redis get").WithDetail(key)
	}
	var m molecule.MolInfo
	if err := s.serializer.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode cached geometry").WithDetail(key)
	}
	if len(m.Atoms) != len(m.Channels) {
		return nil, errors.New(errors.ErrCodeSerialization, "cached geometry is inconsistent").
			WithDetailf("%s: %d atoms, %d channels", key, len(m.Atoms), len(m.Channels))
	}
	return &m, nil
}

// Set stores m under key.
func (s *GeometryStore) Set(ctx context.Context, key string, m *molecule.MolInfo) error {
	if m == nil {
		return errors.InvalidParam("nil geometry").WithDetail(key)
	}
	data, err := s.serializer.Marshal(m)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode geometry").WithDetail(key)
	}
	if err := s.client.Set(ctx, s.fullKey(key), data, s.jitterTTL()).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis set").WithDetail(key)
	}
	s.logger.Debug("geometry stored", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

// Delete removes the given keys.
func (s *GeometryStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.fullKey(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis del")
	}
	return nil
}

//Personal.AI order the ending
