package molecule

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// Cache lookup tiers and results reported to the CacheObserver.
const (
	TierLocal  = "local"
	TierShared = "shared"

	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Cache maps structure identifiers to MolInfo for the lifetime of the
// process. Entries are never evicted or invalidated. Concurrent misses on the
// same key are collapsed so each structure is loaded and built at most once,
// and every caller receives the same *MolInfo.
//
// Cache also owns the two in-memory slots written by SetReceptor/SetLigand.
type Cache struct {
	builder  *Builder
	loader   StructureLoader
	store    GeometryStore
	origin   string
	scope    string
	observer CacheObserver
	logger   logging.Logger

	mu      sync.RWMutex
	entries map[string]*MolInfo
	group   singleflight.Group
	parses  atomic.Int64

	slotMu sync.RWMutex
	slots  [2]*MolInfo
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithGeometryStore adds a shared tier consulted before parsing.
func WithGeometryStore(s GeometryStore) CacheOption {
	return func(c *Cache) { c.store = s }
}

// WithStoreOrigin names where structure ids resolve, e.g. the absolute data
// root. Shared-tier keys are scoped by it together with the channel
// assignment, so processes only share geometry built from the same files
// under the same TypeMap.
func WithStoreOrigin(origin string) CacheOption {
	return func(c *Cache) { c.origin = origin }
}

// WithCacheObserver installs an observer for lookups and parses.
func WithCacheObserver(o CacheObserver) CacheOption {
	return func(c *Cache) {
		if o != nil {
			c.observer = o
		}
	}
}

// NewCache returns an empty Cache. loader may be nil when only the in-memory
// slots are used.
func NewCache(builder *Builder, loader StructureLoader, logger logging.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		builder:  builder,
		loader:   loader,
		observer: nopObserver{},
		logger:   logger,
		entries:  make(map[string]*MolInfo),
	}
	for _, opt := range opts {
		opt(c)
	}
	if builder != nil {
		c.scope = StoreScope(builder.TypeMap().Signature(), c.origin)
	}
	return c
}

// StoreScope hashes a channel assignment signature and a structure origin
// into the namespace used for shared-tier keys.
func StoreScope(signature, origin string) string {
	d := xxhash.New()
	_, _ = d.WriteString(signature)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(origin)
	return strconv.FormatUint(d.Sum64(), 16)
}

func (c *Cache) storeKey(key string) string {
	if c.scope == "" {
		return key
	}
	return c.scope + ":" + key
}

// Get returns the MolInfo of structure id in role, loading it on first use.
// A failed load caches nothing.
func (c *Cache) Get(ctx context.Context, id string, role Role) (*MolInfo, error) {
	key := role.Key(id)
	if m, ok := c.lookup(key); ok {
		c.observer.ObserveCacheLookup(TierLocal, ResultHit)
		return m, nil
	}
	c.observer.ObserveCacheLookup(TierLocal, ResultMiss)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if m, ok := c.lookup(key); ok {
			return m, nil
		}
		m, err := c.fetch(ctx, id, role, key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*MolInfo), nil
}

func (c *Cache) lookup(key string) (*MolInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.entries[key]
	return m, ok
}

func (c *Cache) fetch(ctx context.Context, id string, role Role, key string) (*MolInfo, error) {
	if c.store != nil {
		m, err := c.store.Get(ctx, c.storeKey(key))
		switch {
		case err == nil:
			c.observer.ObserveCacheLookup(TierShared, ResultHit)
			return m, nil
		case errors.IsNotFound(err):
			c.observer.ObserveCacheLookup(TierShared, ResultMiss)
		default:
			c.logger.Warn("shared geometry lookup failed", logging.String("key", key), logging.Err(err))
		}
	}

	if c.loader == nil {
		return nil, errors.New(errors.ErrCodeStructureUnreadable, "no structure loader configured").WithDetail(id)
	}
	start := time.Now()
	records, err := c.loader.Load(ctx, id)
	if err != nil {
		c.observer.ObserveParse(role.String(), 0, time.Since(start), err)
		return nil, err
	}
	m, err := c.builder.Build(records, role.IsLigand())
	c.observer.ObserveParse(role.String(), m.Len(), time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "build "+id)
	}
	c.parses.Add(1)
	c.logger.Debug("structure parsed",
		logging.String("id", id),
		logging.String("role", role.String()),
		logging.Int("atoms", m.Len()),
		logging.Int("records", len(records)),
	)

	if c.store != nil {
		if err := c.store.Set(ctx, c.storeKey(key), m); err != nil {
			c.logger.Warn("shared geometry store failed", logging.String("key", key), logging.Err(err))
		}
	}
	return m, nil
}

// Len returns the number of cached structures.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Parses returns how many structures this process has built from source.
func (c *Cache) Parses() int64 { return c.parses.Load() }

// ─────────────────────────────────────────────────────────────────────────────
// In-memory slots
// ─────────────────────────────────────────────────────────────────────────────

// SetReceptor builds the receptor slot from atoms, replacing any previous one.
func (c *Cache) SetReceptor(atoms []mtypes.AtomRecord) error {
	m, err := c.builder.Build(atoms, false)
	if err != nil {
		return err
	}
	c.setSlot(Receptor, m)
	return nil
}

// SetLigand builds the ligand slot from atoms typed by atoms and placed at
// coords, replacing any previous one.
func (c *Cache) SetLigand(atoms []mtypes.AtomRecord, coords []Vec3) error {
	m, err := c.builder.BuildWithCoords(atoms, coords, true)
	if err != nil {
		return err
	}
	c.setSlot(Ligand, m)
	return nil
}

func (c *Cache) setSlot(role Role, m *MolInfo) {
	c.slotMu.Lock()
	c.slots[role] = m
	c.slotMu.Unlock()
}

// Slot returns the current in-memory MolInfo of role, or nil.
func (c *Cache) Slot(role Role) *MolInfo {
	c.slotMu.RLock()
	defer c.slotMu.RUnlock()
	return c.slots[role]
}

//Personal.AI order the ending
