package molecule

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/molgrid/internal/domain/atomtype"
	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// countingLoader returns one carbon per call and counts calls per id.
type countingLoader struct {
	mu    sync.Mutex
	calls map[string]int
	delay time.Duration
	fail  map[string]error
}

func newCountingLoader() *countingLoader {
	return &countingLoader{calls: map[string]int{}, fail: map[string]error{}}
}

func (l *countingLoader) Load(_ context.Context, id string) ([]mtypes.AtomRecord, error) {
	l.mu.Lock()
	l.calls[id]++
	err := l.fail[id]
	l.mu.Unlock()
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if err != nil {
		return nil, err
	}
	return []mtypes.AtomRecord{rec(atomtype.AliphaticCarbonXSHydrophobe, 1, 2, 3)}, nil
}

func (l *countingLoader) count(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[id]
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, key string) (*MolInfo, error) {
	args := m.Called(ctx, key)
	mi, _ := args.Get(0).(*MolInfo)
	return mi, args.Error(1)
}

func (m *mockStore) Set(ctx context.Context, key string, mi *MolInfo) error {
	return m.Called(ctx, key, mi).Error(0)
}

type recordingObserver struct {
	lookups atomic.Int64
	parses  atomic.Int64
}

func (o *recordingObserver) ObserveCacheLookup(string, string) { o.lookups.Add(1) }
func (o *recordingObserver) ObserveParse(string, int, time.Duration, error) {
	o.parses.Add(1)
}

type CacheSuite struct {
	suite.Suite
	loader *countingLoader
	cache  *Cache
	ctx    context.Context
}

func (s *CacheSuite) SetupTest() {
	s.loader = newCountingLoader()
	s.cache = NewCache(newTestBuilder(), s.loader, logging.NewNopLogger())
	s.ctx = context.Background()
}

func (s *CacheSuite) TestRepeatedGetReturnsSamePointer() {
	a, err := s.cache.Get(s.ctx, "rec.gninatypes", Receptor)
	s.Require().NoError(err)
	b, err := s.cache.Get(s.ctx, "rec.gninatypes", Receptor)
	s.Require().NoError(err)

	s.Same(a, b)
	s.Equal(1, s.loader.count("rec.gninatypes"))
	s.EqualValues(1, s.cache.Parses())
}

func (s *CacheSuite) TestRolesAreCachedSeparately() {
	r, err := s.cache.Get(s.ctx, "mol.gninatypes", Receptor)
	s.Require().NoError(err)
	l, err := s.cache.Get(s.ctx, "mol.gninatypes", Ligand)
	s.Require().NoError(err)

	s.NotSame(r, l)
	s.Equal(int16(0), r.Channels[0])
	s.Equal(int16(16), l.Channels[0])
	s.Equal(2, s.cache.Len())
}

func (s *CacheSuite) TestConcurrentGetParsesOnce() {
	s.loader.delay = 20 * time.Millisecond
	const workers = 16
	results := make([]*MolInfo, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := s.cache.Get(s.ctx, "shared.gninatypes", Ligand)
			s.NoError(err)
			results[i] = m
		}(i)
	}
	wg.Wait()

	s.Equal(1, s.loader.count("shared.gninatypes"))
	for _, m := range results {
		s.Same(results[0], m)
	}
}

func (s *CacheSuite) TestFailedLoadCachesNothing() {
	s.loader.fail["bad"] = errors.New(errors.ErrCodeStructureMalformed, "truncated")

	_, err := s.cache.Get(s.ctx, "bad", Receptor)
	s.Require().Error(err)
	s.True(errors.IsParseError(err))
	s.Equal(0, s.cache.Len())

	_, err = s.cache.Get(s.ctx, "bad", Receptor)
	s.Error(err)
	s.Equal(2, s.loader.count("bad"))
}

func (s *CacheSuite) TestSlots() {
	s.Nil(s.cache.Slot(Receptor))

	s.Require().NoError(s.cache.SetReceptor([]mtypes.AtomRecord{rec(atomtype.Nitrogen, 0, 0, 0)}))
	s.Require().NoError(s.cache.SetLigand(
		[]mtypes.AtomRecord{rec(atomtype.Oxygen, 9, 9, 9)},
		[]Vec3{{1, 2, 3}},
	))

	s.Equal(1, s.cache.Slot(Receptor).Len())
	s.Equal(Vec3{1, 2, 3}, s.cache.Slot(Ligand).Center)

	s.Require().NoError(s.cache.SetReceptor(nil))
	s.True(s.cache.Slot(Receptor).Empty(), "slot is replaced, not merged")
	s.Equal(0, s.cache.Len(), "slots do not enter the keyed cache")
}

func (s *CacheSuite) TestSetLigandMismatchKeepsPreviousSlot() {
	s.Require().NoError(s.cache.SetLigand([]mtypes.AtomRecord{rec(atomtype.Oxygen, 0, 0, 0)}, []Vec3{{4, 4, 4}}))
	err := s.cache.SetLigand([]mtypes.AtomRecord{rec(atomtype.Oxygen, 0, 0, 0)}, nil)
	s.Require().Error(err)
	s.True(errors.IsParseError(err))
	s.Equal(Vec3{4, 4, 4}, s.cache.Slot(Ligand).Center)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

// sharedKey is key as stored by a cache over newTestBuilder with no origin.
func sharedKey(key string) string {
	return StoreScope(newTestBuilder().TypeMap().Signature(), "") + ":" + key
}

func TestCache_SharedStoreHitSkipsParse(t *testing.T) {
	store := new(mockStore)
	cached := &MolInfo{Atoms: []Atom{{1, 1, 1, 1.7}}, Channels: []int16{3}}
	store.On("Get", mock.Anything, sharedKey("lig:x")).Return(cached, nil).Once()

	loader := newCountingLoader()
	obs := &recordingObserver{}
	c := NewCache(newTestBuilder(), loader, logging.NewNopLogger(), WithGeometryStore(store), WithCacheObserver(obs))

	m, err := c.Get(context.Background(), "x", Ligand)
	require.NoError(t, err)
	assert.Same(t, cached, m)
	assert.Equal(t, 0, loader.count("x"))
	assert.Zero(t, obs.parses.Load())
	store.AssertExpectations(t)
}

func TestCache_SharedStoreMissParsesAndStores(t *testing.T) {
	store := new(mockStore)
	store.On("Get", mock.Anything, sharedKey("rec:y")).Return(nil, errors.New(errors.ErrCodeCacheMiss, "miss")).Once()
	store.On("Set", mock.Anything, sharedKey("rec:y"), mock.AnythingOfType("*molecule.MolInfo")).Return(nil).Once()

	loader := newCountingLoader()
	c := NewCache(newTestBuilder(), loader, logging.NewNopLogger(), WithGeometryStore(store))

	m, err := c.Get(context.Background(), "y", Receptor)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, loader.count("y"))
	store.AssertExpectations(t)
}

func TestCache_SharedStoreFailureFallsBackToParse(t *testing.T) {
	store := new(mockStore)
	store.On("Get", mock.Anything, sharedKey("rec:z")).Return(nil, stderrors.New("connection refused")).Once()
	store.On("Set", mock.Anything, sharedKey("rec:z"), mock.Anything).Return(stderrors.New("connection refused")).Once()

	c := NewCache(newTestBuilder(), newCountingLoader(), logging.NewNopLogger(), WithGeometryStore(store))
	m, err := c.Get(context.Background(), "z", Receptor)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestCache_NoLoader(t *testing.T) {
	c := NewCache(newTestBuilder(), nil, logging.NewNopLogger())
	_, err := c.Get(context.Background(), "a", Receptor)
	require.Error(t, err)
	assert.True(t, errors.IsParseError(err))
}

func TestCache_SharedKeysScopedByTypeMapAndOrigin(t *testing.T) {
	swapped, err := atomtype.NewTypeMap([]string{"Nitrogen", "AliphaticCarbonXSHydrophobe"}, nil)
	require.NoError(t, err)
	plain, err := atomtype.NewTypeMap([]string{"AliphaticCarbonXSHydrophobe", "Nitrogen"}, nil)
	require.NoError(t, err)

	keys := map[string]string{}
	record := func(label string, b *Builder, opts ...CacheOption) {
		store := new(mockStore)
		store.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New(errors.ErrCodeCacheMiss, "miss")).Once()
		store.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
		c := NewCache(b, newCountingLoader(), logging.NewNopLogger(), append(opts, WithGeometryStore(store))...)
		_, err := c.Get(context.Background(), "r.gninatypes", Receptor)
		require.NoError(t, err)
		keys[label] = store.Calls[0].Arguments.String(1)
		assert.Equal(t, keys[label], store.Calls[1].Arguments.String(1))
	}

	record("plain", NewBuilder(plain), WithStoreOrigin("/data/a"))
	record("plain-again", NewBuilder(plain), WithStoreOrigin("/data/a"))
	record("swapped", NewBuilder(swapped), WithStoreOrigin("/data/a"))
	record("other-root", NewBuilder(plain), WithStoreOrigin("/data/b"))

	assert.Equal(t, keys["plain"], keys["plain-again"])
	assert.NotEqual(t, keys["plain"], keys["swapped"])
	assert.NotEqual(t, keys["plain"], keys["other-root"])
	for _, k := range keys {
		assert.True(t, strings.HasSuffix(k, ":rec:r.gninatypes"), k)
	}
}

//Personal.AI order the ending
