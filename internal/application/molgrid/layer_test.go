package molgrid

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molgrid/internal/domain/atomtype"
	"github.com/turtacn/molgrid/internal/domain/molecule"
	"github.com/turtacn/molgrid/internal/infrastructure/structure"
	"github.com/turtacn/molgrid/internal/intelligence/gridmaker"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

const carbon = int(atomtype.AliphaticCarbonXSHydrophobe)

func carbonAt(x, y, z float32) mtypes.AtomRecord {
	return mtypes.AtomRecord{TypeID: carbon, Coords: mtypes.Vec3{x, y, z}}
}

// fixture lays out a data root with one receptor, three ligands and the
// given list files.
func fixture(t *testing.T, lists map[string]string) string {
	t.Helper()
	root := t.TempDir()
	write := func(name string, recs []mtypes.AtomRecord) {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		f, err := os.Create(p)
		require.NoError(t, err)
		require.NoError(t, structure.EncodeGninatypes(f, recs))
		require.NoError(t, f.Close())
	}
	write("rec/r.gninatypes", []mtypes.AtomRecord{carbonAt(2, 0, 0), carbonAt(-2, 1, 0)})
	write("lig/a.gninatypes", []mtypes.AtomRecord{carbonAt(0, 0, 0), carbonAt(2, 0, 0), carbonAt(0, 3, 0)})
	write("lig/b.gninatypes", []mtypes.AtomRecord{carbonAt(1, 1, 1)})
	write("lig/c.gninatypes", []mtypes.AtomRecord{carbonAt(-1, 0, 1), carbonAt(0, 1, -1)})
	for name, body := range lists {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
	}
	return root
}

const trainList = `1 rec/r.gninatypes lig/a.gninatypes
0 rec/r.gninatypes lig/b.gninatypes
0 rec/r.gninatypes lig/c.gninatypes
`

func smallGrid() gridmaker.Spec {
	return gridmaker.Spec{Resolution: 0.5, Dimension: 8, RadiusMultiple: 1.5}
}

func newLayer(t *testing.T, root string, opts Options, extra ...Option) *Layer {
	t.Helper()
	l, err := NewLayer(context.Background(), opts, append([]Option{WithSource(structure.NewDirSource(root))}, extra...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func buffers(l *Layer) ([]float32, []float32) {
	n := 1
	for _, d := range l.GridShape() {
		n *= d
	}
	return make([]float32, n), make([]float32, l.LabelShape()[0])
}

// voxel indexes example i, channel ch at (x, y, z).
func voxel(l *Layer, i, ch, x, y, z int) int {
	n := l.GridMaker().PointsPerSide()
	per := n * n * n
	stride := l.TypeMap().TotalChannels() * per
	return i*stride + ch*per + (x*n+y)*n + z
}

func TestNewLayer_SetupErrors(t *testing.T) {
	root := fixture(t, map[string]string{
		"train.types":  trainList,
		"bad.types":    "1 only-two\n",
		"decoys.types": "0 rec/r.gninatypes lig/b.gninatypes\n",
	})
	cases := []struct {
		name string
		opts Options
		code errors.ErrorCode
	}{
		{"zero batch", Options{Grid: smallGrid(), Source: "train.types"}, errors.ErrCodeInvalidConfig},
		{"zero resolution", Options{Grid: gridmaker.Spec{Dimension: 8, RadiusMultiple: 1}, BatchSize: 1, Source: "train.types"}, errors.ErrCodeInvalidConfig},
		{"missing list", Options{Grid: smallGrid(), BatchSize: 1, Source: "nope.types"}, errors.ErrCodeListUnreadable},
		{"malformed list", Options{Grid: smallGrid(), BatchSize: 1, Source: "bad.types"}, errors.ErrCodeListMalformed},
		{"no list", Options{Grid: smallGrid(), BatchSize: 1}, errors.ErrCodeInvalidConfig},
		{"unknown type", Options{Grid: smallGrid(), BatchSize: 1, Source: "train.types", LigandTypes: []string{"Unobtainium"}}, errors.ErrCodeUnknownAtomType},
		{"balanced without actives", Options{Grid: smallGrid(), BatchSize: 2, Source: "decoys.types", Balanced: true}, errors.ErrCodeEmptyExampleSet},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewLayer(context.Background(), c.opts, WithSource(structure.NewDirSource(root)))
			require.Error(t, err)
			assert.True(t, errors.IsSetupError(err), "%v", err)
			assert.True(t, errors.IsCode(err, c.code), "%v", err)
		})
	}
}

func TestNewLayer_NoSource(t *testing.T) {
	_, err := NewLayer(context.Background(), Options{Grid: smallGrid(), BatchSize: 1, Source: "train.types"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
}

func TestLayer_Shapes(t *testing.T) {
	root := fixture(t, map[string]string{"train.types": trainList})
	l := newLayer(t, root, Options{Grid: smallGrid(), BatchSize: 4, Source: "train.types"})

	channels := l.TypeMap().TotalChannels()
	assert.Equal(t, []int{4, channels, 17, 17, 17}, l.GridShape())
	assert.Equal(t, []int{4}, l.LabelShape())

	shape := l.Shape()
	assert.Equal(t, 17, shape.PointsPerSide)
	assert.Equal(t, channels, shape.ReceptorChannels+shape.LigandChannels)
	assert.Equal(t, 8.0, shape.Dimension)
}

func TestLayer_ForwardWritesGridsAndLabels(t *testing.T) {
	root := fixture(t, map[string]string{"train.types": trainList})
	l := newLayer(t, root, Options{Grid: smallGrid(), BatchSize: 3, Source: "train.types"})
	grids, labels := buffers(l)
	for i := range grids {
		grids[i] = -1
	}

	require.NoError(t, l.Forward(context.Background(), grids, labels))
	assert.Equal(t, []float32{1, 0, 0}, labels)

	ligCh, ok := l.TypeMap().ChannelOf(atomtype.AliphaticCarbonXSHydrophobe, true)
	require.True(t, ok)
	// Example 1 has a single ligand atom, which is also its centroid.
	assert.Greater(t, grids[voxel(l, 1, ligCh, 8, 8, 8)], float32(0))
	for _, v := range grids {
		assert.GreaterOrEqual(t, v, float32(0), "destination is cleared before rasterization")
	}
}

func TestLayer_ForwardRejectsWrongBuffers(t *testing.T) {
	root := fixture(t, map[string]string{"train.types": trainList})
	l := newLayer(t, root, Options{Grid: smallGrid(), BatchSize: 2, Source: "train.types"})
	grids, labels := buffers(l)

	err := l.Forward(context.Background(), grids[1:], labels)
	assert.True(t, errors.IsGeometryError(err))
	err = l.Forward(context.Background(), grids, labels[:1])
	assert.True(t, errors.IsCode(err, errors.ErrCodeGridBufferSize))
}

func TestLayer_CacheParsesEachStructureOnce(t *testing.T) {
	root := fixture(t, map[string]string{"train.types": trainList})
	l := newLayer(t, root, Options{Grid: smallGrid(), BatchSize: 2, Source: "train.types", Prefetch: true})
	grids, labels := buffers(l)
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Forward(context.Background(), grids, labels))
	}
	assert.EqualValues(t, 4, l.Cache().Parses(), "one receptor and three ligands")
	assert.Equal(t, 4, l.Cache().Len())
}

func TestLayer_BalancedBatchesAlternate(t *testing.T) {
	root := fixture(t, map[string]string{
		"actives.types": "1 rec/r.gninatypes lig/a.gninatypes\n",
		"decoys.types":  "0 rec/r.gninatypes lig/b.gninatypes\n0 rec/r.gninatypes lig/c.gninatypes\n",
	})
	obs := &recordingObserver{}
	l := newLayer(t, root, Options{
		Grid: smallGrid(), BatchSize: 4, Shuffle: true, Seed: 7,
		ActivesSource: "actives.types", DecoysSource: "decoys.types",
	}, WithObserver(obs))
	grids, labels := buffers(l)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Forward(context.Background(), grids, labels))
		assert.Equal(t, []float32{1, 0, 1, 0}, labels)
	}
	require.Len(t, obs.batches(), 3)
	for _, b := range obs.batches() {
		assert.Equal(t, ModeBalanced, b.mode)
		assert.Equal(t, 2, b.actives)
		assert.Equal(t, 2, b.decoys)
		assert.NoError(t, b.err)
	}
	assert.Equal(t, 12, obs.forwards())
}

func TestLayer_PrefetchMatchesSynchronous(t *testing.T) {
	root := fixture(t, map[string]string{"train.types": trainList})
	opts := Options{
		Grid: smallGrid(), BatchSize: 2, Source: "train.types",
		Shuffle: true, Seed: 11, RandomRotate: true, RandomTranslate: 1.5,
	}
	direct := newLayer(t, root, opts)
	opts.Prefetch = true
	pre := newLayer(t, root, opts)

	g1, l1 := buffers(direct)
	g2, l2 := buffers(pre)
	for i := 0; i < 4; i++ {
		require.NoError(t, direct.Forward(context.Background(), g1, l1))
		require.NoError(t, pre.Forward(context.Background(), g2, l2))
		assert.Equal(t, l1, l2, "batch %d", i)
		assert.Equal(t, g1, g2, "batch %d", i)
	}
}

func TestLayer_AcceleratorMatchesHost(t *testing.T) {
	root := fixture(t, map[string]string{"train.types": trainList})
	opts := Options{Grid: smallGrid(), BatchSize: 3, Source: "train.types", Seed: 3, RandomTranslate: 0.5}
	host := newLayer(t, root, opts)
	opts.UseAccelerator = true
	opts.AcceleratorWorkers = 3
	accel := newLayer(t, root, opts)

	g1, l1 := buffers(host)
	g2, l2 := buffers(accel)
	require.NoError(t, host.Forward(context.Background(), g1, l1))
	require.NoError(t, accel.Forward(context.Background(), g2, l2))
	assert.Equal(t, g1, g2)
	assert.Positive(t, accel.GridMaker().AtomBuffer().Capacity())
}

func TestLayer_ResetRotation(t *testing.T) {
	root := fixture(t, map[string]string{"one.types": "1 rec/r.gninatypes lig/a.gninatypes\n"})
	l := newLayer(t, root, Options{
		Grid: smallGrid(), BatchSize: 1, Source: "one.types", NumRotations: 4, Prefetch: true,
	})
	forward := func() []float32 {
		g, lb := buffers(l)
		require.NoError(t, l.Forward(context.Background(), g, lb))
		return g
	}

	first := forward()
	second := forward()
	assert.NotEqual(t, first, second, "consecutive batches use different orientations")

	l.ResetRotation()
	assert.Equal(t, first, forward())
	assert.Equal(t, second, forward())
}

func TestLayer_InMemory(t *testing.T) {
	l, err := NewLayer(context.Background(), Options{Grid: smallGrid(), BatchSize: 2, InMemory: true})
	require.NoError(t, err)
	defer l.Close()
	grids, labels := buffers(l)

	err = l.Forward(context.Background(), grids, labels)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyExampleSet))

	require.NoError(t, l.SetReceptor(nil))
	// Types come from the first list, positions from the second.
	require.NoError(t, l.SetLigand([]mtypes.AtomRecord{carbonAt(5, 5, 5)}, []mtypes.Vec3{{0, 0, 0}}))
	labels[0], labels[1] = 9, 9
	require.NoError(t, l.Forward(context.Background(), grids, labels))

	assert.Equal(t, []float32{0, 0}, labels)
	ligCh, _ := l.TypeMap().ChannelOf(atomtype.AliphaticCarbonXSHydrophobe, true)
	assert.Greater(t, grids[voxel(l, 0, ligCh, 8, 8, 8)], float32(0))
	stride := len(grids) / 2
	for _, v := range grids[stride:] {
		require.Zero(t, v, "only slot 0 is filled")
	}

	err = l.SetLigand([]mtypes.AtomRecord{carbonAt(0, 0, 0)}, nil)
	assert.Error(t, err)
}

func TestLayer_Single(t *testing.T) {
	l, err := NewLayer(context.Background(), Options{Grid: smallGrid(), BatchSize: 1, InMemory: true})
	require.NoError(t, err)
	defer l.Close()

	resp, err := l.Single(context.Background(), &mtypes.GridRequest{
		Receptor: []mtypes.TypedAtom{{Type: "OxygenXSAcceptor", X: 1}},
		Ligand:   []mtypes.TypedAtom{{Type: "AliphaticCarbonXSHydrophobe", X: 2, Y: 2, Z: 2}},
	})
	require.NoError(t, err)
	channels := l.TypeMap().TotalChannels()
	assert.Equal(t, []int{channels, 17, 17, 17}, resp.Shape)
	assert.Len(t, resp.Data, channels*17*17*17)
	assert.Equal(t, mtypes.Vec3{2, 2, 2}, resp.Center)
	assert.NotEmpty(t, resp.BatchID)
	assert.Nil(t, l.Cache().Slot(molecule.Ligand), "slots are untouched")

	_, err = l.Single(context.Background(), &mtypes.GridRequest{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = l.Single(context.Background(), &mtypes.GridRequest{
		Ligand: []mtypes.TypedAtom{{Type: "Kryptonite"}},
	})
	assert.True(t, errors.IsParseError(err))
}

func TestLayer_MissingStructureFailsBatch(t *testing.T) {
	root := fixture(t, map[string]string{"broken.types": "1 rec/r.gninatypes lig/missing.gninatypes\n"})
	for _, prefetch := range []bool{false, true} {
		l := newLayer(t, root, Options{Grid: smallGrid(), BatchSize: 1, Source: "broken.types", Prefetch: prefetch})
		grids, labels := buffers(l)

		err := l.Forward(context.Background(), grids, labels)
		require.Error(t, err)
		assert.True(t, errors.IsParseError(err), "%v", err)
		assert.True(t, strings.Contains(err.Error(), "lig/missing.gninatypes"), "%v", err)

		err = l.Forward(context.Background(), grids, labels)
		assert.Error(t, err, "prefetch=%v", prefetch)
	}
}

func TestLayer_Close(t *testing.T) {
	root := fixture(t, map[string]string{"train.types": trainList})
	l := newLayer(t, root, Options{Grid: smallGrid(), BatchSize: 1, Source: "train.types", Prefetch: true})

	done := make(chan struct{})
	go func() {
		require.NoError(t, l.Close())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not stop the prefetcher")
	}
	require.NoError(t, l.Close())

	grids, labels := buffers(l)
	assert.True(t, errors.IsCode(l.Forward(context.Background(), grids, labels), errors.ErrCodeClosed))
}

type batchRecord struct {
	mode            string
	actives, decoys int
	err             error
}

type recordingObserver struct {
	nopObserver
	mu       sync.Mutex
	recorded []batchRecord
	forward  int
}

func (o *recordingObserver) ObserveBatch(mode string, actives, decoys int, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recorded = append(o.recorded, batchRecord{mode, actives, decoys, err})
}

func (o *recordingObserver) ObserveForward(string, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.forward++
}

func (o *recordingObserver) batches() []batchRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]batchRecord(nil), o.recorded...)
}

func (o *recordingObserver) forwards() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.forward
}

//Personal.AI order the ending
