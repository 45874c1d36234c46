package molgrid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/molgrid/internal/domain/atomtype"
	"github.com/turtacn/molgrid/internal/domain/example"
	"github.com/turtacn/molgrid/internal/domain/molecule"
	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/internal/infrastructure/structure"
	"github.com/turtacn/molgrid/internal/intelligence/augment"
	"github.com/turtacn/molgrid/internal/intelligence/gridmaker"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// Layer is the batch assembler. Forward must not be called concurrently;
// Single and the in-memory setters may be.
type Layer struct {
	opts Options

	source   structure.Source
	loader   molecule.StructureLoader
	store    molecule.GeometryStore
	observer Observer
	logger   logging.Logger

	types  *atomtype.TypeMap
	grid   *gridmaker.GridMaker
	policy *augment.Policy
	cache  *molecule.Cache
	stream *example.Stream

	// mu serializes Forward and guards the synchronous producer path.
	mu       sync.Mutex
	prefetch *prefetcher
	closed   bool

	lastAllocs int
}

// NewLayer validates opts, reads the example lists and starts the prefetcher
// when enabled. Every failure here is a setup error.
func NewLayer(ctx context.Context, opts Options, options ...Option) (*Layer, error) {
	l := &Layer{
		opts:     opts,
		observer: nopObserver{},
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range options {
		opt(l)
	}
	l.logger = l.logger.Named("molgrid")

	if opts.BatchSize < 1 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "batch size must be positive").
			WithDetailf("batch_size=%d", opts.BatchSize)
	}

	types, err := typeMap(opts.ReceptorTypes, opts.LigandTypes)
	if err != nil {
		return nil, err
	}
	l.types = types

	gopts := []gridmaker.Option{gridmaker.WithLogger(l.logger)}
	if opts.UseAccelerator {
		gopts = append(gopts, gridmaker.WithAccelerator(opts.AcceleratorWorkers, opts.AcceleratorMemoryLimit))
	}
	if l.grid, err = gridmaker.New(opts.Grid, gopts...); err != nil {
		return nil, err
	}

	l.policy, err = augment.NewPolicy(augment.Config{
		RandomRotate:    opts.RandomRotate,
		RandomTranslate: opts.RandomTranslate,
		NumRotations:    opts.NumRotations,
		Seed:            opts.Seed,
	})
	if err != nil {
		return nil, err
	}

	if l.loader == nil && l.source != nil {
		l.loader = structure.NewLoader(l.source, l.logger.Named("structure"))
	}
	copts := []molecule.CacheOption{molecule.WithCacheObserver(l.observer)}
	if l.store != nil {
		copts = append(copts, molecule.WithGeometryStore(l.store))
		if l.source != nil {
			copts = append(copts, molecule.WithStoreOrigin(l.source.Describe()))
		}
	}
	l.cache = molecule.NewCache(molecule.NewBuilder(types), l.loader, l.logger.Named("cache"), copts...)

	if !opts.InMemory {
		if l.stream, err = l.openStream(ctx); err != nil {
			return nil, err
		}
		if opts.Prefetch {
			l.prefetch = startPrefetcher(l.prepare, l.observer)
		}
	}

	l.logger.Info("molgrid layer ready",
		logging.Int("batch_size", opts.BatchSize),
		logging.Int("channels", types.TotalChannels()),
		logging.Int("points_per_side", l.grid.PointsPerSide()),
		logging.String("mode", l.mode()),
		logging.Bool("prefetch", l.prefetch != nil),
		logging.Bool("accelerator", opts.UseAccelerator),
	)
	return l, nil
}

func typeMap(rec, lig []string) (*atomtype.TypeMap, error) {
	if len(rec) == 0 {
		rec = atomtype.DefaultReceptorTypes
	}
	if len(lig) == 0 {
		lig = atomtype.DefaultLigandTypes
	}
	return atomtype.NewTypeMap(rec, lig)
}

func (l *Layer) openStream(ctx context.Context) (*example.Stream, error) {
	if l.source == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no structure source configured")
	}
	sopts := example.Options{Balanced: l.opts.Balanced, Shuffle: l.opts.Shuffle, Seed: l.opts.Seed}
	if l.opts.ActivesSource != "" && l.opts.DecoysSource != "" {
		actives, err := l.readList(ctx, l.opts.ActivesSource)
		if err != nil {
			return nil, err
		}
		decoys, err := l.readList(ctx, l.opts.DecoysSource)
		if err != nil {
			return nil, err
		}
		return example.NewBalancedStream(actives, decoys, sopts)
	}
	if l.opts.Source == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no example list configured")
	}
	all, err := l.readList(ctx, l.opts.Source)
	if err != nil {
		return nil, err
	}
	return example.NewStream(all, sopts)
}

func (l *Layer) readList(ctx context.Context, name string) ([]example.Example, error) {
	rc, err := l.source.Open(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeListUnreadable, "example list unreadable").
			WithDetailf("%s in %s", name, l.source.Describe())
	}
	defer rc.Close()
	list, err := example.ParseList(rc, name)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("example list loaded", logging.String("list", name), logging.Int("examples", len(list)))
	return list, nil
}

func (l *Layer) mode() string {
	switch {
	case l.opts.InMemory:
		return ModeInMemory
	case l.stream != nil && l.stream.Balanced():
		return ModeBalanced
	default:
		return ModeFile
	}
}

func (l *Layer) backend() string {
	if l.opts.UseAccelerator {
		return gridmaker.BackendAccelerator
	}
	return gridmaker.BackendHost
}

// GridShape returns (batch, channels, n, n, n).
func (l *Layer) GridShape() []int {
	n := l.grid.PointsPerSide()
	return []int{l.opts.BatchSize, l.types.TotalChannels(), n, n, n}
}

// LabelShape returns (batch).
func (l *Layer) LabelShape() []int { return []int{l.opts.BatchSize} }

// Shape reports the output geometry.
func (l *Layer) Shape() *mtypes.ShapeResponse {
	spec := l.grid.Spec()
	return &mtypes.ShapeResponse{
		GridShape:        l.GridShape(),
		LabelShape:       l.LabelShape(),
		ReceptorChannels: l.types.ReceptorChannels(),
		LigandChannels:   l.types.LigandChannels(),
		PointsPerSide:    l.grid.PointsPerSide(),
		Resolution:       spec.Resolution,
		Dimension:        spec.Dimension,
	}
}

// TypeMap returns the channel assignment.
func (l *Layer) TypeMap() *atomtype.TypeMap { return l.types }

// Cache returns the structure cache.
func (l *Layer) Cache() *molecule.Cache { return l.cache }

// GridMaker returns the rasterizer.
func (l *Layer) GridMaker() *gridmaker.GridMaker { return l.grid }

// SetReceptor replaces the in-memory receptor.
func (l *Layer) SetReceptor(atoms []mtypes.AtomRecord) error {
	return l.cache.SetReceptor(atoms)
}

// SetLigand replaces the in-memory ligand. atoms supplies the types and
// coords the positions.
func (l *Layer) SetLigand(atoms []mtypes.AtomRecord, coords []mtypes.Vec3) error {
	return l.cache.SetLigand(atoms, coords)
}

// ResetRotation rewinds the enumerated rotation cursor.
func (l *Layer) ResetRotation() { l.policy.ResetRotation() }

// Forward clears grids and labels and fills them with the next batch.
func (l *Layer) Forward(ctx context.Context, grids, labels []float32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New(errors.ErrCodeClosed, "molgrid layer closed")
	}

	stride := l.types.TotalChannels() * l.grid.VoxelsPerChannel()
	if len(grids) != l.opts.BatchSize*stride || len(labels) != l.opts.BatchSize {
		return errors.New(errors.ErrCodeGridBufferSize, "destination buffers have wrong size").
			WithDetailf("grids %d want %d, labels %d want %d",
				len(grids), l.opts.BatchSize*stride, len(labels), l.opts.BatchSize)
	}
	clear(grids)
	clear(labels)

	start := time.Now()
	b, err := l.next(ctx)
	if err == nil {
		err = b.err
	}
	if err != nil {
		l.observer.ObserveBatch(l.mode(), 0, 0, time.Since(start), err)
		return err
	}

	ctx = logging.ContextWithBatchID(ctx, b.id)
	rotation := l.policy.CurrentQuaternion()
	for i, it := range b.items {
		if it.mol == nil {
			continue
		}
		rot := it.draw.Rotation
		if l.policy.Enumerated() {
			rot = rotation
		}
		center := it.mol.Center.Add(it.draw.Translation)
		fstart := time.Now()
		if err := l.grid.Forward(ctx, center, it.mol, rot, l.types.TotalChannels(),
			grids[i*stride:(i+1)*stride], l.opts.UseAccelerator); err != nil {
			err = errors.Wrap(err, errors.CodeUnknown, fmt.Sprintf("rasterize example %d", i))
			l.observer.ObserveBatch(l.mode(), b.actives, b.decoys, time.Since(start), err)
			return err
		}
		l.observer.ObserveForward(l.backend(), time.Since(fstart))
		labels[i] = it.label
	}
	l.policy.Advance()

	if buf := l.grid.AtomBuffer(); buf != nil {
		allocs := buf.Allocations()
		l.observer.ObserveAtomBuffer(buf.Capacity(), allocs-l.lastAllocs)
		l.lastAllocs = allocs
	}
	elapsed := time.Since(start)
	l.observer.ObserveBatch(l.mode(), b.actives, b.decoys, elapsed, nil)
	l.logger.WithContext(ctx).Debug("batch assembled",
		logging.Int("examples", len(b.items)),
		logging.Int("actives", b.actives),
		logging.Int("decoys", b.decoys),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

func (l *Layer) next(ctx context.Context) (*batch, error) {
	if l.opts.InMemory {
		return l.inMemoryBatch()
	}
	if l.prefetch != nil {
		return l.prefetch.next(ctx)
	}
	return l.prepare(ctx), nil
}

func (l *Layer) inMemoryBatch() (*batch, error) {
	rec, lig := l.cache.Slot(molecule.Receptor), l.cache.Slot(molecule.Ligand)
	if rec == nil && lig == nil {
		return nil, errors.New(errors.ErrCodeEmptyExampleSet, "in-memory mode without a receptor or ligand")
	}
	b := &batch{id: uuid.NewString(), items: make([]item, l.opts.BatchSize)}
	b.items[0] = item{mol: rec.Append(lig), draw: l.policy.Draw()}
	return b, nil
}

// Single rasterizes req into a fresh one-example buffer. It uses the same
// augmentation policy as Forward but leaves the rotation cursor alone.
func (l *Layer) Single(ctx context.Context, req *mtypes.GridRequest) (*mtypes.GridResponse, error) {
	if req == nil || len(req.Ligand) == 0 {
		return nil, errors.InvalidParam("grid request needs at least one ligand atom")
	}
	builder := molecule.NewBuilder(l.types)
	rec, err := builder.BuildTyped(req.Receptor, false)
	if err != nil {
		return nil, err
	}
	lig, err := builder.BuildTyped(req.Ligand, true)
	if err != nil {
		return nil, err
	}
	mol := rec.Append(lig)

	draw := l.policy.Draw()
	rot := draw.Rotation
	if l.policy.Enumerated() {
		rot = l.policy.CurrentQuaternion()
	}
	n := l.grid.PointsPerSide()
	channels := l.types.TotalChannels()
	out := make([]float32, channels*l.grid.VoxelsPerChannel())
	center := mol.Center.Add(draw.Translation)

	id := uuid.NewString()
	ctx = logging.ContextWithBatchID(ctx, id)
	start := time.Now()
	if err := l.grid.Forward(ctx, center, mol, rot, channels, out, l.opts.UseAccelerator); err != nil {
		return nil, err
	}
	l.observer.ObserveForward(l.backend(), time.Since(start))
	return &mtypes.GridResponse{
		BatchID: id,
		Shape:   []int{channels, n, n, n},
		Center:  center,
		Data:    out,
	}, nil
}

// Close stops the prefetcher. It is idempotent.
func (l *Layer) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.prefetch != nil {
		l.prefetch.stop()
	}
	l.logger.Info("molgrid layer closed")
	return nil
}

var _ Service = (*Layer)(nil)

//Personal.AI order the ending
