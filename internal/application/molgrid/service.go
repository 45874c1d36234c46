// Package molgrid assembles batches of voxel grids from example lists or from
// an injected receptor/ligand pair. It is the entry point used by the CLI and
// the HTTP interface.
package molgrid

import (
	"context"
	"time"

	"github.com/turtacn/molgrid/internal/domain/molecule"
	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/internal/infrastructure/structure"
	"github.com/turtacn/molgrid/internal/intelligence/gridmaker"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// Service defines the batch assembly operations.
type Service interface {
	// GridShape is (batch, channels, n, n, n).
	GridShape() []int
	// LabelShape is (batch).
	LabelShape() []int
	// Forward writes exactly one batch of grids and labels into the caller's
	// buffers.
	Forward(ctx context.Context, grids, labels []float32) error
	SetReceptor(atoms []mtypes.AtomRecord) error
	SetLigand(atoms []mtypes.AtomRecord, coords []mtypes.Vec3) error
	ResetRotation()
	// Single rasterizes one pair without touching the batch stream or the
	// in-memory slots.
	Single(ctx context.Context, req *mtypes.GridRequest) (*mtypes.GridResponse, error)
	Shape() *mtypes.ShapeResponse
	Close() error
}

// Options is the setup block of the layer.
type Options struct {
	Grid            gridmaker.Spec
	RandomTranslate float64
	RandomRotate    bool
	NumRotations    uint
	Seed            int64

	UseAccelerator         bool
	AcceleratorWorkers     int
	AcceleratorMemoryLimit int64

	BatchSize int
	// Source is a single example list. ActivesSource and DecoysSource, when
	// both set, replace it and imply balanced sampling.
	Source        string
	ActivesSource string
	DecoysSource  string
	Balanced      bool
	Shuffle       bool
	InMemory      bool
	Prefetch      bool

	// ReceptorTypes and LigandTypes select channels by atom type name. An
	// empty list selects the default set for that role.
	ReceptorTypes []string
	LigandTypes   []string
}

// Observer receives batch level measurements. GridMetrics implements it.
type Observer interface {
	molecule.CacheObserver
	ObserveBatch(mode string, actives, decoys int, elapsed time.Duration, err error)
	ObserveForward(backend string, elapsed time.Duration)
	ObserveAtomBuffer(capacity, newAllocs int)
	SetPrefetchDepth(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveCacheLookup(string, string)                   {}
func (nopObserver) ObserveParse(string, int, time.Duration, error)      {}
func (nopObserver) ObserveBatch(string, int, int, time.Duration, error) {}
func (nopObserver) ObserveForward(string, time.Duration)                {}
func (nopObserver) ObserveAtomBuffer(int, int)                          {}
func (nopObserver) SetPrefetchDepth(int)                                {}

// Option configures a Layer.
type Option func(*Layer)

// WithSource sets where example lists and structure files are read from.
func WithSource(s structure.Source) Option {
	return func(l *Layer) { l.source = s }
}

// WithStructureLoader overrides the loader built over the source.
func WithStructureLoader(loader molecule.StructureLoader) Option {
	return func(l *Layer) { l.loader = loader }
}

// WithGeometryStore adds a shared MolInfo tier.
func WithGeometryStore(s molecule.GeometryStore) Option {
	return func(l *Layer) { l.store = s }
}

// WithObserver installs a metrics observer.
func WithObserver(o Observer) Option {
	return func(l *Layer) {
		if o != nil {
			l.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(l *Layer) {
		if log != nil {
			l.logger = log
		}
	}
}

// Batch modes reported to the Observer.
const (
	ModeFile     = "file"
	ModeBalanced = "balanced"
	ModeInMemory = "in_memory"
)

//Personal.AI order the ending
