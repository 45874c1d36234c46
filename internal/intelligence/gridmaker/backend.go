package gridmaker

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
)

// Backend rasterizes a Frame into Frame.Out. Implementations must visit atoms
// in list order for every voxel so that all backends agree bitwise.
type Backend interface {
	Name() string
	Rasterize(ctx context.Context, f *Frame) error
}

// Backend names.
const (
	BackendHost        = "host"
	BackendAccelerator = "accelerator"
)

// ─────────────────────────────────────────────────────────────────────────────
// Host backend
// ─────────────────────────────────────────────────────────────────────────────

type hostBackend struct{}

// NewHostBackend returns the sequential backend.
func NewHostBackend() Backend { return hostBackend{} }

func (hostBackend) Name() string { return BackendHost }

func (hostBackend) Rasterize(_ context.Context, f *Frame) error {
	for i, a := range f.Atoms {
		f.splat(f.place(a), a[3], int(f.Channels[i]), 0, f.N)
	}
	f.clamp(0, f.N)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Accelerator backend
// ─────────────────────────────────────────────────────────────────────────────

// acceleratorBackend stages atoms in a device-resident AtomBuffer and
// rasterizes disjoint x slabs of the grid in parallel. Each worker reads the
// whole atom buffer in order and only writes voxels of its own slab.
type acceleratorBackend struct {
	mu      sync.Mutex
	buffer  *AtomBuffer
	workers int
	logger  logging.Logger
}

// NewAcceleratorBackend returns a parallel backend with its own atom buffer.
// workers <= 0 means one worker.
func NewAcceleratorBackend(buffer *AtomBuffer, workers int, logger logging.Logger) Backend {
	if workers <= 0 {
		workers = 1
	}
	return &acceleratorBackend{buffer: buffer, workers: workers, logger: logger}
}

func (b *acceleratorBackend) Name() string { return BackendAccelerator }

func (b *acceleratorBackend) Rasterize(ctx context.Context, f *Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	before := b.buffer.Capacity()
	if err := b.buffer.Upload(f.Atoms, f.Channels); err != nil {
		return err
	}
	if after := b.buffer.Capacity(); after != before {
		b.logger.Debug("accelerator atom buffer grown",
			logging.Int("from", before),
			logging.Int("to", after),
		)
	}
	atoms, channels := b.buffer.contents()

	slab := (f.N + b.workers - 1) / b.workers
	g, gCtx := errgroup.WithContext(ctx)
	for lo := 0; lo < f.N; lo += slab {
		lo, hi := lo, lo+slab
		if hi > f.N {
			hi = f.N
		}
		g.Go(func() error {
			for i, a := range atoms {
				if i%256 == 0 && gCtx.Err() != nil {
					return gCtx.Err()
				}
				f.splat(f.place(a), a[3], int(channels[i]), lo, hi)
			}
			f.clamp(lo, hi)
			return nil
		})
	}
	return g.Wait()
}

//Personal.AI order the ending
