// Package gridmaker rasterizes atoms into cubic voxel grids, one grid per
// output channel, on a sequential host backend or a parallel accelerator
// backend that produces bitwise identical results.
package gridmaker

import (
	"context"
	"math"

	"github.com/turtacn/molgrid/internal/domain/molecule"
	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/internal/intelligence/augment"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// Defaults of the original data layer.
const (
	DefaultResolution     = 0.5
	DefaultDimension      = 23.5
	DefaultRadiusMultiple = 1.5
)

// Spec describes the grid geometry and density kernel.
type Spec struct {
	Resolution     float64 `json:"resolution"`
	Dimension      float64 `json:"dimension"`
	RadiusMultiple float64 `json:"radius_multiple"`
	Binary         bool    `json:"binary"`
	// DensityCap > 0 caps each continuous voxel after summation.
	DensityCap float64 `json:"density_cap"`
}

// DefaultSpec returns the continuous 23.5 Å grid at 0.5 Å resolution.
func DefaultSpec() Spec {
	return Spec{
		Resolution:     DefaultResolution,
		Dimension:      DefaultDimension,
		RadiusMultiple: DefaultRadiusMultiple,
	}
}

// Validate rejects non-positive geometry.
func (s Spec) Validate() error {
	switch {
	case !(s.Resolution > 0):
		return errors.New(errors.ErrCodeInvalidConfig, "resolution must be positive").WithDetailf("resolution=%g", s.Resolution)
	case !(s.Dimension > 0):
		return errors.New(errors.ErrCodeInvalidConfig, "dimension must be positive").WithDetailf("dimension=%g", s.Dimension)
	case !(s.RadiusMultiple > 0):
		return errors.New(errors.ErrCodeInvalidConfig, "radius multiple must be positive").WithDetailf("radius_multiple=%g", s.RadiusMultiple)
	case s.DensityCap < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "density cap must not be negative").WithDetailf("density_cap=%g", s.DensityCap)
	}
	return nil
}

// PointsPerSide returns ceil(dimension/resolution)+1. The quotient is nudged
// down by 1e-9 so exact multiples are not pushed up by rounding.
func (s Spec) PointsPerSide() int {
	return int(math.Ceil(s.Dimension/s.Resolution-1e-9)) + 1
}

// VoxelsPerChannel returns PointsPerSide³.
func (s Spec) VoxelsPerChannel() int {
	n := s.PointsPerSide()
	return n * n * n
}

// GridMaker owns the grid spec and the backends.
type GridMaker struct {
	spec   Spec
	kernel kernel
	host   Backend
	accel  Backend
	buffer *AtomBuffer
	logger logging.Logger

	accelWorkers int
	accelLimit   int64
	accelEnabled bool
}

// Option configures a GridMaker.
type Option func(*GridMaker)

// WithAccelerator enables the accelerator backend with the given number of
// slab workers and device memory limit (0 = unlimited).
func WithAccelerator(workers int, memoryLimitBytes int64) Option {
	return func(g *GridMaker) {
		g.accelEnabled = true
		g.accelWorkers = workers
		g.accelLimit = memoryLimitBytes
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(g *GridMaker) {
		if l != nil {
			g.logger = l
		}
	}
}

// New validates spec and returns a GridMaker with a host backend.
func New(spec Spec, opts ...Option) (*GridMaker, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	g := &GridMaker{
		spec:   spec,
		kernel: newKernel(spec.Binary, spec.RadiusMultiple),
		host:   NewHostBackend(),
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.accelEnabled {
		g.buffer = NewAtomBuffer(g.accelLimit)
		g.accel = NewAcceleratorBackend(g.buffer, g.accelWorkers, g.logger.Named("accelerator"))
	}
	return g, nil
}

// SetDimensions replaces resolution, dimension and radius multiple. It is a
// setup-time call and must not race with Forward.
func (g *GridMaker) SetDimensions(resolution, dimension, radiusMultiple float64) error {
	spec := g.spec
	spec.Resolution, spec.Dimension, spec.RadiusMultiple = resolution, dimension, radiusMultiple
	if err := spec.Validate(); err != nil {
		return err
	}
	g.spec = spec
	g.kernel = newKernel(spec.Binary, spec.RadiusMultiple)
	return nil
}

func (g *GridMaker) Spec() Spec            { return g.spec }
func (g *GridMaker) PointsPerSide() int    { return g.spec.PointsPerSide() }
func (g *GridMaker) VoxelsPerChannel() int { return g.spec.VoxelsPerChannel() }

// HasAccelerator reports whether the accelerator backend is configured.
func (g *GridMaker) HasAccelerator() bool { return g.accel != nil }

// AtomBuffer returns the accelerator atom buffer, or nil.
func (g *GridMaker) AtomBuffer() *AtomBuffer { return g.buffer }

// Density evaluates the configured kernel for an atom of radius r at
// distance d.
func (g *GridMaker) Density(d, r float64) float64 { return g.kernel.value(d, r) }

// Origin returns the grid corner for the given center.
func (g *GridMaker) Origin(center mtypes.Vec3) mtypes.Vec3 {
	h := float32(g.spec.Dimension / 2)
	return mtypes.Vec3{center[0] - h, center[1] - h, center[2] - h}
}

// Forward rasterizes mol into out, a zeroed buffer of numChannels grids laid
// out (channel, x, y, z). Atoms are rotated by rotation about center, which is
// also the grid center.
func (g *GridMaker) Forward(ctx context.Context, center mtypes.Vec3, mol *molecule.MolInfo, rotation augment.Quaternion,
	numChannels int, out []float32, useAccelerator bool) error {
	per := g.VoxelsPerChannel()
	if numChannels <= 0 || len(out) != numChannels*per {
		return errors.New(errors.ErrCodeGridBufferSize, "grid buffer has wrong size").
			WithDetailf("got %d values, want %d channels x %d voxels", len(out), numChannels, per)
	}
	if err := validateAtoms(mol, numChannels); err != nil {
		return err
	}

	backend := g.host
	if useAccelerator {
		if g.accel == nil {
			return errors.New(errors.ErrCodeAcceleratorUnavailable, "accelerator backend not configured")
		}
		backend = g.accel
	}

	f := &Frame{
		N:           g.PointsPerSide(),
		Resolution:  float32(g.spec.Resolution),
		Center:      center,
		Origin:      g.Origin(center),
		Rotation:    rotation.Matrix(),
		Rotate:      !rotation.IsIdentity(),
		NumChannels: numChannels,
		Out:         out,
		kernel:      g.kernel,
		cap:         float32(g.spec.DensityCap),
	}
	if mol != nil {
		f.Atoms, f.Channels = mol.Atoms, mol.Channels
	}
	return backend.Rasterize(ctx, f)
}

func validateAtoms(mol *molecule.MolInfo, numChannels int) error {
	if mol == nil {
		return nil
	}
	if len(mol.Atoms) != len(mol.Channels) {
		return errors.New(errors.ErrCodeGridBufferSize, "atom and channel lists differ in length").
			WithDetailf("%d atoms, %d channels", len(mol.Atoms), len(mol.Channels))
	}
	for i, a := range mol.Atoms {
		if !(a[3] > 0) {
			return errors.New(errors.ErrCodeInvalidRadius, "atom radius must be positive").
				WithDetailf("atom %d radius %g", i, a[3])
		}
		if ch := int(mol.Channels[i]); ch < 0 || ch >= numChannels {
			return errors.New(errors.ErrCodeChannelOutOfRange, "atom channel out of range").
				WithDetailf("atom %d channel %d, %d channels", i, ch, numChannels)
		}
	}
	return nil
}

//Personal.AI order the ending
