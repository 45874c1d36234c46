package gridmaker

import (
	"math"

	"github.com/turtacn/molgrid/internal/domain/molecule"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// Frame is one rasterization job: a fixed grid placement, a rotation about
// the grid center, the atoms, and the caller's zeroed output buffer in
// (channel, x, y, z) order.
type Frame struct {
	N           int
	Resolution  float32
	Center      mtypes.Vec3
	Origin      mtypes.Vec3
	Rotation    [9]float32
	Rotate      bool
	Atoms       []molecule.Atom
	Channels    []int16
	NumChannels int
	Out         []float32

	kernel kernel
	cap    float32
}

// voxels returns N³.
func (f *Frame) voxels() int { return f.N * f.N * f.N }

// place rotates a about the grid center.
func (f *Frame) place(a molecule.Atom) mtypes.Vec3 {
	if !f.Rotate {
		return mtypes.Vec3{a[0], a[1], a[2]}
	}
	m := &f.Rotation
	x, y, z := a[0]-f.Center[0], a[1]-f.Center[1], a[2]-f.Center[2]
	return mtypes.Vec3{
		m[0]*x + m[1]*y + m[2]*z + f.Center[0],
		m[3]*x + m[4]*y + m[5]*z + f.Center[1],
		m[6]*x + m[7]*y + m[8]*z + f.Center[2],
	}
}

// span returns the inclusive voxel index range along one axis that lies
// within cutoff of coordinate p, clipped to [lo, hi). ok is false when empty.
func (f *Frame) span(p, origin, cutoff float32, lo, hi int) (int, int, bool) {
	a := int(math.Ceil(float64((p - cutoff - origin) / f.Resolution)))
	b := int(math.Floor(float64((p + cutoff - origin) / f.Resolution)))
	if a < lo {
		a = lo
	}
	if b > hi-1 {
		b = hi - 1
	}
	return a, b, a <= b
}

// splat adds the density of one atom to every voxel of its footprint whose
// x index lies in [xlo, xhi). Both backends go through this function, which
// keeps their per-voxel arithmetic identical.
func (f *Frame) splat(pos mtypes.Vec3, radius float32, channel int, xlo, xhi int) {
	cutoff := radius * float32(f.kernel.m)
	x0, x1, ok := f.span(pos[0], f.Origin[0], cutoff, xlo, xhi)
	if !ok {
		return
	}
	y0, y1, ok := f.span(pos[1], f.Origin[1], cutoff, 0, f.N)
	if !ok {
		return
	}
	z0, z1, ok := f.span(pos[2], f.Origin[2], cutoff, 0, f.N)
	if !ok {
		return
	}

	n := f.N
	base := channel * f.voxels()
	c2 := float64(cutoff) * float64(cutoff)
	r := float64(radius)
	for i := x0; i <= x1; i++ {
		dx := float64(f.Origin[0] + float32(i)*f.Resolution - pos[0])
		for j := y0; j <= y1; j++ {
			dy := float64(f.Origin[1] + float32(j)*f.Resolution - pos[1])
			row := base + (i*n+j)*n
			for k := z0; k <= z1; k++ {
				dz := float64(f.Origin[2] + float32(k)*f.Resolution - pos[2])
				d2 := dx*dx + dy*dy + dz*dz
				if d2 > c2 {
					continue
				}
				v := float32(f.kernel.value(math.Sqrt(d2), r))
				if v == 0 {
					continue
				}
				if f.kernel.binary {
					f.Out[row+k] = 1
				} else {
					f.Out[row+k] += v
				}
			}
		}
	}
}

// clamp applies the density cap to voxels with x index in [xlo, xhi).
func (f *Frame) clamp(xlo, xhi int) {
	if f.cap <= 0 || f.kernel.binary {
		return
	}
	plane := f.N * f.N
	for ch := 0; ch < f.NumChannels; ch++ {
		base := ch * f.voxels()
		seg := f.Out[base+xlo*plane : base+xhi*plane]
		for i, v := range seg {
			if v > f.cap {
				seg[i] = f.cap
			}
		}
	}
}

//Personal.AI order the ending
