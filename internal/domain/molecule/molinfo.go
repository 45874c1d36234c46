// Package molecule holds the grid-ready representation of a molecule (MolInfo),
// its builders for the file and programmatic paths, and the process-wide
// geometry cache that guarantees each structure is parsed at most once.
package molecule

import (
	"math"

	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// Vec3 is re-exported for brevity inside the domain layer.
type Vec3 = mtypes.Vec3

// Atom is a packed (x, y, z, radius) record, the layout consumed by the grid
// backends and uploaded verbatim to the accelerator buffer.
type Atom [4]float32

// Pos returns the coordinates of a.
func (a Atom) Pos() Vec3 { return Vec3{a[0], a[1], a[2]} }

// Radius returns the van der Waals radius of a.
func (a Atom) Radius() float32 { return a[3] }

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Extent returns Max - Min per axis.
func (b Bounds) Extent() Vec3 { return b.Max.Sub(b.Min) }

// MolInfo is the cached, rasterizable form of one molecule. Atoms and
// Channels are parallel: Channels[i] is the output channel of Atoms[i].
// Excluded atoms are never stored. Cached instances are shared between
// goroutines and must be treated as read-only.
type MolInfo struct {
	Atoms    []Atom  `json:"atoms"`
	Channels []int16 `json:"channels"`
	// Center is the centroid of the non-hydrogen ligand atoms; zero for
	// receptors and for molecules without such atoms.
	Center Vec3   `json:"center"`
	Bounds Bounds `json:"bounds"`
}

// Len returns the number of stored atoms.
func (m *MolInfo) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Atoms)
}

// Empty reports whether m holds no atoms.
func (m *MolInfo) Empty() bool { return m.Len() == 0 }

// Append returns a new MolInfo holding the atoms of m followed by those of
// other. Neither input is modified. Center is taken from other, which is the
// ligand when concatenating a receptor/ligand pair.
func (m *MolInfo) Append(other *MolInfo) *MolInfo {
	n := m.Len() + other.Len()
	out := &MolInfo{
		Atoms:    make([]Atom, 0, n),
		Channels: make([]int16, 0, n),
	}
	if m != nil {
		out.Atoms = append(out.Atoms, m.Atoms...)
		out.Channels = append(out.Channels, m.Channels...)
	}
	if other != nil {
		out.Atoms = append(out.Atoms, other.Atoms...)
		out.Channels = append(out.Channels, other.Channels...)
		out.Center = other.Center
	}
	out.Bounds = computeBounds(out.Atoms)
	return out
}

func computeBounds(atoms []Atom) Bounds {
	if len(atoms) == 0 {
		return Bounds{}
	}
	inf := float32(math.Inf(1))
	b := Bounds{Min: Vec3{inf, inf, inf}, Max: Vec3{-inf, -inf, -inf}}
	for _, a := range atoms {
		for d := 0; d < 3; d++ {
			if a[d] < b.Min[d] {
				b.Min[d] = a[d]
			}
			if a[d] > b.Max[d] {
				b.Max[d] = a[d]
			}
		}
	}
	return b
}

//Personal.AI order the ending
