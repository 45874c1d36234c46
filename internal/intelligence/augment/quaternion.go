// Package augment implements the rigid-body augmentation applied to each
// example before rasterization: rotations as unit quaternions and bounded
// random translations.
package augment

import (
	"math"
	"math/rand"

	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// Quaternion is a rotation (W, X, Y, Z). Only unit quaternions are produced
// by this package.
type Quaternion struct {
	W, X, Y, Z float64
}

// Identity is the null rotation.
var Identity = Quaternion{W: 1}

// Mul returns the Hamilton product q*r (apply r first, then q).
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Conj returns the conjugate, the inverse of a unit quaternion.
func (q Quaternion) Conj() Quaternion { return Quaternion{q.W, -q.X, -q.Y, -q.Z} }

func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalize returns q scaled to unit norm; the zero quaternion yields Identity.
func (q Quaternion) Normalize() Quaternion {
	n := q.Norm()
	if n == 0 {
		return Identity
	}
	return Quaternion{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// IsIdentity reports whether q is exactly the identity.
func (q Quaternion) IsIdentity() bool { return q == Identity }

// Matrix returns the row-major 3x3 rotation matrix of unit quaternion q.
func (q Quaternion) Matrix() [9]float32 {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return [9]float32{
		float32(1 - 2*(y*y+z*z)), float32(2 * (x*y - w*z)), float32(2 * (x*z + w*y)),
		float32(2 * (x*y + w*z)), float32(1 - 2*(x*x+z*z)), float32(2 * (y*z - w*x)),
		float32(2 * (x*z - w*y)), float32(2 * (y*z + w*x)), float32(1 - 2*(x*x+y*y)),
	}
}

// Rotate applies q to v.
func (q Quaternion) Rotate(v mtypes.Vec3) mtypes.Vec3 {
	m := q.Matrix()
	return mtypes.Vec3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// AxisAngle returns the rotation of angle radians about the given axis.
func AxisAngle(axis mtypes.Vec3, angle float64) Quaternion {
	ax, ay, az := float64(axis[0]), float64(axis[1]), float64(axis[2])
	n := math.Sqrt(ax*ax + ay*ay + az*az)
	if n == 0 {
		return Identity
	}
	s := math.Sin(angle/2) / n
	return Quaternion{math.Cos(angle / 2), ax * s, ay * s, az * s}
}

// RandomQuaternion draws a rotation uniformly from SO(3) using Shoemake's
// subgroup algorithm.
func RandomQuaternion(rng *rand.Rand) Quaternion {
	u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
	a, b := math.Sqrt(1-u1), math.Sqrt(u1)
	t2, t3 := 2*math.Pi*u2, 2*math.Pi*u3
	return Quaternion{
		W: b * math.Cos(t3),
		X: a * math.Sin(t2),
		Y: a * math.Cos(t2),
		Z: b * math.Sin(t3),
	}
}

// NumAxialRotations is the number of distinct axis-aligned orientations.
const NumAxialRotations = 24

var half = math.Sqrt(0.5)

// faces bring each of the six cube faces to the front; spins then turn the
// cube about the x axis.
var (
	faces = [6]Quaternion{
		Identity,
		{half, 0, 0, half},  // z 90
		{0, 0, 0, 1},        // z 180
		{half, 0, 0, -half}, // z 270
		{half, 0, half, 0},  // y 90
		{half, 0, -half, 0}, // y 270
	}
	spins = [4]Quaternion{
		Identity,
		{half, half, 0, 0},  // x 90
		{0, 1, 0, 0},        // x 180
		{half, -half, 0, 0}, // x 270
	}
)

// AxialQuaternion returns the index-th of the 24 axis-aligned orientations.
// Indices wrap modulo NumAxialRotations; index 0 is the identity.
func AxialQuaternion(index uint) Quaternion {
	index %= NumAxialRotations
	return faces[index%6].Mul(spins[(index/6)%4])
}

//Personal.AI order the ending
