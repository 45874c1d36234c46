package gridmaker

import "math"

// kernel evaluates the per-atom density as a function of distance.
//
// Continuous, radius multiple m > 1, x = d/r:
//
//	x < 1      exp(-k x²)                with k = 1/(m-1)
//	1 <= x < m exp(-k) ((m-x)/(m-1))²
//	x >= m     0
//
// Value and slope match at x = 1 and the curve reaches zero with zero slope
// at x = m. m = 1.5 gives k = 2.
//
// Continuous, m <= 1: (1 - x/m)² for x < m, else 0.
//
// Binary: 1 for x <= m, else 0.
type kernel struct {
	binary bool
	m      float64
	k      float64
	ek     float64
}

func newKernel(binary bool, radiusMultiple float64) kernel {
	kn := kernel{binary: binary, m: radiusMultiple}
	if radiusMultiple > 1 {
		kn.k = 1 / (radiusMultiple - 1)
		kn.ek = math.Exp(-kn.k)
	}
	return kn
}

// value returns the density at distance d from an atom of radius r.
func (kn kernel) value(d, r float64) float64 {
	x := d / r
	if kn.binary {
		if x <= kn.m {
			return 1
		}
		return 0
	}
	if x >= kn.m {
		return 0
	}
	if kn.m <= 1 {
		t := 1 - x/kn.m
		return t * t
	}
	if x < 1 {
		return math.Exp(-kn.k * x * x)
	}
	t := (kn.m - x) / (kn.m - 1)
	return kn.ek * t * t
}

//Personal.AI order the ending
