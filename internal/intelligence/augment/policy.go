package augment

import (
	"math/rand"
	"sync"

	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// Config selects the augmentation applied to every example.
type Config struct {
	// RandomRotate draws a uniformly random rotation per example.
	RandomRotate bool
	// RandomTranslate bounds the per-axis translation of the grid center.
	RandomTranslate float64
	// NumRotations > 0 enables enumerated axial rotations when RandomRotate
	// is false. The cursor cycles through the first NumRotations orientations
	// (at most 24 are distinct), advancing once per batch.
	NumRotations uint
	// Seed makes every draw reproducible.
	Seed int64
}

// Draw is the transform applied to one example.
type Draw struct {
	Rotation    Quaternion
	Translation mtypes.Vec3
}

// Policy produces per-example draws. It is safe for concurrent use, but the
// sequence of draws is only reproducible when a single goroutine consumes it.
type Policy struct {
	cfg Config

	mu      sync.Mutex
	rng     *rand.Rand
	current uint
}

// NewPolicy validates cfg and seeds the generator.
func NewPolicy(cfg Config) (*Policy, error) {
	if cfg.RandomTranslate < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "random translation bound must not be negative").
			WithDetailf("random_translate=%g", cfg.RandomTranslate)
	}
	return &Policy{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

// Config returns the policy configuration.
func (p *Policy) Config() Config { return p.cfg }

// Draw returns the rotation and translation for the next example.
func (p *Policy) Draw() Draw {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := Draw{Rotation: Identity}
	switch {
	case p.cfg.RandomRotate:
		d.Rotation = RandomQuaternion(p.rng)
	case p.cfg.NumRotations > 0:
		d.Rotation = AxialQuaternion(p.current)
	}
	if t := p.cfg.RandomTranslate; t > 0 {
		for i := range d.Translation {
			d.Translation[i] = float32((p.rng.Float64()*2 - 1) * t)
		}
	}
	return d
}

// Advance moves the rotation cursor to the next enumerated orientation. It is
// called once at the end of every batch.
func (p *Policy) Advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cfg.NumRotations > 0 {
		p.current = (p.current + 1) % p.cfg.NumRotations
	}
}

// ResetRotation returns the rotation cursor to the first orientation.
func (p *Policy) ResetRotation() {
	p.mu.Lock()
	p.current = 0
	p.mu.Unlock()
}

// CurrentRotation returns the rotation cursor.
func (p *Policy) CurrentRotation() uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Enumerated reports whether rotations come from the axial cursor rather
// than the random generator.
func (p *Policy) Enumerated() bool {
	return !p.cfg.RandomRotate && p.cfg.NumRotations > 0
}

// CurrentQuaternion returns the orientation selected by the cursor, or the
// identity when rotations are not enumerated.
func (p *Policy) CurrentQuaternion() Quaternion {
	if !p.Enumerated() {
		return Identity
	}
	return AxialQuaternion(p.CurrentRotation())
}

//Personal.AI order the ending
