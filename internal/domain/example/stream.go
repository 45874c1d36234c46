package example

import (
	"math/rand"

	"github.com/samber/lo"

	"github.com/turtacn/molgrid/pkg/errors"
)

// Options controls iteration order.
type Options struct {
	// Balanced alternates strictly between actives and decoys, starting with
	// an active.
	Balanced bool
	// Shuffle permutes each sequence at construction and whenever it wraps.
	Shuffle bool
	Seed    int64
}

// cursor walks one sequence, reshuffling it each time it wraps.
type cursor struct {
	items   []Example
	pos     int
	shuffle bool
	rng     *rand.Rand
	wraps   int
}

func newCursor(items []Example, shuffle bool, rng *rand.Rand) *cursor {
	c := &cursor{items: items, shuffle: shuffle, rng: rng}
	c.permute()
	return c
}

func (c *cursor) permute() {
	if !c.shuffle {
		return
	}
	c.rng.Shuffle(len(c.items), func(i, j int) {
		c.items[i], c.items[j] = c.items[j], c.items[i]
	})
}

func (c *cursor) next() Example {
	e := c.items[c.pos]
	c.pos++
	if c.pos == len(c.items) {
		c.permute()
		c.pos = 0
		c.wraps++
	}
	return e
}

// Stream serves examples endlessly. It is not safe for concurrent use; the
// batch producer owns it.
type Stream struct {
	all      *cursor
	actives  *cursor
	decoys   *cursor
	balanced bool
	draws    uint64
}

// NewStream builds a stream over examples. In balanced mode the list is split
// by Example.Active and both halves must be non-empty.
func NewStream(examples []Example, opts Options) (*Stream, error) {
	if opts.Balanced {
		actives := lo.Filter(examples, func(e Example, _ int) bool { return e.Active() })
		decoys := lo.Reject(examples, func(e Example, _ int) bool { return e.Active() })
		return NewBalancedStream(actives, decoys, opts)
	}
	if len(examples) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyExampleSet, "example list is empty")
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	return &Stream{all: newCursor(clone(examples), opts.Shuffle, rng)}, nil
}

// NewBalancedStream builds a balanced stream from separate active and decoy
// lists.
func NewBalancedStream(actives, decoys []Example, opts Options) (*Stream, error) {
	if len(actives) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyExampleSet, "balanced sampling needs at least one active")
	}
	if len(decoys) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyExampleSet, "balanced sampling needs at least one decoy")
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	return &Stream{
		actives:  newCursor(clone(actives), opts.Shuffle, rng),
		decoys:   newCursor(clone(decoys), opts.Shuffle, rng),
		balanced: true,
	}, nil
}

func clone(in []Example) []Example { return append([]Example(nil), in...) }

// Next returns the next example.
func (s *Stream) Next() Example {
	defer func() { s.draws++ }()
	if !s.balanced {
		return s.all.next()
	}
	if s.draws%2 == 0 {
		return s.actives.next()
	}
	return s.decoys.next()
}

// Balanced reports whether the stream alternates actives and decoys.
func (s *Stream) Balanced() bool { return s.balanced }

// Draws returns how many examples have been served.
func (s *Stream) Draws() uint64 { return s.draws }

// Len returns the number of distinct examples.
func (s *Stream) Len() int {
	if s.balanced {
		return len(s.actives.items) + len(s.decoys.items)
	}
	return len(s.all.items)
}

// Epochs returns the number of full passes completed by every sequence.
func (s *Stream) Epochs() int {
	if s.balanced {
		return min(s.actives.wraps, s.decoys.wraps)
	}
	return s.all.wraps
}

//Personal.AI order the ending
