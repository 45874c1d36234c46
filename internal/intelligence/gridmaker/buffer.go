package gridmaker

import (
	"sync"

	"github.com/turtacn/molgrid/internal/domain/molecule"
	"github.com/turtacn/molgrid/pkg/errors"
)

// atomRecordBytes is the device footprint of one atom: a packed float4 and an
// int16 channel.
const atomRecordBytes = 16 + 2

// AtomBuffer is the accelerator-side atom storage. Its capacity only grows;
// growing discards the previous contents, which are rewritten by every Upload.
type AtomBuffer struct {
	mu       sync.Mutex
	atoms    []molecule.Atom
	channels []int16
	capacity int
	fill     int
	limit    int64
	allocs   int
}

// NewAtomBuffer returns an empty buffer. limitBytes > 0 caps the device
// memory the buffer may claim.
func NewAtomBuffer(limitBytes int64) *AtomBuffer {
	return &AtomBuffer{limit: limitBytes}
}

// EnsureCapacity reallocates storage for exactly n atoms when n exceeds the
// current capacity and is a no-op otherwise.
func (b *AtomBuffer) EnsureCapacity(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ensure(n)
}

func (b *AtomBuffer) ensure(n int) error {
	if n <= b.capacity {
		return nil
	}
	if need := int64(n) * atomRecordBytes; b.limit > 0 && need > b.limit {
		return errors.New(errors.ErrCodeAcceleratorAlloc, "accelerator allocation failed").
			WithDetailf("%d atoms need %d bytes, limit %d", n, need, b.limit)
	}
	b.atoms = make([]molecule.Atom, n)
	b.channels = make([]int16, n)
	b.capacity = n
	b.fill = 0
	b.allocs++
	return nil
}

// Upload copies atoms and channels into the buffer, growing it if needed.
func (b *AtomBuffer) Upload(atoms []molecule.Atom, channels []int16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensure(len(atoms)); err != nil {
		return err
	}
	copy(b.atoms, atoms)
	copy(b.channels, channels)
	b.fill = len(atoms)
	return nil
}

func (b *AtomBuffer) contents() ([]molecule.Atom, []int16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.atoms[:b.fill], b.channels[:b.fill]
}

// Capacity returns the number of atoms the buffer can hold.
func (b *AtomBuffer) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// Len returns the number of atoms of the last Upload.
func (b *AtomBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fill
}

// Allocations returns how many times storage was reallocated.
func (b *AtomBuffer) Allocations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allocs
}

//Personal.AI order the ending
