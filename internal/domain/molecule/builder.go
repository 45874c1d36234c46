package molecule

import (
	"math"

	"github.com/turtacn/molgrid/internal/domain/atomtype"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// Builder turns raw atom records into MolInfo using a fixed TypeMap.
type Builder struct {
	types *atomtype.TypeMap
}

// NewBuilder returns a Builder bound to types.
func NewBuilder(types *atomtype.TypeMap) *Builder {
	return &Builder{types: types}
}

// TypeMap returns the channel map used by the builder.
func (b *Builder) TypeMap() *atomtype.TypeMap { return b.types }

// Build converts records into a MolInfo. Atoms whose kind has no channel in
// the requested role are dropped. For ligands, the centroid is accumulated
// over the kept non-hydrogen atoms.
func (b *Builder) Build(records []mtypes.AtomRecord, isLigand bool) (*MolInfo, error) {
	m := &MolInfo{
		Atoms:    make([]Atom, 0, len(records)),
		Channels: make([]int16, 0, len(records)),
	}
	var sum [3]float64
	var counted int
	for i, rec := range records {
		t := atomtype.AtomType(rec.TypeID)
		if !t.Valid() {
			return nil, errors.New(errors.ErrCodeAtomTypeOutOfRange, "atom type id out of range").
				WithDetailf("atom %d has type id %d", i, rec.TypeID)
		}
		if !finite(rec.Coords) {
			return nil, errors.New(errors.ErrCodeStructureMalformed, "non-finite coordinate").
				WithDetailf("atom %d", i)
		}
		ch, ok := b.types.ChannelOf(t, isLigand)
		if !ok {
			continue
		}
		m.Atoms = append(m.Atoms, Atom{rec.Coords[0], rec.Coords[1], rec.Coords[2], t.Radius()})
		m.Channels = append(m.Channels, int16(ch))
		if isLigand && !t.IsHydrogen() {
			for d := 0; d < 3; d++ {
				sum[d] += float64(rec.Coords[d])
			}
			counted++
		}
	}
	if counted > 0 {
		for d := 0; d < 3; d++ {
			m.Center[d] = float32(sum[d] / float64(counted))
		}
	}
	m.Bounds = computeBounds(m.Atoms)
	return m, nil
}

// BuildWithCoords is Build with positions taken from coords instead of the
// records. The two lists must have the same length.
func (b *Builder) BuildWithCoords(records []mtypes.AtomRecord, coords []Vec3, isLigand bool) (*MolInfo, error) {
	if len(records) != len(coords) {
		return nil, errors.New(errors.ErrCodeAtomListMismatch, "atom and coordinate lists differ in length").
			WithDetailf("%d atoms, %d coordinates", len(records), len(coords))
	}
	placed := make([]mtypes.AtomRecord, len(records))
	for i := range records {
		placed[i] = mtypes.AtomRecord{TypeID: records[i].TypeID, Coords: coords[i]}
	}
	return b.Build(placed, isLigand)
}

// BuildTyped resolves atom names and builds a MolInfo, for callers that
// describe atoms by kind name rather than id.
func (b *Builder) BuildTyped(atoms []mtypes.TypedAtom, isLigand bool) (*MolInfo, error) {
	records, err := ResolveTyped(atoms)
	if err != nil {
		return nil, err
	}
	return b.Build(records, isLigand)
}

// ResolveTyped converts named atoms into records.
func ResolveTyped(atoms []mtypes.TypedAtom) ([]mtypes.AtomRecord, error) {
	records := make([]mtypes.AtomRecord, len(atoms))
	for i, a := range atoms {
		t, ok := atomtype.Parse(a.Type)
		if !ok {
			return nil, errors.New(errors.ErrCodeAtomTypeOutOfRange, "unknown atom type").
				WithDetailf("atom %d type %q", i, a.Type)
		}
		records[i] = mtypes.AtomRecord{TypeID: int(t), Coords: a.Coords()}
	}
	return records, nil
}

func finite(v Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

//Personal.AI order the ending
