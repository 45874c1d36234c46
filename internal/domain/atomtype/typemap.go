package atomtype

import (
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/turtacn/molgrid/pkg/errors"
)

// Excluded marks a kind that has no channel in a role.
const Excluded = -1

// DefaultReceptorTypes lists the receptor channels, one kind per channel.
var DefaultReceptorTypes = []string{
	"AliphaticCarbonXSHydrophobe",
	"AliphaticCarbonXSNonHydrophobe",
	"AromaticCarbonXSHydrophobe",
	"AromaticCarbonXSNonHydrophobe",
	"Calcium",
	"Iron",
	"Magnesium",
	"Nitrogen",
	"NitrogenXSAcceptor",
	"NitrogenXSDonor",
	"NitrogenXSDonorAcceptor",
	"OxygenXSAcceptor",
	"OxygenXSDonorAcceptor",
	"Phosphorus",
	"Sulfur",
	"Zinc",
}

// DefaultLigandTypes lists the ligand channels, one kind per channel.
var DefaultLigandTypes = []string{
	"AliphaticCarbonXSHydrophobe",
	"AliphaticCarbonXSNonHydrophobe",
	"AromaticCarbonXSHydrophobe",
	"AromaticCarbonXSNonHydrophobe",
	"Bromine",
	"Chlorine",
	"Fluorine",
	"Nitrogen",
	"NitrogenXSAcceptor",
	"NitrogenXSDonor",
	"NitrogenXSDonorAcceptor",
	"Oxygen",
	"OxygenXSAcceptor",
	"OxygenXSDonorAcceptor",
	"Phosphorus",
	"Sulfur",
	"SulfurAcceptor",
	"Iodine",
	"Boron",
}

// TypeMap assigns receptor and ligand channels to atom kinds. Ligand channels
// follow the receptor channels, so ChannelOf(t, true) is always
// >= ReceptorChannels(). A TypeMap is immutable after construction.
type TypeMap struct {
	receptor      [NumTypes]int
	ligand        [NumTypes]int
	recChannels   int
	ligChannels   int
	receptorNames []string
	ligandNames   []string
}

// NewTypeMap builds a TypeMap from configured lists. Each entry is one channel
// and may join several kinds with '|'. An unknown name or a kind that appears
// twice in the same list is a setup error.
func NewTypeMap(receptorTypes, ligandTypes []string) (*TypeMap, error) {
	receptorTypes = nonBlank(receptorTypes)
	ligandTypes = nonBlank(ligandTypes)
	m := &TypeMap{}
	var err error
	if m.recChannels, err = fill(&m.receptor, receptorTypes, "receptor"); err != nil {
		return nil, err
	}
	if m.ligChannels, err = fill(&m.ligand, ligandTypes, "ligand"); err != nil {
		return nil, err
	}
	m.receptorNames = receptorTypes
	m.ligandNames = ligandTypes
	return m, nil
}

// DefaultTypeMap returns the map for DefaultReceptorTypes / DefaultLigandTypes.
func DefaultTypeMap() *TypeMap {
	m, err := NewTypeMap(DefaultReceptorTypes, DefaultLigandTypes)
	if err != nil {
		panic(err)
	}
	return m
}

func nonBlank(entries []string) []string {
	return lo.FilterMap(entries, func(e string, _ int) (string, bool) {
		e = strings.TrimSpace(e)
		return e, e != ""
	})
}

func fill(dst *[NumTypes]int, entries []string, role string) (int, error) {
	for i := range dst {
		dst[i] = Excluded
	}
	for ch, entry := range entries {
		for _, name := range strings.Split(entry, "|") {
			t, ok := Parse(name)
			if !ok {
				return 0, errors.New(errors.ErrCodeUnknownAtomType, "unknown atom type").
					WithDetailf("%s type %q", role, strings.TrimSpace(name))
			}
			if dst[t] != Excluded {
				return 0, errors.New(errors.ErrCodeDuplicateAtomType, "atom type mapped twice").
					WithDetailf("%s type %s", role, t)
			}
			dst[t] = ch
		}
	}
	return len(entries), nil
}

func (m *TypeMap) ReceptorChannels() int { return m.recChannels }
func (m *TypeMap) LigandChannels() int   { return m.ligChannels }
func (m *TypeMap) TotalChannels() int    { return m.recChannels + m.ligChannels }

// ChannelOf returns the output channel of t in the given role, already offset
// by the receptor channel count for ligands.
func (m *TypeMap) ChannelOf(t AtomType, isLigand bool) (int, bool) {
	if !t.Valid() {
		return Excluded, false
	}
	if isLigand {
		ch := m.ligand[t]
		if ch == Excluded {
			return Excluded, false
		}
		return ch + m.recChannels, true
	}
	ch := m.receptor[t]
	return ch, ch != Excluded
}

// Signature is a canonical text form of the channel assignment. Maps with
// equal signatures put every atom kind in the same channel, however their
// lists were spelled.
func (m *TypeMap) Signature() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(m.recChannels))
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(m.ligChannels))
	for t := range m.receptor {
		b.WriteByte(';')
		b.WriteString(strconv.Itoa(m.receptor[t]))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(m.ligand[t]))
	}
	return b.String()
}

// ChannelNames returns one label per output channel, receptor channels first.
func (m *TypeMap) ChannelNames() []string {
	rec := lo.Map(m.receptorNames, func(n string, _ int) string { return "rec_" + n })
	lig := lo.Map(m.ligandNames, func(n string, _ int) string { return "lig_" + n })
	return append(rec, lig...)
}

//Personal.AI order the ending
