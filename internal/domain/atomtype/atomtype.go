// Package atomtype defines the atom-kind enumeration used by structure files
// and the receptor/ligand channel maps built from configured type lists.
package atomtype

import (
	"strings"
)

// AtomType is an atom kind. Its numeric value is the id stored in structure
// files, so the order of the constants below is part of the file format.
type AtomType int

const (
	Hydrogen AtomType = iota
	PolarHydrogen
	AliphaticCarbonXSHydrophobe
	AliphaticCarbonXSNonHydrophobe
	AromaticCarbonXSHydrophobe
	AromaticCarbonXSNonHydrophobe
	Nitrogen
	NitrogenXSDonor
	NitrogenXSDonorAcceptor
	NitrogenXSAcceptor
	Oxygen
	OxygenXSDonor
	OxygenXSDonorAcceptor
	OxygenXSAcceptor
	Sulfur
	SulfurAcceptor
	Phosphorus
	Fluorine
	Chlorine
	Bromine
	Iodine
	Magnesium
	Manganese
	Zinc
	Calcium
	Iron
	GenericMetal
	Boron

	// NumTypes is the number of defined kinds.
	NumTypes
)

// Invalid is returned by Parse for unrecognized names.
const Invalid AtomType = -1

type info struct {
	name     string
	element  string
	radius   float32
	hydrogen bool
}

// Radii are Bondi van der Waals radii; metals share the small xs metal radius.
var table = [NumTypes]info{
	Hydrogen:                       {"Hydrogen", "H", 1.1, true},
	PolarHydrogen:                  {"PolarHydrogen", "H", 1.1, true},
	AliphaticCarbonXSHydrophobe:    {"AliphaticCarbonXSHydrophobe", "C", 1.7, false},
	AliphaticCarbonXSNonHydrophobe: {"AliphaticCarbonXSNonHydrophobe", "C", 1.7, false},
	AromaticCarbonXSHydrophobe:     {"AromaticCarbonXSHydrophobe", "C", 1.7, false},
	AromaticCarbonXSNonHydrophobe:  {"AromaticCarbonXSNonHydrophobe", "C", 1.7, false},
	Nitrogen:                       {"Nitrogen", "N", 1.55, false},
	NitrogenXSDonor:                {"NitrogenXSDonor", "N", 1.55, false},
	NitrogenXSDonorAcceptor:        {"NitrogenXSDonorAcceptor", "N", 1.55, false},
	NitrogenXSAcceptor:             {"NitrogenXSAcceptor", "N", 1.55, false},
	Oxygen:                         {"Oxygen", "O", 1.52, false},
	OxygenXSDonor:                  {"OxygenXSDonor", "O", 1.52, false},
	OxygenXSDonorAcceptor:          {"OxygenXSDonorAcceptor", "O", 1.52, false},
	OxygenXSAcceptor:               {"OxygenXSAcceptor", "O", 1.52, false},
	Sulfur:                         {"Sulfur", "S", 1.8, false},
	SulfurAcceptor:                 {"SulfurAcceptor", "S", 1.8, false},
	Phosphorus:                     {"Phosphorus", "P", 1.8, false},
	Fluorine:                       {"Fluorine", "F", 1.47, false},
	Chlorine:                       {"Chlorine", "Cl", 1.75, false},
	Bromine:                        {"Bromine", "Br", 1.85, false},
	Iodine:                         {"Iodine", "I", 1.98, false},
	Magnesium:                      {"Magnesium", "Mg", 1.2, false},
	Manganese:                      {"Manganese", "Mn", 1.2, false},
	Zinc:                           {"Zinc", "Zn", 1.2, false},
	Calcium:                        {"Calcium", "Ca", 1.2, false},
	Iron:                           {"Iron", "Fe", 1.2, false},
	GenericMetal:                   {"GenericMetal", "M", 1.2, false},
	Boron:                          {"Boron", "B", 1.92, false},
}

var byName = func() map[string]AtomType {
	m := make(map[string]AtomType, NumTypes)
	for t := AtomType(0); t < NumTypes; t++ {
		m[strings.ToLower(table[t].name)] = t
	}
	return m
}()

// Valid reports whether t is a defined kind.
func (t AtomType) Valid() bool { return t >= 0 && t < NumTypes }

func (t AtomType) String() string {
	if !t.Valid() {
		return "Invalid"
	}
	return table[t].name
}

// Element returns the element symbol, or "" for invalid kinds.
func (t AtomType) Element() string {
	if !t.Valid() {
		return ""
	}
	return table[t].element
}

// Radius returns the van der Waals radius in Angstrom, 0 for invalid kinds.
func (t AtomType) Radius() float32 {
	if !t.Valid() {
		return 0
	}
	return table[t].radius
}

func (t AtomType) IsHydrogen() bool { return t.Valid() && table[t].hydrogen }

// Parse resolves a kind by name, case-insensitively.
func Parse(name string) (AtomType, bool) {
	t, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Invalid, false
	}
	return t, true
}

// All returns every defined kind in id order.
func All() []AtomType {
	out := make([]AtomType, NumTypes)
	for i := range out {
		out[i] = AtomType(i)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// AutoDock names
// ─────────────────────────────────────────────────────────────────────────────

// FromAutoDock maps an AutoDock 4 atom type (the last column of a PDBQT ATOM
// record) onto the enumeration. Carbon and nitrogen hydrophobicity and donor
// status depend on bonding, which PDBQT does not carry, so the generic variants
// are returned: C → AliphaticCarbonXSHydrophobe, A → AromaticCarbonXSHydrophobe,
// N → Nitrogen, NA → NitrogenXSAcceptor.
func FromAutoDock(adType string) (AtomType, bool) {
	switch strings.TrimSpace(adType) {
	case "H":
		return Hydrogen, true
	case "HD", "HS":
		return PolarHydrogen, true
	case "C":
		return AliphaticCarbonXSHydrophobe, true
	case "A":
		return AromaticCarbonXSHydrophobe, true
	case "N":
		return Nitrogen, true
	case "NA", "NS":
		return NitrogenXSAcceptor, true
	case "O":
		return Oxygen, true
	case "OA", "OS":
		return OxygenXSAcceptor, true
	case "S":
		return Sulfur, true
	case "SA":
		return SulfurAcceptor, true
	case "P":
		return Phosphorus, true
	case "F":
		return Fluorine, true
	case "Cl", "CL":
		return Chlorine, true
	case "Br", "BR":
		return Bromine, true
	case "I":
		return Iodine, true
	case "Mg", "MG":
		return Magnesium, true
	case "Mn", "MN":
		return Manganese, true
	case "Zn", "ZN":
		return Zinc, true
	case "Ca", "CA":
		return Calcium, true
	case "Fe", "FE":
		return Iron, true
	case "B":
		return Boron, true
	case "Met":
		return GenericMetal, true
	}
	return Invalid, false
}

// FromElement maps a PDB element symbol onto the enumeration using the same
// generic variants as FromAutoDock.
func FromElement(symbol string) (AtomType, bool) {
	s := strings.TrimSpace(symbol)
	if len(s) > 1 {
		s = strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	}
	switch s {
	case "H":
		return Hydrogen, true
	case "C":
		return AliphaticCarbonXSHydrophobe, true
	case "N":
		return Nitrogen, true
	case "O":
		return Oxygen, true
	case "Ca":
		return Calcium, true
	}
	return FromAutoDock(s)
}

//Personal.AI order the ending
