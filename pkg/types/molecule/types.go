// Package molecule defines the plain data types exchanged between molgrid
// layers and with external callers: raw atom records as produced by structure
// readers, typed atoms accepted by the in-memory injection path, and the
// request/response bodies of the HTTP interface. No grid logic lives here.
package molecule

// Vec3 is a Cartesian coordinate in Angstrom.
type Vec3 [3]float32

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }

// Scale returns v * s.
func (v Vec3) Scale(s float32) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }

// AtomRecord is one atom as read from a structure source: an atom-type id
// (the index into the atom-type enumeration) and coordinates.
type AtomRecord struct {
	TypeID int  `json:"type_id"`
	Coords Vec3 `json:"coords"`
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTP DTOs
// ─────────────────────────────────────────────────────────────────────────────

// TypedAtom is an atom whose type is given by name, e.g. "AliphaticCarbonXSHydrophobe".
type TypedAtom struct {
	Type string  `json:"type" binding:"required"`
	X    float32 `json:"x"`
	Y    float32 `json:"y"`
	Z    float32 `json:"z"`
}

// Coords returns the atom position.
func (a TypedAtom) Coords() Vec3 { return Vec3{a.X, a.Y, a.Z} }

// GridRequest injects a receptor/ligand pair for a single in-memory grid.
type GridRequest struct {
	Receptor []TypedAtom `json:"receptor"`
	Ligand   []TypedAtom `json:"ligand" binding:"required,min=1"`
}

// GridResponse carries one rasterized example in channel-major order.
type GridResponse struct {
	BatchID string    `json:"batch_id"`
	Shape   []int     `json:"shape"`
	Label   float32   `json:"label"`
	Center  Vec3      `json:"center"`
	Data    []float32 `json:"data"`
}

// ShapeResponse reports the tensor shapes a configured pipeline produces.
type ShapeResponse struct {
	GridShape        []int   `json:"grid_shape"`
	LabelShape       []int   `json:"label_shape"`
	ReceptorChannels int     `json:"receptor_channels"`
	LigandChannels   int     `json:"ligand_channels"`
	PointsPerSide    int     `json:"points_per_side"`
	Resolution       float64 `json:"resolution"`
	Dimension        float64 `json:"dimension"`
}

//Personal.AI order the ending
