package geometry

import "fmt"

// ShapeKind identifies the solid primitive a Shape describes.
type ShapeKind string

const (
	// ShapeBox is a rectangular box given by three half-lengths.
	ShapeBox ShapeKind = "box"
	// ShapeTube is a cylindrical shell given by radial bounds and a
	// half-length along z.
	ShapeTube ShapeKind = "tube"
	// ShapeCone is a conical shell with independent radial bounds at each
	// z end.
	ShapeCone ShapeKind = "cone"
	// ShapePolycone is a solid of revolution bounded by an (r, z) contour.
	ShapePolycone ShapeKind = "polycone"
	// ShapeTrapezoid is an isosceles trapezoid prism given by the two
	// parallel half-widths, a half-length and a half-thickness.
	ShapeTrapezoid ShapeKind = "trapezoid"
)

// RZPoint is one vertex of a polycone contour.
type RZPoint struct {
	R float64 `json:"r"`
	Z float64 `json:"z"`
}

// Shape describes one named solid. Only the fields relevant to Kind are
// populated; all lengths are half-dimensions in millimetres.
type Shape struct {
	Name string    `json:"name"`
	Kind ShapeKind `json:"kind"`

	// Box.
	DX float64 `json:"dx,omitempty"`
	DY float64 `json:"dy,omitempty"`
	DZ float64 `json:"dz,omitempty"`

	// Tube and cone. RMin2/RMax2 are the bounds at +z for cones.
	RMin  float64 `json:"rMin,omitempty"`
	RMax  float64 `json:"rMax,omitempty"`
	RMin2 float64 `json:"rMin2,omitempty"`
	RMax2 float64 `json:"rMax2,omitempty"`

	// Trapezoid. DXBottom and DXTop are the half-widths of the parallel
	// sides; DY and DZ above carry the half-length and half-thickness.
	DXBottom float64 `json:"dxBottom,omitempty"`
	DXTop    float64 `json:"dxTop,omitempty"`

	// Polycone.
	Points []RZPoint `json:"points,omitempty"`
}

// OpKind identifies a boolean solid operation.
type OpKind string

// OpIntersection intersects two solids.
const OpIntersection OpKind = "intersection"

// ShapeOperation produces a named solid from two operands, optionally
// shifting the second by a translation before combining.
type ShapeOperation struct {
	Name        string  `json:"name"`
	Kind        OpKind  `json:"kind"`
	SolidA      string  `json:"solidA"`
	SolidB      string  `json:"solidB"`
	Translation Vec3    `json:"translation"`
}

// LogicalVolume binds a solid to a material.
type LogicalVolume struct {
	Name     string `json:"name"`
	Solid    string `json:"solid"`
	Material string `json:"material"`
}

// Placement positions one copy of a child volume inside a parent.
type Placement struct {
	Parent      string `json:"parent"`
	Child       string `json:"child"`
	Translation Vec3   `json:"translation"`
	Rotation    string `json:"rotation,omitempty"`
	Copy        int    `json:"copy"`
}

// Rotation is a passive rotation given by the spherical angles, in degrees,
// of the images of the three coordinate axes.
type Rotation struct {
	Name   string  `json:"name"`
	ThetaX float64 `json:"thetaX"`
	PhiX   float64 `json:"phiX"`
	ThetaY float64 `json:"thetaY"`
	PhiY   float64 `json:"phiY"`
	ThetaZ float64 `json:"thetaZ"`
	PhiZ   float64 `json:"phiZ"`
}

// ParamKind tags the payload of an AlgoParam.
type ParamKind string

const (
	// ParamString carries a plain string value.
	ParamString ParamKind = "string"
	// ParamNumber carries a numeric value with an optional unit.
	ParamNumber ParamKind = "number"
	// ParamVector carries a list of numeric values.
	ParamVector ParamKind = "vector"
)

// AlgoParam is one named argument of a replication algorithm call.
type AlgoParam struct {
	Name   string    `json:"name"`
	Kind   ParamKind `json:"kind"`
	String string    `json:"string,omitempty"`
	Number float64   `json:"number,omitempty"`
	Vector []float64 `json:"vector,omitempty"`
	Unit   string    `json:"unit,omitempty"`
}

// StringParam builds a string-valued algorithm parameter.
func StringParam(name, value string) AlgoParam {
	return AlgoParam{Name: name, Kind: ParamString, String: value}
}

// NumberParam builds a numeric algorithm parameter with a unit, which may be
// empty for dimensionless values.
func NumberParam(name string, value float64, unit string) AlgoParam {
	return AlgoParam{Name: name, Kind: ParamNumber, Number: value, Unit: unit}
}

// VectorParam builds a vector-valued algorithm parameter.
func VectorParam(name string, values ...float64) AlgoParam {
	return AlgoParam{Name: name, Kind: ParamVector, Vector: values}
}

// AlgoCall invokes a named replication algorithm inside a parent volume.
type AlgoCall struct {
	Name   string      `json:"name"`
	Parent string      `json:"parent"`
	Params []AlgoParam `json:"params"`
}

// MassFraction is one constituent of a composite material.
type MassFraction struct {
	Material string  `json:"material"`
	Fraction float64 `json:"fraction"`
}

// MixtureMethod states how a composite's constituents combine.
type MixtureMethod string

// MethodMixtureByWeight is the only mixing method the analysis emits.
const MethodMixtureByWeight MixtureMethod = "mixture by weight"

// Composite is a named material mixture with a bulk density in g/cm3.
type Composite struct {
	Name     string         `json:"name"`
	Density  float64        `json:"density"`
	Method   MixtureMethod  `json:"method"`
	Elements []MassFraction `json:"elements"`
}

// ElementaryMaterial describes a chemical element used by composites.
type ElementaryMaterial struct {
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	AtomicNumber int     `json:"atomicNumber"`
	AtomicWeight float64 `json:"atomicWeight"`
	Density      float64 `json:"density"`
}

// KeyValue is one named parameter of a topology selector.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ModuleROCInfo summarises the readout chip layout of a sensor.
type ModuleROCInfo struct {
	Name      string `json:"name"`
	ROCRows   int    `json:"rocRows"`
	ROCCols   int    `json:"rocCols"`
	ROCX      int    `json:"rocX"`
	ROCY      int    `json:"rocY"`
}

// TopologySelector attaches detector-numbering parameters to a set of
// volume paths.
type TopologySelector struct {
	Name          string     `json:"name"`
	Parameter     KeyValue   `json:"parameter"`
	PartSelectors []string   `json:"partSelectors"`
	ModuleTypes   []string   `json:"moduleTypes,omitempty"`
	PartExtras    []KeyValue `json:"partExtras,omitempty"`
}

// RadiationLengthSummary records the material budget of one layer or disc.
type RadiationLengthSummary struct {
	Volume            string  `json:"volume"`
	RadiationLength   float64 `json:"radiationLength"`
	InteractionLength float64 `json:"interactionLength"`
}

// placementKey dedupes placements by parent, child and copy number.
func placementKey(p Placement) string {
	return fmt.Sprintf("%s|%s|%d", p.Parent, p.Child, p.Copy)
}
