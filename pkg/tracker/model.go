// Package tracker defines the detector model consumed by the geometry
// analysis: active modules grouped into barrel layers and endcap discs,
// their material capsules, inactive service and support volumes, and the
// chemical material table.
package tracker

import (
	"math"
	"sort"

	"detgeom/pkg/geometry"
)

// ModuleType distinguishes the two active module families.
type ModuleType string

const (
	// TypePS is a pixel-strip module with two dissimilar sensors.
	TypePS ModuleType = "ptPS"
	// Type2S is a strip-strip module with two identical sensors.
	Type2S ModuleType = "pt2S"
)

// ModuleShape distinguishes rectangular barrel modules from wedge-shaped
// endcap modules.
type ModuleShape string

const (
	// ShapeRectangular modules map to box solids.
	ShapeRectangular ModuleShape = "rectangular"
	// ShapeWedge modules map to trapezoid solids.
	ShapeWedge ModuleShape = "wedge"
)

// UniRef locates a module within its layer or disc.
type UniRef struct {
	// Side is +1 for the positive-z half of the detector, -1 otherwise.
	Side int `json:"side"`
	// Phi is the 1-based azimuthal index (rod or in-ring position).
	Phi int `json:"phi"`
	// Ring is the 1-based radial (barrel) or ring (endcap) index.
	Ring int `json:"ring"`
}

// ROCInfo describes the readout chip grid of one sensor.
type ROCInfo struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
	X    int `json:"x"`
	Y    int `json:"y"`
}

// Module is one active detector module with its full pose and sensor
// parameters. Vertices hold the four corners of the mean sensor plane in
// the order lower-left, upper-left, upper-right, lower-right when viewed
// along the module normal.
type Module struct {
	Ref      UniRef        `json:"ref"`
	Type     ModuleType    `json:"type"`
	Shape    ModuleShape   `json:"shape"`
	Center   geometry.Vec3 `json:"center"`
	Normal   geometry.Vec3 `json:"normal"`
	Vertices [4]geometry.Vec3 `json:"vertices"`

	Area     float64 `json:"area"`
	Length   float64 `json:"length"`
	MinWidth float64 `json:"minWidth"`
	MaxWidth float64 `json:"maxWidth"`

	Thickness       float64 `json:"thickness"`
	SensorThickness float64 `json:"sensorThickness"`
	SensorSpacing   float64 `json:"sensorSpacing"`
	NumSensors      int     `json:"numSensors"`

	// Hybrid geometry. The front/back hybrids run along the module width,
	// the side hybrids along its length.
	HybridWidth          float64 `json:"hybridWidth"`
	SideHybridWidth      float64 `json:"sideHybridWidth"`
	HybridThickness      float64 `json:"hybridThickness"`
	SupportPlateThickness float64 `json:"supportPlateThickness"`

	// StereoRotation is the relative sensor rotation in radians; zero for
	// single-sensor and aligned two-sensor modules.
	StereoRotation float64 `json:"stereoRotation,omitempty"`

	// TiltAngle is the module tilt with respect to the beam axis in
	// radians. Flat barrel modules carry zero.
	TiltAngle float64 `json:"tiltAngle,omitempty"`

	// Flipped marks barrel modules mounted with the sensor stack facing
	// inward.
	Flipped bool `json:"flipped,omitempty"`

	InnerSensorROC ROCInfo `json:"innerSensorROC"`
	OuterSensorROC ROCInfo `json:"outerSensorROC"`
}

// MeanWidth returns the mean width of the module face, which equals the
// rectangle width for rectangular modules.
func (m *Module) MeanWidth() float64 {
	if m.Length == 0 {
		return 0
	}
	return m.Area / m.Length
}

// TotalThickness is the full mechanical thickness of the module including
// both sensors and their support plates.
func (m *Module) TotalThickness() float64 {
	return m.SensorSpacing + 2*(m.SupportPlateThickness+m.SensorThickness)
}

// DistributionPolicy states how a material mass spreads over the module's
// sub-volumes.
type DistributionPolicy string

const (
	// PolicySingle assigns the mass to exactly the targeted sub-volume.
	PolicySingle DistributionPolicy = "single"
	// PolicyFrontBack splits the mass over the front and back hybrids in
	// proportion to their volumes.
	PolicyFrontBack DistributionPolicy = "frontBack"
	// PolicyLeftRight splits the mass over the two side hybrids in
	// proportion to their volumes.
	PolicyLeftRight DistributionPolicy = "leftRight"
	// PolicyUniform spreads the mass over all hybrid sub-volumes in
	// proportion to their volumes.
	PolicyUniform DistributionPolicy = "uniform"
)

// SubVolumeKind identifies one of the module's decomposed sub-volumes.
type SubVolumeKind string

const (
	// KindFrontHybrid sits along the module's leading width edge.
	KindFrontHybrid SubVolumeKind = "frontHybrid"
	// KindBackHybrid sits along the trailing width edge.
	KindBackHybrid SubVolumeKind = "backHybrid"
	// KindLeftHybrid sits along one length edge.
	KindLeftHybrid SubVolumeKind = "leftHybrid"
	// KindRightHybrid sits along the other length edge.
	KindRightHybrid SubVolumeKind = "rightHybrid"
	// KindBetween fills the gap between the two sensors.
	KindBetween SubVolumeKind = "between"
	// KindSupportPlate backs the outer sensor.
	KindSupportPlate SubVolumeKind = "supportPlate"
	// KindSensor marks material bound to the sensors themselves; such
	// entries are handled by the sensor records, never by decomposition.
	KindSensor SubVolumeKind = "sensor"
)

// MaterialElement is one local material of a module capsule: a mass of a
// chemical element assigned to a target sub-volume under a distribution
// policy.
type MaterialElement struct {
	Element string             `json:"element"`
	Grams   float64            `json:"grams"`
	Policy  DistributionPolicy `json:"policy"`
	Target  SubVolumeKind      `json:"target"`
}

// ModuleCapsule pairs a module with its material budget. SensorMass is
// the deposited sensor silicon in grams; it is kept apart from Elements
// because sensor material never takes part in the sub-volume
// decomposition.
type ModuleCapsule struct {
	Module   Module            `json:"module"`
	Elements []MaterialElement `json:"elements"`

	RadiationLength   float64 `json:"radiationLength"`
	InteractionLength float64 `json:"interactionLength"`
	Surface           float64 `json:"surface"`
	SensorMass        float64 `json:"sensorMass"`
	TotalMass         float64 `json:"totalMass"`
}

// LocalMasses aggregates the capsule's elements by chemical element and
// returns them in deterministic element-name order.
func (c *ModuleCapsule) LocalMasses() []MaterialElement {
	byName := map[string]*MaterialElement{}
	order := []string{}
	for _, e := range c.Elements {
		if cur, ok := byName[e.Element]; ok {
			cur.Grams += e.Grams
			continue
		}
		cp := e
		byName[e.Element] = &cp
		order = append(order, e.Element)
	}
	sort.Strings(order)
	out := make([]MaterialElement, 0, len(order))
	for _, n := range order {
		out = append(out, *byName[n])
	}
	return out
}

// BarrelLayer is one concentric layer of a barrel subdetector.
type BarrelLayer struct {
	Index         int             `json:"index"`
	NumRods       int             `json:"numRods"`
	TiltDeg       float64         `json:"tiltDeg"`
	StartAngleDeg float64         `json:"startAngleDeg"`
	Capsules      []ModuleCapsule `json:"capsules"`
}

// Tilted reports whether any module of the layer is mounted at a tilt.
func (l *BarrelLayer) Tilted() bool {
	for i := range l.Capsules {
		if l.Capsules[i].Module.TiltAngle != 0 {
			return true
		}
	}
	return false
}

// EndcapDisc is one disc of an endcap subdetector, holding modules grouped
// into concentric rings.
type EndcapDisc struct {
	Index    int             `json:"index"`
	Capsules []ModuleCapsule `json:"capsules"`
}

// RingModules returns the capsule indexes of the disc grouped by ring
// number, with rings in ascending order.
func (d *EndcapDisc) RingModules() ([]int, map[int][]int) {
	byRing := map[int][]int{}
	for i := range d.Capsules {
		r := d.Capsules[i].Module.Ref.Ring
		byRing[r] = append(byRing[r], i)
	}
	rings := make([]int, 0, len(byRing))
	for r := range byRing {
		rings = append(rings, r)
	}
	sort.Ints(rings)
	return rings, byRing
}

// MinZ returns the smallest axial coordinate among the disc's module
// centers, or +Inf for an empty disc. It is negative for a mirror disc on
// the backward side.
func (d *EndcapDisc) MinZ() float64 {
	min := math.Inf(1)
	for i := range d.Capsules {
		if z := d.Capsules[i].Module.Center.Z; z < min {
			min = z
		}
	}
	return min
}

// Category classifies inactive volumes by the detector region they serve.
type Category string

const (
	// CategoryBarrelService marks services running inside the barrel.
	CategoryBarrelService Category = "barrelService"
	// CategoryEndcapService marks services running inside an endcap.
	CategoryEndcapService Category = "endcapService"
	// CategoryBarrelSupport marks generic barrel support structures.
	CategoryBarrelSupport Category = "barrelSupport"
	// CategoryTubeSupport marks the support tube.
	CategoryTubeSupport Category = "tubeSupport"
	// CategoryUserSupport marks user-declared supports.
	CategoryUserSupport Category = "userSupport"
	// CategoryOuterSupport marks supports outside the sensitive volume.
	CategoryOuterSupport Category = "outerSupport"
	// CategoryEndcapSupport marks endcap support structures.
	CategoryEndcapSupport Category = "endcapSupport"
	// CategoryUnknown covers uncategorised volumes, which attach to the
	// top-level tracker volume.
	CategoryUnknown Category = "unknown"
)

// MassEntry is one material of an inactive element, identified by its tag
// and chemical element name joined by a colon in the source data.
type MassEntry struct {
	Tag     string  `json:"tag"`
	Element string  `json:"element"`
	Grams   float64 `json:"grams"`
}

// InactiveElement is one tube-shaped passive volume: a service run or a
// support structure.
type InactiveElement struct {
	Category Category `json:"category"`

	ZOffset float64 `json:"zOffset"`
	ZLength float64 `json:"zLength"`
	RInner  float64 `json:"rInner"`
	RWidth  float64 `json:"rWidth"`

	// Vertical elements extend radially at fixed z; the rest extend
	// axially at fixed r.
	Vertical bool `json:"vertical"`

	TotalMass         float64 `json:"totalMass"`
	RadiationLength   float64 `json:"radiationLength"`
	InteractionLength float64 `json:"interactionLength"`

	Masses []MassEntry `json:"masses"`
}

// Volume returns the annular volume of the element in mm3.
func (e *InactiveElement) Volume() float64 {
	ro := e.RInner + e.RWidth
	return math.Pi * (ro*ro - e.RInner*e.RInner) * e.ZLength
}

// InactiveSurfaces groups the passive volumes of the tracker.
type InactiveSurfaces struct {
	BarrelServices []InactiveElement `json:"barrelServices"`
	EndcapServices []InactiveElement `json:"endcapServices"`
	Supports       []InactiveElement `json:"supports"`
}

// MaterialRow is one row of the chemical material table.
type MaterialRow struct {
	Tag               string  `json:"tag"`
	Density           float64 `json:"density"`
	RadiationLength   float64 `json:"radiationLength"`
	InteractionLength float64 `json:"interactionLength"`
}

// MaterialTable maps material tags to their physical properties.
type MaterialTable struct {
	Rows []MaterialRow `json:"rows"`
}

// Lookup returns the row for tag and whether it exists.
func (t *MaterialTable) Lookup(tag string) (MaterialRow, bool) {
	for _, r := range t.Rows {
		if r.Tag == tag {
			return r, true
		}
	}
	return MaterialRow{}, false
}

// SensorSiliconTag is the material table tag of sensor silicon.
const SensorSiliconTag = "SenSi"

// Barrel is one barrel subdetector.
type Barrel struct {
	Name   string        `json:"name"`
	Layers []BarrelLayer `json:"layers"`
}

// Endcap is one endcap subdetector. Only the positive-z half is modelled;
// the negative half is produced by reflection downstream.
type Endcap struct {
	Name  string       `json:"name"`
	Discs []EndcapDisc `json:"discs"`
}

// Model is the complete analysis input.
type Model struct {
	Name      string           `json:"name"`
	Barrels   []Barrel         `json:"barrels"`
	Endcaps   []Endcap         `json:"endcaps"`
	Inactives InactiveSurfaces `json:"inactives"`
	Materials MaterialTable    `json:"materials"`
}
