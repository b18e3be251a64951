package testutil

import (
	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
)

// BarrelModule builds a rectangular strip module at radius r and axial
// position z, with the module width along y and its length along z.
// The normal points radially outward along x.
func BarrelModule(side, phi, ring int, r, z float64) tracker.Module {
	const (
		w = 90.0
		l = 100.0
	)
	center := geometry.Vec3{X: r, Z: z}
	halfW := geometry.Vec3{Y: w / 2}
	halfL := geometry.Vec3{Z: l / 2}
	return tracker.Module{
		Ref:    tracker.UniRef{Side: side, Phi: phi, Ring: ring},
		Type:   tracker.Type2S,
		Shape:  tracker.ShapeRectangular,
		Center: center,
		Normal: geometry.Vec3{X: 1},
		Vertices: [4]geometry.Vec3{
			center.Sub(halfW).Sub(halfL),
			center.Sub(halfW).Add(halfL),
			center.Add(halfW).Add(halfL),
			center.Add(halfW).Sub(halfL),
		},
		Area:                  w * l,
		Length:                l,
		MinWidth:              w,
		MaxWidth:              w,
		Thickness:             2.2,
		SensorThickness:       0.2,
		SensorSpacing:         1.8,
		NumSensors:            2,
		HybridWidth:           10,
		SideHybridWidth:       15,
		HybridThickness:       1.0,
		SupportPlateThickness: 0.6,
		InnerSensorROC:        tracker.ROCInfo{Rows: 127, Cols: 2, X: 8, Y: 2},
		OuterSensorROC:        tracker.ROCInfo{Rows: 127, Cols: 2, X: 8, Y: 2},
	}
}

// TiltedBarrelModule is a BarrelModule mounted at tilt radians.
func TiltedBarrelModule(side, phi, ring int, r, z, tilt float64) tracker.Module {
	m := BarrelModule(side, phi, ring, r, z)
	m.Type = tracker.TypePS
	m.TiltAngle = tilt
	return m
}

// EndcapModule builds a wedge-shaped pixel-strip module on the
// positive-z disc at radius r, with the module length running radially
// along x, the width along y, and the normal along z.
func EndcapModule(phi, ring int, r, z float64) tracker.Module {
	const (
		wMin = 40.0
		wMax = 60.0
		l    = 80.0
	)
	wMean := (wMin + wMax) / 2
	center := geometry.Vec3{X: r, Z: z}
	halfW := geometry.Vec3{Y: wMean / 2}
	halfL := geometry.Vec3{X: l / 2}
	return tracker.Module{
		Ref:    tracker.UniRef{Side: 1, Phi: phi, Ring: ring},
		Type:   tracker.TypePS,
		Shape:  tracker.ShapeWedge,
		Center: center,
		Normal: geometry.Vec3{Z: 1},
		Vertices: [4]geometry.Vec3{
			center.Sub(halfW).Sub(halfL),
			center.Sub(halfW).Add(halfL),
			center.Add(halfW).Add(halfL),
			center.Add(halfW).Sub(halfL),
		},
		Area:                  wMean * l,
		Length:                l,
		MinWidth:              wMin,
		MaxWidth:              wMax,
		Thickness:             2.0,
		SensorThickness:       0.2,
		SensorSpacing:         1.6,
		NumSensors:            2,
		HybridWidth:           8,
		SideHybridWidth:       12,
		HybridThickness:       0.8,
		SupportPlateThickness: 0.5,
		StereoRotation:        0.02,
		InnerSensorROC:        tracker.ROCInfo{Rows: 960, Cols: 32, X: 2, Y: 8},
		OuterSensorROC:        tracker.ROCInfo{Rows: 120, Cols: 2, X: 2, Y: 8},
	}
}

// DefaultElements is a small but policy-complete material budget.
func DefaultElements() []tracker.MaterialElement {
	return []tracker.MaterialElement{
		{Element: "Cu", Grams: 2.5, Policy: tracker.PolicySingle, Target: tracker.KindFrontHybrid},
		{Element: "Si", Grams: 1.2, Policy: tracker.PolicyFrontBack},
		{Element: "C", Grams: 4.0, Policy: tracker.PolicySingle, Target: tracker.KindSupportPlate},
		{Element: "CO2", Grams: 0.8, Policy: tracker.PolicyUniform},
		{Element: "Al", Grams: 1.6, Policy: tracker.PolicyLeftRight},
	}
}

// Capsule wraps a module with the default material budget. The silicon
// mass is chosen so a 9000 mm2 module derives a 0.2 mm sensor thickness
// against the SampleMaterials silicon row.
func Capsule(m tracker.Module) tracker.ModuleCapsule {
	return tracker.ModuleCapsule{
		Module:            m,
		Elements:          DefaultElements(),
		RadiationLength:   0.02,
		InteractionLength: 0.005,
		Surface:           m.Area,
		SensorMass:        4.194,
		TotalMass:         10.1,
	}
}

// SampleMaterials returns a table with the sensor silicon row and a few
// chemical elements.
func SampleMaterials() tracker.MaterialTable {
	return tracker.MaterialTable{Rows: []tracker.MaterialRow{
		{Tag: "SenSi", Density: 2.33, RadiationLength: 93.7, InteractionLength: 465.2},
		{Tag: "Cu", Density: 8.96, RadiationLength: 12.86, InteractionLength: 137.3},
		{Tag: "C", Density: 2.21, RadiationLength: 42.7, InteractionLength: 856.0},
		{Tag: "Al", Density: 2.70, RadiationLength: 24.01, InteractionLength: 1003.4},
	}}
}

// SampleModel assembles a small but feature-complete tracker: one flat
// and one tilted barrel layer, one endcap disc with two rings, and a
// handful of passive volumes.
func SampleModel() *tracker.Model {
	flat := tracker.BarrelLayer{Index: 1, NumRods: 12, StartAngleDeg: 15}
	for _, side := range []int{1, -1} {
		for phi := 1; phi <= 2; phi++ {
			for ring := 1; ring <= 2; ring++ {
				z := float64(side) * (float64(ring) - 0.5) * 100
				m := BarrelModule(side, phi, ring, 230, z)
				if ring == 2 {
					m.Flipped = true
				}
				flat.Capsules = append(flat.Capsules, Capsule(m))
			}
		}
	}

	tilted := tracker.BarrelLayer{Index: 2, NumRods: 10, TiltDeg: 60}
	for _, side := range []int{1, -1} {
		for phi := 1; phi <= 2; phi++ {
			// Ring 1 sits in the flat center section, ring 2 is tilted.
			z1 := float64(side) * 60
			tilted.Capsules = append(tilted.Capsules,
				Capsule(TiltedBarrelModule(side, phi, 1, 320, z1, 0)))
			z2 := float64(side) * 240
			tilted.Capsules = append(tilted.Capsules,
				Capsule(TiltedBarrelModule(side, phi, 2, 310, z2, 1.0)))
		}
	}

	disc := tracker.EndcapDisc{Index: 1}
	for ring := 1; ring <= 2; ring++ {
		r := 300 + float64(ring-1)*180
		for phi := 1; phi <= 2; phi++ {
			// Alternate faces of the dual-sided disc.
			z := 1300.0 + float64(phi%2)*4 - 2
			disc.Capsules = append(disc.Capsules, Capsule(EndcapModule(phi, ring, r, z)))
		}
	}

	inactives := tracker.InactiveSurfaces{
		BarrelServices: []tracker.InactiveElement{
			{
				Category: tracker.CategoryBarrelService,
				ZOffset:  0, ZLength: 220, RInner: 242, RWidth: 4,
				TotalMass: 120,
				Masses: []tracker.MassEntry{
					{Tag: "Cu", Element: "Cu", Grams: 80},
					{Tag: "CO2", Element: "CO2", Grams: 40},
				},
			},
			{
				Category: tracker.CategoryBarrelService,
				ZOffset:  220, ZLength: 150, RInner: 242, RWidth: 4,
				TotalMass: 60,
				Masses:    []tracker.MassEntry{{Tag: "Cu", Element: "Cu", Grams: 60}},
			},
		},
		EndcapServices: []tracker.InactiveElement{
			{
				Category: tracker.CategoryEndcapService,
				ZOffset:  1250, ZLength: 30, RInner: 280, RWidth: 6,
				Vertical:  true,
				TotalMass: 45,
				Masses:    []tracker.MassEntry{{Tag: "Al", Element: "Al", Grams: 45}},
			},
		},
		Supports: []tracker.InactiveElement{
			{
				Category: tracker.CategoryBarrelSupport,
				ZOffset:  0, ZLength: 600, RInner: 350, RWidth: 8,
				TotalMass: 500,
				Masses:    []tracker.MassEntry{{Tag: "C", Element: "C", Grams: 500}},
			},
			{
				Category: tracker.CategoryTubeSupport,
				ZOffset:  0, ZLength: 2400, RInner: 1180, RWidth: 10,
				TotalMass: 2000,
				Masses:    []tracker.MassEntry{{Tag: "C", Element: "C", Grams: 2000}},
			},
		},
	}

	return &tracker.Model{
		Name:      "OuterTracker",
		Barrels:   []tracker.Barrel{{Name: "TB", Layers: []tracker.BarrelLayer{flat, tilted}}},
		Endcaps:   []tracker.Endcap{{Name: "TE", Discs: []tracker.EndcapDisc{disc}}},
		Inactives: inactives,
		Materials: SampleMaterials(),
	}
}
