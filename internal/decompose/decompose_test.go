package decompose

import (
	"errors"
	"math"
	"testing"

	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
	"detgeom/testutil"
)

func subByKind(t *testing.T, d *Decomposition, kind tracker.SubVolumeKind) *SubVolume {
	t.Helper()
	for i := range d.SubVolumes {
		if d.SubVolumes[i].Kind == kind {
			return &d.SubVolumes[i]
		}
	}
	t.Fatalf("sub-volume %q not found", kind)
	return nil
}

func TestDecomposeSubVolumeLayout(t *testing.T) {
	cap := testutil.Capsule(testutil.BarrelModule(1, 1, 1, 230, 50))
	m := &cap.Module
	d, err := Decompose(&cap, "Mod")
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if len(d.SubVolumes) != 6 {
		t.Fatalf("sub-volumes = %d, want 6", len(d.SubVolumes))
	}

	w := m.MeanWidth()
	l := m.Length
	if d.ExpandedWidth != w+2*m.SideHybridWidth {
		t.Errorf("ExpandedWidth = %v", d.ExpandedWidth)
	}
	if d.ExpandedLength != l+2*m.HybridWidth {
		t.Errorf("ExpandedLength = %v", d.ExpandedLength)
	}
	if d.ExpandedThickness != m.TotalThickness() {
		t.Errorf("ExpandedThickness = %v", d.ExpandedThickness)
	}

	front := subByKind(t, d, tracker.KindFrontHybrid)
	if front.Name != "ModFSide" {
		t.Errorf("front hybrid name = %q", front.Name)
	}
	if front.DX != m.SideHybridWidth || front.DY != l || front.DZ != m.HybridThickness {
		t.Errorf("front hybrid extents = (%v, %v, %v)", front.DX, front.DY, front.DZ)
	}
	if front.Position.X != (w+m.SideHybridWidth)/2 {
		t.Errorf("front hybrid position = %+v", front.Position)
	}

	left := subByKind(t, d, tracker.KindLeftHybrid)
	if left.DX != d.ExpandedWidth || left.DY != m.HybridWidth {
		t.Errorf("left hybrid extents = (%v, %v)", left.DX, left.DY)
	}
	if left.Position.Y != (l+m.HybridWidth)/2 {
		t.Errorf("left hybrid position = %+v", left.Position)
	}

	between := subByKind(t, d, tracker.KindBetween)
	if between.DX != w || between.DY != l || between.DZ != m.SensorSpacing {
		t.Errorf("between extents = (%v, %v, %v)", between.DX, between.DY, between.DZ)
	}
	if between.Position != (geometry.Vec3{}) {
		t.Errorf("between position = %+v, want origin", between.Position)
	}

	plate := subByKind(t, d, tracker.KindSupportPlate)
	wantZ := -((m.SensorSpacing+m.SupportPlateThickness)/2 + m.SensorThickness)
	if plate.Position.Z != wantZ {
		t.Errorf("support plate z = %v, want %v", plate.Position.Z, wantZ)
	}
	if plate.DX != d.ExpandedWidth || plate.DY != d.ExpandedLength {
		t.Errorf("support plate extents = (%v, %v)", plate.DX, plate.DY)
	}
}

func TestDecomposeMassConservation(t *testing.T) {
	cap := testutil.Capsule(testutil.BarrelModule(1, 1, 1, 230, 50))
	d, err := Decompose(&cap, "Mod")
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	var want float64
	for _, el := range cap.Elements {
		want += el.Grams
	}
	var got float64
	for i := range d.SubVolumes {
		got += d.SubVolumes[i].Mass
	}
	if rel := math.Abs(got-want) / want; rel > 1e-9 {
		t.Errorf("total apportioned mass = %v, want %v (rel err %v)", got, want, rel)
	}
}

func TestDecomposeUniformSplitsByVolume(t *testing.T) {
	cap := testutil.Capsule(testutil.BarrelModule(1, 1, 1, 230, 50))
	cap.Elements = []tracker.MaterialElement{
		{Element: "CO2", Grams: 10, Policy: tracker.PolicyUniform},
	}
	d, err := Decompose(&cap, "Mod")
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	kinds := []tracker.SubVolumeKind{
		tracker.KindFrontHybrid, tracker.KindBackHybrid,
		tracker.KindLeftHybrid, tracker.KindRightHybrid,
	}
	var total float64
	for _, k := range kinds {
		total += subByKind(t, d, k).Volume()
	}
	for _, k := range kinds {
		sv := subByKind(t, d, k)
		want := 10 * sv.Volume() / total
		if math.Abs(sv.Mass-want) > 1e-9 {
			t.Errorf("%s mass = %v, want %v", k, sv.Mass, want)
		}
		if sv.Materials["CO2"] != 10 {
			t.Errorf("%s records %v g of CO2, want the full 10", k, sv.Materials["CO2"])
		}
	}
	if m := subByKind(t, d, tracker.KindBetween).Mass; m != 0 {
		t.Errorf("between received %v g from a uniform split", m)
	}
}

func TestDecomposeSensorTargetIsFatal(t *testing.T) {
	cap := testutil.Capsule(testutil.BarrelModule(1, 1, 1, 230, 50))
	cap.Elements = append(cap.Elements, tracker.MaterialElement{
		Element: "Si", Grams: 1, Policy: tracker.PolicySingle, Target: tracker.KindSensor,
	})
	_, err := Decompose(&cap, "Mod")
	var te *TargetError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TargetError", err)
	}
	if te.Target != tracker.KindSensor || te.Module != "Mod" {
		t.Errorf("TargetError = %+v", te)
	}
}

func TestDecomposeEnvelopeIsOrderedAndCentered(t *testing.T) {
	cap := testutil.Capsule(testutil.BarrelModule(1, 1, 1, 230, 50))
	d, err := Decompose(&cap, "Mod")
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	e := d.Envelope
	if e.XMin > e.XMax || e.YMin > e.YMax || e.ZMin > e.ZMax || e.RMin > e.RMax {
		t.Errorf("envelope extrema out of order: %+v", e)
	}
	// The module normal is x, so the x extent equals the expanded
	// thickness around the center radius.
	if math.Abs((e.XMax-e.XMin)-d.ExpandedThickness) > 1e-9 {
		t.Errorf("x extent = %v, want %v", e.XMax-e.XMin, d.ExpandedThickness)
	}
	if math.Abs((e.YMax-e.YMin)-d.ExpandedWidth) > 1e-9 {
		t.Errorf("y extent = %v, want %v", e.YMax-e.YMin, d.ExpandedWidth)
	}
	if math.Abs((e.ZMax-e.ZMin)-d.ExpandedLength) > 1e-9 {
		t.Errorf("z extent = %v, want %v", e.ZMax-e.ZMin, d.ExpandedLength)
	}
}

func TestAppendRecordsSkipMasslessSubVolumes(t *testing.T) {
	cap := testutil.Capsule(testutil.BarrelModule(1, 1, 1, 230, 50))
	// Only the front hybrid carries mass.
	cap.Elements = []tracker.MaterialElement{
		{Element: "Cu", Grams: 3, Policy: tracker.PolicySingle, Target: tracker.KindFrontHybrid},
	}
	d, err := Decompose(&cap, "Mod")
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	b := geometry.NewBundle()
	if err := d.AppendComposites(b, "HybridComposite"); err != nil {
		t.Fatal(err)
	}
	if err := d.AppendShapes(b); err != nil {
		t.Fatal(err)
	}
	if err := d.AppendLogicals(b, "HybridComposite"); err != nil {
		t.Fatal(err)
	}
	if err := d.AppendPlacements(b, "Mod"); err != nil {
		t.Fatal(err)
	}
	if len(b.Shapes) != 1 || b.Shapes[0].Name != "ModFSide" {
		t.Fatalf("shapes = %+v, want only ModFSide", b.Shapes)
	}
	if len(b.Composites) != 1 || b.Composites[0].Name != "HybridCompositeModFSide" {
		t.Fatalf("composites = %+v", b.Composites)
	}
	if len(b.Placements) != 1 || b.Placements[0].Parent != "Mod" {
		t.Fatalf("placements = %+v", b.Placements)
	}
}

func TestAppendCompositesNormalizesFractions(t *testing.T) {
	cap := testutil.Capsule(testutil.BarrelModule(1, 1, 1, 230, 50))
	cap.Elements = []tracker.MaterialElement{
		{Element: "Cu", Grams: 3, Policy: tracker.PolicySingle, Target: tracker.KindFrontHybrid},
		{Element: "Al", Grams: 1, Policy: tracker.PolicySingle, Target: tracker.KindFrontHybrid},
	}
	d, err := Decompose(&cap, "Mod")
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	b := geometry.NewBundle()
	if err := d.AppendComposites(b, ""); err != nil {
		t.Fatal(err)
	}
	if len(b.Composites) != 1 {
		t.Fatalf("composites = %d, want 1", len(b.Composites))
	}
	c := b.Composites[0]
	var sum float64
	for _, f := range c.Elements {
		sum += f.Fraction
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("fraction sum = %v, want 1", sum)
	}
	// Constituents are sorted by element name.
	if c.Elements[0].Material != "Al" || c.Elements[1].Material != "Cu" {
		t.Errorf("constituent order = %+v", c.Elements)
	}
	if math.Abs(c.Elements[1].Fraction-0.75) > 1e-12 {
		t.Errorf("Cu fraction = %v, want 0.75", c.Elements[1].Fraction)
	}
}

func TestSubVolumeDensity(t *testing.T) {
	sv := SubVolume{DX: 10, DY: 10, DZ: 10, Mass: 2}
	// 1000 mm3 = 1 cm3.
	if got := sv.Density(); math.Abs(got-2) > 1e-12 {
		t.Errorf("Density = %v, want 2", got)
	}
	degenerate := SubVolume{DX: 0, DY: 10, DZ: 10, Mass: 2}
	if got := degenerate.Density(); got != 0 {
		t.Errorf("Density of flat sub-volume = %v, want 0", got)
	}
}
