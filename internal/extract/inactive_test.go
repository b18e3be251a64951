package extract

import (
	"context"
	"math"
	"testing"

	"detgeom/internal/geomutil"
	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
	"detgeom/testutil"
)

func inactiveBundle(t *testing.T, is *tracker.InactiveSurfaces) *geometry.Bundle {
	t.Helper()
	e := New(DefaultConfig())
	b, err := e.InactiveVolumes(context.Background(), is)
	if err != nil {
		t.Fatalf("InactiveVolumes: %v", err)
	}
	return b
}

func TestInactiveBarrelServices(t *testing.T) {
	model := testutil.SampleModel()
	b := inactiveBundle(t, &model.Inactives)

	s := findShape(t, b, "ServiceR242Z110")
	if s.Kind != geometry.ShapeTube || s.RMin != 242 || s.RMax != 246 || s.DZ != 110 {
		t.Errorf("service tube = %+v", s)
	}
	if l := findLogical(t, b, "ServiceR242Z110"); l.Material != "ServiceCompositeBSerR242Z110" {
		t.Errorf("service material = %q", l.Material)
	}

	c := findComposite(t, b, "ServiceCompositeBSerR242Z110")
	wantDensity := geomutil.AnnulusDensity(120, 242, 4, 220)
	if math.Abs(c.Density-wantDensity) > 1e-12 {
		t.Errorf("service density = %v, want %v", c.Density, wantDensity)
	}
	if len(c.Elements) != 2 {
		t.Fatalf("service constituents = %d, want 2", len(c.Elements))
	}
	// Fractions normalize the 80 g of Cu and 40 g of CO2.
	if c.Elements[0].Material != "CO2" || math.Abs(c.Elements[0].Fraction-1.0/3) > 1e-12 {
		t.Errorf("constituent 0 = %+v", c.Elements[0])
	}
	if c.Elements[1].Material != "Cu" || math.Abs(c.Elements[1].Fraction-2.0/3) > 1e-12 {
		t.Errorf("constituent 1 = %+v", c.Elements[1])
	}

	// Mirrored pair of placements around z zero.
	p1 := findPlacement(t, b, "OTBarrel", "ServiceR242Z110", 1)
	p2 := findPlacement(t, b, "OTBarrel", "ServiceR242Z110", 2)
	if p1.Translation.Z != 110 || p2.Translation.Z != -110 {
		t.Errorf("service z = %v / %v", p1.Translation.Z, p2.Translation.Z)
	}
	if p1.Rotation != "" || p2.Rotation != rotFlip {
		t.Errorf("service rotations = %q / %q", p1.Rotation, p2.Rotation)
	}

	// The second service sits further out in z.
	if !b.HasShape("ServiceR242Z295") {
		t.Error("offset service missing")
	}
}

func TestInactiveDedupesPassThroughServices(t *testing.T) {
	is := tracker.InactiveSurfaces{
		BarrelServices: []tracker.InactiveElement{
			{
				Category: tracker.CategoryBarrelService,
				ZOffset:  0, ZLength: 200, RInner: 242, RWidth: 4,
				TotalMass: 10,
				Masses:    []tracker.MassEntry{{Tag: "Cu", Element: "Cu", Grams: 10}},
			},
			{
				// Same inner radius at z offset zero: the mirrored twin.
				Category: tracker.CategoryBarrelService,
				ZOffset:  0, ZLength: 200, RInner: 242.4, RWidth: 4,
				TotalMass: 10,
				Masses:    []tracker.MassEntry{{Tag: "Cu", Element: "Cu", Grams: 10}},
			},
		},
	}
	b := inactiveBundle(t, &is)
	if len(b.Shapes) != 1 {
		t.Errorf("shapes = %d, want the twin dropped", len(b.Shapes))
	}
}

func TestInactiveSkipsNegativeAndEmpty(t *testing.T) {
	is := tracker.InactiveSurfaces{
		BarrelServices: []tracker.InactiveElement{
			{
				// Entirely on the negative side; its mirror emits it.
				Category: tracker.CategoryBarrelService,
				ZOffset:  -300, ZLength: 100, RInner: 250, RWidth: 4,
				TotalMass: 10,
				Masses:    []tracker.MassEntry{{Tag: "Cu", Element: "Cu", Grams: 10}},
			},
			{
				// No recorded masses.
				Category: tracker.CategoryBarrelService,
				ZOffset:  100, ZLength: 100, RInner: 250, RWidth: 4,
			},
		},
	}
	b := inactiveBundle(t, &is)
	if len(b.Shapes) != 0 || len(b.Composites) != 0 {
		t.Errorf("bundle not empty: %d shapes, %d composites", len(b.Shapes), len(b.Composites))
	}
}

func TestInactiveSupports(t *testing.T) {
	model := testutil.SampleModel()
	b := inactiveBundle(t, &model.Inactives)

	// Barrel support: placed at its own z offset.
	p := findPlacement(t, b, "OTBarrel", "SupportR350Z300", 1)
	if p.Translation.Z != 300 {
		t.Errorf("barrel support z = %v, want 300", p.Translation.Z)
	}
	if _, ok := findCompositeOK(b, "SupportCompositeBSup"); !ok {
		t.Error("barrel support composite missing")
	}

	// Tube support: spans both sides, so it is centered.
	pt := findPlacement(t, b, "OTBarrel", "SupportR1180Z1200", 1)
	if pt.Translation.Z != 0 {
		t.Errorf("tube support z = %v, want 0", pt.Translation.Z)
	}
	if _, ok := findCompositeOK(b, "SupportCompositeTSup"); !ok {
		t.Error("tube support composite missing")
	}
}

func TestInactiveOneCompositePerSupportCategory(t *testing.T) {
	is := tracker.InactiveSurfaces{
		Supports: []tracker.InactiveElement{
			{
				Category: tracker.CategoryBarrelSupport,
				ZOffset:  0, ZLength: 100, RInner: 300, RWidth: 5,
				TotalMass: 10,
				Masses:    []tracker.MassEntry{{Tag: "C", Element: "C", Grams: 10}},
			},
			{
				Category: tracker.CategoryBarrelSupport,
				ZOffset:  200, ZLength: 100, RInner: 400, RWidth: 5,
				TotalMass: 10,
				Masses:    []tracker.MassEntry{{Tag: "C", Element: "C", Grams: 10}},
			},
		},
	}
	b := inactiveBundle(t, &is)
	if len(b.Composites) != 1 {
		t.Errorf("composites = %d, want 1 per category", len(b.Composites))
	}
	if len(b.Shapes) != 1 {
		t.Errorf("shapes = %d, want the second support dropped", len(b.Shapes))
	}
}

func TestInactiveEndcapServiceParent(t *testing.T) {
	model := testutil.SampleModel()
	b := inactiveBundle(t, &model.Inactives)

	// Endcap services attach to the endcap volume and their composite
	// name keys on the z position only.
	p := findPlacement(t, b, "OTForward", "ServiceR280Z1265", 1)
	if p.Translation.Z != 1265 {
		t.Errorf("endcap service z = %v", p.Translation.Z)
	}
	if l := findLogical(t, b, "ServiceR280Z1265"); l.Material != "ServiceCompositeESerZ1265" {
		t.Errorf("endcap service material = %q", l.Material)
	}
}

func findCompositeOK(b *geometry.Bundle, name string) (geometry.Composite, bool) {
	for _, c := range b.Composites {
		if c.Name == name {
			return c, true
		}
	}
	return geometry.Composite{}, false
}
