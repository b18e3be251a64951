package extract

import (
	"math"
	"testing"

	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
)

func TestSensorStack2SBarrel(t *testing.T) {
	b := barrelBundle(t)

	// Both wafers of the two-sensor module, placed half a spacing apart.
	lower := findPlacement(t, b, "BModule1Layer1", "BModule1Layer1LowerWafer", 1)
	upper := findPlacement(t, b, "BModule1Layer1", "BModule1Layer1UpperWafer", 1)
	if lower.Translation.Z != -0.9 || upper.Translation.Z != 0.9 {
		t.Errorf("wafer z = %v / %v, want half the 1.8 mm spacing", lower.Translation.Z, upper.Translation.Z)
	}
	// Barrel 2S modules have no stereo angle.
	if upper.Rotation != "" {
		t.Errorf("upper wafer rotation = %q", upper.Rotation)
	}

	// Active surfaces bound to the sensor silicon, their thickness derived
	// from the deposited silicon mass: 4.194 g over 9000 mm2 at 2.33 g/cm3.
	for _, tag := range []string{lowerTag, upperTag} {
		name := "BModule1Layer1" + tag + ssActiveSuffix
		if l := findLogical(t, b, name); l.Material != tracker.SensorSiliconTag {
			t.Errorf("%s material = %q", name, l.Material)
		}
		if s := findShape(t, b, name); math.Abs(s.DZ-0.1) > 1e-12 {
			t.Errorf("%s DZ = %v, want 0.1", name, s.DZ)
		}
		findPlacement(t, b, "BModule1Layer1"+tag+waferSuffix, name, 1)
	}
}

func TestSensorStackPSEndcap(t *testing.T) {
	b := endcapBundle(t)

	// PS modules split into a pixel side and a strip side.
	pixel := "EModule1Disc1" + lowerTag + psPixelActiveSuffix
	strip := "EModule1Disc1" + upperTag + psStripActiveSuffix
	for _, name := range []string{pixel, strip} {
		s := findShape(t, b, name)
		if s.Kind != geometry.ShapeTrapezoid {
			t.Errorf("%s kind = %q, want the wedge outline", name, s.Kind)
		}
	}

	// Endcap modules carry a stereo rotation between sensors.
	upper := findPlacement(t, b, "EModule1Disc1", "EModule1Disc1"+upperTag+waferSuffix, 1)
	want := stereoRotationPrefix + "EModule1Disc1"
	if upper.Rotation != want {
		t.Errorf("upper wafer rotation = %q, want %q", upper.Rotation, want)
	}
	if !b.HasRotation(want) {
		t.Errorf("rotation %q not registered", want)
	}
}

func TestSensorStackROCRecords(t *testing.T) {
	b := barrelBundle(t)

	var got []geometry.ModuleROCInfo
	for _, r := range b.ROCs {
		if r.Name == "BModule1Layer1"+lowerTag+ssActiveSuffix {
			got = append(got, r)
		}
	}
	if len(got) != 1 {
		t.Fatalf("ROC records for lower active = %d, want 1", len(got))
	}
	if got[0].ROCRows != 127 || got[0].ROCCols != 2 || got[0].ROCX != 8 || got[0].ROCY != 2 {
		t.Errorf("ROC record = %+v", got[0])
	}
}

func TestSensorStackSelectors(t *testing.T) {
	b := barrelBundle(t)

	var det *geometry.TopologySelector
	for i := range b.Selectors {
		if b.Selectors[i].Name == selBarrelDet {
			det = &b.Selectors[i]
		}
	}
	if det == nil {
		t.Fatal("barrel module selector missing")
	}
	if len(det.PartSelectors) == 0 || len(det.ModuleTypes) != len(det.PartSelectors) {
		t.Errorf("selector paths and types mismatch: %d vs %d",
			len(det.PartSelectors), len(det.ModuleTypes))
	}
}

func TestActiveNameRejectsUnknownType(t *testing.T) {
	m := tracker.Module{Type: "weird"}
	if _, err := activeName(&m, "M", lowerTag); err == nil {
		t.Error("unknown module type accepted")
	}
}
