package extract

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
	"detgeom/testutil"
)

func findShape(t *testing.T, b *geometry.Bundle, name string) geometry.Shape {
	t.Helper()
	for _, s := range b.Shapes {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("shape %q not in bundle", name)
	return geometry.Shape{}
}

func findLogical(t *testing.T, b *geometry.Bundle, name string) geometry.LogicalVolume {
	t.Helper()
	for _, l := range b.Logicals {
		if l.Name == name {
			return l
		}
	}
	t.Fatalf("logical volume %q not in bundle", name)
	return geometry.LogicalVolume{}
}

func findPlacement(t *testing.T, b *geometry.Bundle, parent, child string, copyNo int) geometry.Placement {
	t.Helper()
	for _, p := range b.Placements {
		if p.Parent == parent && p.Child == child && p.Copy == copyNo {
			return p
		}
	}
	t.Fatalf("placement %s/%s copy %d not in bundle", parent, child, copyNo)
	return geometry.Placement{}
}

func hasPlacement(b *geometry.Bundle, parent, child string, copyNo int) bool {
	for _, p := range b.Placements {
		if p.Parent == parent && p.Child == child && p.Copy == copyNo {
			return true
		}
	}
	return false
}

func findAlgos(b *geometry.Bundle, name, parent string) []geometry.AlgoCall {
	var out []geometry.AlgoCall
	for _, a := range b.Algos {
		if a.Name == name && a.Parent == parent {
			out = append(out, a)
		}
	}
	return out
}

func findComposite(t *testing.T, b *geometry.Bundle, name string) geometry.Composite {
	t.Helper()
	for _, c := range b.Composites {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("composite %q not in bundle", name)
	return geometry.Composite{}
}

func numParam(t *testing.T, a geometry.AlgoCall, name string) float64 {
	t.Helper()
	for _, p := range a.Params {
		if p.Name == name && p.Kind == geometry.ParamNumber {
			return p.Number
		}
	}
	t.Fatalf("algo %s has no numeric param %q", a.Name, name)
	return 0
}

func strParam(t *testing.T, a geometry.AlgoCall, name string) string {
	t.Helper()
	for _, p := range a.Params {
		if p.Name == name && p.Kind == geometry.ParamString {
			return p.String
		}
	}
	t.Fatalf("algo %s has no string param %q", a.Name, name)
	return ""
}

func vecParam(t *testing.T, a geometry.AlgoCall, name string) []float64 {
	t.Helper()
	for _, p := range a.Params {
		if p.Name == name && p.Kind == geometry.ParamVector {
			return p.Vector
		}
	}
	t.Fatalf("algo %s has no vector param %q", a.Name, name)
	return nil
}

func TestAnalyseSampleModel(t *testing.T) {
	e := New(DefaultConfig())
	b, err := e.Analyse(context.Background(), testutil.SampleModel())
	if err != nil {
		t.Fatalf("Analyse: %v", err)
	}

	for _, rot := range []string{rotModuleInRod, rotFlippedModuleInRod, rotFlip} {
		if !b.HasRotation(rot) {
			t.Errorf("rotation %q missing", rot)
		}
	}
	for _, name := range []string{"OTBarrel", "OTForward", "Layer1", "Layer2", "Rod1", "Disc1"} {
		if !b.HasShape(name) {
			t.Errorf("shape %q missing", name)
		}
	}
	if len(b.Elements) != 4 {
		t.Errorf("elements = %d, want 4", len(b.Elements))
	}
	if len(b.Summaries) != 3 {
		t.Errorf("summaries = %d, want one per layer and disc", len(b.Summaries))
	}
}

func TestAnalyseIsDeterministic(t *testing.T) {
	e := New(DefaultConfig())
	first, err := e.Analyse(context.Background(), testutil.SampleModel())
	if err != nil {
		t.Fatalf("Analyse: %v", err)
	}
	second, err := e.Analyse(context.Background(), testutil.SampleModel())
	if err != nil {
		t.Fatalf("Analyse: %v", err)
	}
	if diff := cmp.Diff(first, second, cmpopts.IgnoreUnexported(geometry.Bundle{})); diff != "" {
		t.Errorf("repeated analysis differs (-first +second):\n%s", diff)
	}
}

func TestAnalysePropagatesPassError(t *testing.T) {
	model := testutil.SampleModel()
	bad := &model.Barrels[0].Layers[0].Capsules[0]
	bad.Elements = append(bad.Elements, tracker.MaterialElement{
		Element: "Si", Grams: 1, Policy: tracker.PolicySingle, Target: tracker.KindSensor,
	})

	e := New(DefaultConfig())
	if _, err := e.Analyse(context.Background(), model); err == nil {
		t.Fatal("Analyse accepted a sensor-targeted material entry")
	}
}

func TestStereoRotationAngles(t *testing.T) {
	rot := stereoRotation("StereoX", 0.02)
	deg := 0.02 / 3.141592653589793 * 180
	if rot.Name != "StereoX" || rot.PhiX != deg || rot.PhiY != 90+deg {
		t.Errorf("stereo rotation = %+v", rot)
	}
	if rot.ThetaX != 90 || rot.ThetaY != 90 {
		t.Errorf("stereo rotation tilts the axes out of plane: %+v", rot)
	}
}

func TestOptionsReplaceDefaults(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	tr := NewJSONTracer(nil)
	e := New(DefaultConfig(), WithMetricsRecorder(rec), WithTracer(tr), WithLogger(nil))

	if _, err := e.Analyse(context.Background(), testutil.SampleModel()); err != nil {
		t.Fatalf("Analyse: %v", err)
	}

	snap := rec.Snapshot()
	for _, pass := range []string{"containers", "elements", "barrel", "endcap", "inactive"} {
		if snap.Results[pass]["success"] != 1 {
			t.Errorf("pass %q success count = %d, want 1", pass, snap.Results[pass]["success"])
		}
	}
	entries := tr.Entries()
	if len(entries) != 5 {
		t.Fatalf("trace entries = %d, want 5", len(entries))
	}
	if entries[0].Operation != "containers" || entries[4].Operation != "inactive" {
		t.Errorf("trace order = %q .. %q", entries[0].Operation, entries[4].Operation)
	}
}
