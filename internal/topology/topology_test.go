package topology

import (
	"math"
	"testing"

	"detgeom/pkg/tracker"
	"detgeom/testutil"
)

func TestAggregateFlattensLayersAndDiscs(t *testing.T) {
	model := testutil.SampleModel()
	top := Aggregate(model)

	if len(top.Layers) != 2 {
		t.Fatalf("layers = %d, want 2", len(top.Layers))
	}
	flat := top.Layers[0]
	if flat.Barrel != "TB" || flat.Index != 1 {
		t.Errorf("layer 0 = %s/%d, want TB/1", flat.Barrel, flat.Index)
	}
	if flat.Tilted {
		t.Error("layer 1 reported tilted")
	}
	if flat.NumRods != 12 || flat.StartAngleDeg != 15 {
		t.Errorf("layer 1 rods/start = %d/%v", flat.NumRods, flat.StartAngleDeg)
	}
	if len(flat.Capsules) != 8 {
		t.Errorf("layer 1 capsules = %d, want 8", len(flat.Capsules))
	}

	tilted := top.Layers[1]
	if !tilted.Tilted {
		t.Error("layer 2 not reported tilted")
	}
	if tilted.TiltDeg != 60 {
		t.Errorf("layer 2 tilt = %v", tilted.TiltDeg)
	}

	if len(top.Discs) != 1 {
		t.Fatalf("discs = %d, want 1", len(top.Discs))
	}
	disc := top.Discs[0]
	if disc.Endcap != "TE" || disc.Index != 1 {
		t.Errorf("disc 0 = %s/%d, want TE/1", disc.Endcap, disc.Index)
	}
	if len(disc.Capsules) != 4 {
		t.Errorf("disc 1 capsules = %d, want 4", len(disc.Capsules))
	}
}

func TestDiscCapsMinZ(t *testing.T) {
	model := testutil.SampleModel()
	top := Aggregate(model)
	if got := top.Discs[0].MinZ(); got != 1298 {
		t.Errorf("MinZ = %v, want 1298", got)
	}
	empty := DiscCaps{}
	if got := empty.MinZ(); !math.IsInf(got, 1) {
		t.Errorf("MinZ of empty disc = %v, want +Inf", got)
	}
}

func TestAggregateEmptyModel(t *testing.T) {
	top := Aggregate(&tracker.Model{Name: "Empty"})
	if len(top.Layers) != 0 || len(top.Discs) != 0 {
		t.Errorf("empty model produced %d layers, %d discs", len(top.Layers), len(top.Discs))
	}
}
