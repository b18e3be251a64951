package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"detgeom/internal/persistence"
	"detgeom/pkg/geometry"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "runs", "detgeom.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(name string, created time.Time) Run {
	b := geometry.NewBundle()
	_ = b.AddShape(geometry.Shape{Name: "Layer1", Kind: geometry.ShapeTube, RMin: 220, RMax: 240, DZ: 300})
	_ = b.AddLogical(geometry.LogicalVolume{Name: "Layer1", Solid: "Layer1", Material: "Air"})
	return Run{
		Name:      name,
		Model:     "OuterTracker",
		CreatedAt: created,
		Counts:    persistence.CountsOf(b),
		Bundle:    b,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	created := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	want := sampleRun("run-1", created)
	if err := s.SaveRun(ctx, want); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(geometry.Bundle{})); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}
	// The decoded bundle rebuilds its uniqueness indexes.
	if err := got.Bundle.AddShape(geometry.Shape{Name: "Layer1"}); err == nil {
		t.Error("decoded bundle accepted a duplicate shape")
	}
}

func TestSaveRunReplacesByName(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first := sampleRun("run-1", time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC))
	if err := s.SaveRun(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := first
	second.Model = "InnerTracker"
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	if err := s.SaveRun(ctx, second); err != nil {
		t.Fatalf("SaveRun replace: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Model != "InnerTracker" || !got.CreatedAt.Equal(second.CreatedAt) {
		t.Errorf("run = %+v, want the replacement", got)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("runs = %d, want 1 after replace", len(runs))
	}
}

func TestListRunsNewestFirstWithoutBundles(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"old", "mid", "new"} {
		if err := s.SaveRun(ctx, sampleRun(name, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 || runs[0].Name != "new" || runs[2].Name != "old" {
		t.Errorf("order = %v", runNames(runs))
	}
	for _, r := range runs {
		if r.Bundle != nil {
			t.Errorf("run %s carries a bundle in the listing", r.Name)
		}
		if r.Counts.Shapes != 1 {
			t.Errorf("run %s counts = %+v", r.Name, r.Counts)
		}
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.GetRun(context.Background(), "absent")
	if !errors.Is(err, persistence.ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func runNames(runs []Run) []string {
	names := make([]string, len(runs))
	for i, r := range runs {
		names[i] = r.Name
	}
	return names
}
