package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatal("generated name empty")
	}
	if !strings.HasPrefix(rec.Name(), "extract_engine_metrics_") {
		t.Errorf("generated name = %q", rec.Name())
	}

	ctx := context.Background()
	rec.Observe(ctx, "barrel", true, 20*time.Millisecond)
	rec.Observe(ctx, "barrel", true, 30*time.Millisecond)
	rec.Observe(ctx, "endcap", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	snap := rec.Snapshot()
	if got := snap.DurationsMS["barrel"]; got != 50 {
		t.Errorf("barrel duration total = %v, want 50", got)
	}
	if snap.Results["barrel"]["success"] != 2 {
		t.Errorf("barrel successes = %d", snap.Results["barrel"]["success"])
	}
	if snap.Results["endcap"]["error"] != 1 {
		t.Errorf("endcap errors = %d", snap.Results["endcap"]["error"])
	}
	if _, ok := snap.Results[""]; ok {
		t.Error("unnamed operation recorded")
	}

	// Snapshots are copies.
	snap.DurationsMS["barrel"] = 0
	if rec.Snapshot().DurationsMS["barrel"] != 50 {
		t.Error("snapshot shares state with the recorder")
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("NewPrometheusMetricsRecorder: %v", err)
	}
	rec.Observe(context.Background(), "barrel", true, 10*time.Millisecond)
	rec.Observe(context.Background(), "barrel", false, 10*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	if !names["detgeom_extract_pass_duration_seconds"] || !names["detgeom_extract_pass_results_total"] {
		t.Errorf("gathered families = %v", names)
	}

	// A second recorder on the same registry collides.
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Error("duplicate registration accepted")
	}
}

func TestJSONTraceTracer(t *testing.T) {
	var buf bytes.Buffer
	tr := NewJSONTracer(&buf)

	_, span := tr.Start(context.Background(), "barrel")
	span.End(nil)
	_, span = tr.Start(context.Background(), "endcap")
	span.End(errors.New("boom"))

	entries := tr.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if !entries[0].Success || entries[0].Operation != "barrel" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Success || entries[1].Error != "boom" {
		t.Errorf("entry 1 = %+v", entries[1])
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("serialized lines = %d, want 2", len(lines))
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("decode trace line: %v", err)
	}
	if decoded.Operation != "endcap" || decoded.Error != "boom" {
		t.Errorf("decoded = %+v", decoded)
	}
}
