// Package extract implements the geometry extraction engine: it walks a
// tracker model and produces the record bundle (solids, logical volumes,
// placements, rotations, replication algorithm calls, composite materials,
// topology selectors and material-budget summaries) a downstream serializer
// turns into a detector description.
package extract

import (
	"context"
	"fmt"
	"math"
	"time"

	"detgeom/internal/topology"
	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
)

// Engine runs the analysis passes over a tracker model. Construct it with
// New; the zero value is not usable.
type Engine struct {
	cfg     Config
	log     Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger directs the engine's progress and warning output to log.
func WithLogger(log Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetricsRecorder records per-pass timing and outcomes.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithTracer wraps each pass in a trace span.
func WithTracer(t Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// New constructs an engine with the given configuration.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		log:     NopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyse runs all passes over the model and returns the merged bundle.
// Passes run in a fixed order and each appends an independent portion of
// the output, so the result is byte-stable across runs on the same model.
func (e *Engine) Analyse(ctx context.Context, model *tracker.Model) (*geometry.Bundle, error) {
	e.log.Info("starting analysis", "model", model.Name)

	out := geometry.NewBundle()
	e.seedRotations(out)

	topo := topology.Aggregate(model)

	passes := []struct {
		name string
		run  func(context.Context) (*geometry.Bundle, error)
	}{
		{"containers", func(ctx context.Context) (*geometry.Bundle, error) {
			return e.GlobalEnvelope(ctx, topo)
		}},
		{"elements", func(ctx context.Context) (*geometry.Bundle, error) {
			return e.ElementaryMaterials(ctx, &model.Materials)
		}},
		{"barrel", func(ctx context.Context) (*geometry.Bundle, error) {
			return e.BarrelLayers(ctx, topo)
		}},
		{"endcap", func(ctx context.Context) (*geometry.Bundle, error) {
			return e.EndcapDiscs(ctx, topo)
		}},
		{"inactive", func(ctx context.Context) (*geometry.Bundle, error) {
			return e.InactiveVolumes(ctx, &model.Inactives)
		}},
	}

	for _, pass := range passes {
		b, err := e.observe(ctx, pass.name, pass.run)
		if err != nil {
			return nil, err
		}
		if err := out.Merge(b); err != nil {
			return nil, fmt.Errorf("extract: merge %s pass: %w", pass.name, err)
		}
		e.log.Info("pass done", "pass", pass.name)
	}

	e.log.Info("analysis done",
		"shapes", len(out.Shapes),
		"logicals", len(out.Logicals),
		"placements", len(out.Placements),
		"composites", len(out.Composites))
	return out, nil
}

// observe wraps one pass with tracing and metrics.
func (e *Engine) observe(ctx context.Context, name string, run func(context.Context) (*geometry.Bundle, error)) (*geometry.Bundle, error) {
	spanCtx, span := e.tracer.Start(ctx, name)
	start := time.Now()
	b, err := run(spanCtx)
	e.metrics.Observe(ctx, name, err == nil, time.Since(start))
	span.End(err)
	return b, err
}

// seedRotations inserts the three fixed rotations every analysis reuses:
// the unflipped and flipped module-in-rod orientations and the 180 degree
// flip about Y used to mirror negative-z volumes.
func (e *Engine) seedRotations(b *geometry.Bundle) {
	b.EnsureRotation(geometry.Rotation{
		Name:   rotModuleInRod,
		ThetaX: 90, PhiX: 90,
		ThetaY: 0, PhiY: 0,
		ThetaZ: 90, PhiZ: 0,
	})
	b.EnsureRotation(geometry.Rotation{
		Name:   rotFlippedModuleInRod,
		ThetaX: 90, PhiX: 270,
		ThetaY: 0, PhiY: 0,
		ThetaZ: 90, PhiZ: 180,
	})
	b.EnsureRotation(geometry.Rotation{
		Name:   rotFlip,
		ThetaX: 90, PhiX: 180,
		ThetaY: 90, PhiY: 90,
		ThetaZ: 180, PhiZ: 0,
	})
}

// stereoRotation builds the relative rotation between the two sensors of a
// stereo module. angle is the stereo rotation in radians.
func stereoRotation(name string, angle float64) geometry.Rotation {
	deg := angle / math.Pi * 180
	return geometry.Rotation{
		Name:   name,
		ThetaX: 90, PhiX: deg,
		ThetaY: 90, PhiY: 90 + deg,
	}
}
