// Package topology flattens the tracker's barrel/endcap hierarchy into
// ordered per-layer and per-disc capsule lists ready for the analysis
// passes. The traversal is a single pass; the returned structures are
// fully populated and never mutated afterwards.
package topology

import (
	"math"

	"detgeom/pkg/tracker"
)

// LayerCaps is the flattened view of one barrel layer.
type LayerCaps struct {
	Barrel        string
	Index         int
	NumRods       int
	TiltDeg       float64
	StartAngleDeg float64
	Tilted        bool
	Capsules      []tracker.ModuleCapsule
}

// DiscCaps is the flattened view of one endcap disc.
type DiscCaps struct {
	Endcap   string
	Index    int
	Capsules []tracker.ModuleCapsule
}

// MinZ returns the smallest axial coordinate among the disc's module
// centers, or +Inf for an empty disc. Mirror discs on the backward side
// report a negative value.
func (d *DiscCaps) MinZ() float64 {
	min := math.Inf(1)
	for i := range d.Capsules {
		if z := d.Capsules[i].Module.Center.Z; z < min {
			min = z
		}
	}
	return min
}

// Topology is the flattened tracker structure. Materials points at the
// model's material table so the passes can resolve density rows without
// carrying the model around.
type Topology struct {
	Layers    []LayerCaps
	Discs     []DiscCaps
	Materials *tracker.MaterialTable
}

// Aggregate walks the model once and returns its flattened topology.
// Layers and discs appear in increasing index order within each barrel or
// endcap; module order inside each list is the model's own order.
func Aggregate(model *tracker.Model) *Topology {
	t := &Topology{Materials: &model.Materials}
	for bi := range model.Barrels {
		b := &model.Barrels[bi]
		for li := range b.Layers {
			l := &b.Layers[li]
			t.Layers = append(t.Layers, LayerCaps{
				Barrel:        b.Name,
				Index:         l.Index,
				NumRods:       l.NumRods,
				TiltDeg:       l.TiltDeg,
				StartAngleDeg: l.StartAngleDeg,
				Tilted:        l.Tilted(),
				Capsules:      l.Capsules,
			})
		}
	}
	for ei := range model.Endcaps {
		e := &model.Endcaps[ei]
		for di := range e.Discs {
			d := &e.Discs[di]
			t.Discs = append(t.Discs, DiscCaps{
				Endcap:   e.Name,
				Index:    d.Index,
				Capsules: d.Capsules,
			})
		}
	}
	return t
}
