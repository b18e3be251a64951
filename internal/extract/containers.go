package extract

import (
	"context"
	"fmt"
	"math"

	"detgeom/internal/decompose"
	"detgeom/internal/topology"
	"detgeom/pkg/geometry"
)

// GlobalEnvelope computes the polycone cross-sections bounding the whole
// barrel and the positive-z endcap. Each polycone is described by two
// ordered point lists: the ascending points at decreasing z (up) and the
// matching points at increasing z (down), joined into one closed contour.
func (e *Engine) GlobalEnvelope(ctx context.Context, topo *topology.Topology) (*geometry.Bundle, error) {
	b := geometry.NewBundle()

	up, down, err := e.barrelContour(topo)
	if err != nil {
		return nil, err
	}
	if len(up) > 0 {
		if err := b.AddShape(geometry.Shape{
			Name:   e.cfg.BarrelVolume,
			Kind:   geometry.ShapePolycone,
			Points: closeContour(up, down),
		}); err != nil {
			return nil, err
		}
	}
	e.log.Debug("barrel container done", "points", len(up)+len(down))

	up, down, err = e.endcapContour(topo)
	if err != nil {
		return nil, err
	}
	if len(up) > 0 && len(down) > 0 {
		if err := b.AddShape(geometry.Shape{
			Name:   e.cfg.EndcapVolume,
			Kind:   geometry.ShapePolycone,
			Points: closeContour(up, down),
		}); err != nil {
			return nil, err
		}
	}
	e.log.Debug("endcap container done", "points", len(up)+len(down))

	return b, nil
}

// closeContour joins the two polyline halves into one closed polycone
// contour: up first to last, then down last to first.
func closeContour(up, down []geometry.RZPoint) []geometry.RZPoint {
	pts := make([]geometry.RZPoint, 0, len(up)+len(down))
	pts = append(pts, up...)
	for i := len(down) - 1; i >= 0; i-- {
		pts = append(pts, down[i])
	}
	return pts
}

// barrelContour folds per-layer extrema into the barrel polycone halves.
// Layer extrema come from boundary modules only (azimuthal index 1 and 2 on
// the positive side); a step is inserted whenever a layer's z extent differs
// from the previous one.
func (e *Engine) barrelContour(topo *topology.Topology) (up, down []geometry.RZPoint, err error) {
	var rmax, zmax, zmin float64
	nLayers := len(topo.Layers)

	for li := range topo.Layers {
		layer := &topo.Layers[li]
		lrmin := math.Inf(1)
		lrmax, lzmax := 0.0, 0.0

		for ci := range layer.Capsules {
			cap := &layer.Capsules[ci]
			ref := cap.Module.Ref
			if ref.Side <= 0 || (ref.Phi != 1 && ref.Phi != 2) {
				continue
			}
			mname := fmt.Sprintf("%s%d%s%d", barrelModulePrefix, ref.Ring, layerPrefix, layer.Index)
			d, derr := decompose.Decompose(cap, mname)
			if derr != nil {
				return nil, nil, derr
			}
			lrmin = math.Min(lrmin, d.Envelope.RMin)
			lrmax = math.Max(lrmax, d.Envelope.RMax)
			lzmax = math.Max(lzmax, d.Envelope.ZMax)
		}
		lzmin := -lzmax

		if li == 0 {
			up = append(up, geometry.RZPoint{R: lrmin, Z: lzmin})
			down = append(down, geometry.RZPoint{R: lrmin, Z: lzmax})
		} else if lzmax != zmax {
			// A step between layers of different length: close the
			// previous extent at the old radius, reopen at the new.
			stepR := rmax
			if lzmax > zmax {
				stepR = lrmin
			}
			up = append(up,
				geometry.RZPoint{R: stepR, Z: zmin},
				geometry.RZPoint{R: stepR, Z: lzmin})
			down = append(down,
				geometry.RZPoint{R: stepR, Z: zmax},
				geometry.RZPoint{R: stepR, Z: lzmax})
		}
		if li == nLayers-1 {
			up = append(up, geometry.RZPoint{R: lrmax, Z: lzmin})
			down = append(down, geometry.RZPoint{R: lrmax, Z: lzmax})
		}

		rmax = lrmax
		if lzmin < 0 {
			zmin = lzmin
		}
		if lzmax > 0 {
			zmax = lzmax
		}
	}
	return up, down, nil
}

// endcapContour folds per-disc extrema into the endcap polycone halves,
// shifted into the endcap volume's frame by the configured z offset. Steps
// are inserted at radius transitions between consecutive discs.
func (e *Engine) endcapContour(topo *topology.Topology) (up, down []geometry.RZPoint, err error) {
	var rmin, rmax, zmax float64
	first := -1
	nDiscs := len(topo.Discs)

	for di := range topo.Discs {
		disc := &topo.Discs[di]
		lrmin, lzmin := math.Inf(1), math.Inf(1)
		lrmax, lzmax := 0.0, 0.0

		seen := map[int]struct{}{}
		for ci := range disc.Capsules {
			cap := &disc.Capsules[ci]
			ring := cap.Module.Ref.Ring
			if _, ok := seen[ring]; ok {
				continue
			}
			seen[ring] = struct{}{}
			mname := fmt.Sprintf("%s%d%s%d", endcapModulePrefix, ring, discPrefix, disc.Index)
			d, derr := decompose.Decompose(cap, mname)
			if derr != nil {
				return nil, nil, derr
			}
			lrmin = math.Min(lrmin, d.Envelope.RMin)
			lrmax = math.Max(lrmax, d.Envelope.RMax)
			lzmin = math.Min(lzmin, d.Envelope.ZMin)
			lzmax = math.Max(lzmax, d.Envelope.ZMax)
		}

		if lzmax > 0 && first < 0 {
			first = di
		}
		if first < 0 || di < first {
			continue
		}

		if di == first {
			rmin, rmax = lrmin, lrmax
			z := lzmin - e.cfg.EndcapZOffset
			up = append(up, geometry.RZPoint{R: rmax, Z: z})
			down = append(down, geometry.RZPoint{R: rmin, Z: z})
		} else if rmax != lrmax {
			// Radius transition between discs: close the previous radial
			// band, then reopen at the new one.
			z := zmax - e.cfg.EndcapZOffset
			if rmax < lrmax {
				z = lzmin - e.cfg.EndcapZOffset
			}
			up = append(up, geometry.RZPoint{R: rmax, Z: z})
			down = append(down, geometry.RZPoint{R: rmin, Z: z})
			rmax, rmin = lrmax, lrmin
			up = append(up, geometry.RZPoint{R: rmax, Z: z})
			down = append(down, geometry.RZPoint{R: rmin, Z: z})
		}
		zmax = lzmax
		if di == nDiscs-1 {
			z := zmax - e.cfg.EndcapZOffset
			up = append(up, geometry.RZPoint{R: rmax, Z: z})
			down = append(down, geometry.RZPoint{R: rmin, Z: z})
		}
	}
	return up, down, nil
}
