package extract

import (
	"context"
	"fmt"
	"math"
	"sort"

	"detgeom/internal/decompose"
	"detgeom/internal/topology"
	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
)

// endcapRingInfo accumulates the parameters of one endcap ring. The
// azimuthal-index-1 module fills the forward fields, its index-2 neighbour
// the backward axial position.
type endcapRingInfo struct {
	name      string
	childName string
	isZPlus   bool
	fwFlipped bool
	phi       float64
	modules   int

	rMin, rMid, rMax float64
	zMin, zMax       float64
	zFw, zBw         float64
}

// EndcapDiscs emits the records of every positive-z endcap disc: module,
// wafer and active-surface volumes, hybrid sub-volumes, ring containers
// with their replication calls, disc tubes, topology selectors and
// material-budget summaries. The negative-z endcap is produced downstream
// by reflection.
func (e *Engine) EndcapDiscs(ctx context.Context, topo *topology.Topology) (*geometry.Bundle, error) {
	b := geometry.NewBundle()

	discSel := geometry.TopologySelector{
		Name:      selWheel,
		Parameter: geometry.KeyValue{Key: structureKey, Value: structWheel},
	}
	ringSel := geometry.TopologySelector{
		Name:      selRing,
		Parameter: geometry.KeyValue{Key: structureKey, Value: structRing},
	}
	stackSel := geometry.TopologySelector{
		Name:      selEndcapStack,
		Parameter: geometry.KeyValue{Key: structureKey, Value: structEndcapStack},
	}
	moduleSel := geometry.TopologySelector{
		Name:      selEndcapDet,
		Parameter: geometry.KeyValue{Key: structureKey, Value: structEndcapDet},
	}

	for di := range topo.Discs {
		disc := &topo.Discs[di]
		if disc.MinZ() <= 0 {
			continue
		}
		if err := e.emitEndcapDisc(b, disc, topo.Materials, &discSel, &ringSel, &stackSel, &moduleSel); err != nil {
			return nil, err
		}
	}

	for _, sel := range []geometry.TopologySelector{discSel, ringSel, stackSel, moduleSel} {
		if len(sel.PartSelectors) > 0 {
			b.AddSelector(sel)
		}
	}
	return b, nil
}

func (e *Engine) emitEndcapDisc(b *geometry.Bundle, disc *topology.DiscCaps,
	mats *tracker.MaterialTable,
	discSel, ringSel, stackSel, moduleSel *geometry.TopologySelector) error {

	dname := fmt.Sprintf("%s%d", discPrefix, disc.Index)
	eps := e.cfg.Epsilon

	rings, byRing := ringCapsules(disc)

	// First sweep: disc and per-ring axial extrema, disc radial extrema.
	rmin, zmin := math.Inf(1), math.Inf(1)
	rmax, zmax := 0.0, 0.0
	ringZMin := map[int]float64{}
	ringZMax := map[int]float64{}
	for _, ring := range rings {
		ringZMin[ring] = math.Inf(1)
		ringZMax[ring] = 0
	}

	for ci := range disc.Capsules {
		mc := &disc.Capsules[ci]
		ref := mc.Module.Ref
		if ref.Side <= 0 || (ref.Phi != 1 && ref.Phi != 2) {
			continue
		}
		mname := fmt.Sprintf("%s%d%s", endcapModulePrefix, ref.Ring, dname)
		d, err := decompose.Decompose(mc, mname)
		if err != nil {
			return err
		}
		rmin = math.Min(rmin, d.Envelope.RMin)
		rmax = math.Max(rmax, d.Envelope.RMax)
		zmin = math.Min(zmin, d.Envelope.ZMin)
		zmax = math.Max(zmax, d.Envelope.ZMax)
		ringZMin[ref.Ring] = math.Min(ringZMin[ref.Ring], d.Envelope.ZMin)
		ringZMax[ref.Ring] = math.Max(ringZMax[ref.Ring], d.Envelope.ZMax)
	}

	// The disc thickness follows the true z extent of its modules, not
	// their nominal thickness.
	discThickness := zmax - zmin
	zmid := (zmin + zmax) / 2

	rinfo := map[int]*endcapRingInfo{}
	rtotal, itotal := 0.0, 0.0
	count := 0

	// Second sweep: per-module records and ring info.
	for ci := range disc.Capsules {
		mc := &disc.Capsules[ci]
		ref := mc.Module.Ref
		if ref.Side <= 0 || (ref.Phi != 1 && ref.Phi != 2) {
			continue
		}
		modRing := ref.Ring
		mname := fmt.Sprintf("%s%d%s", endcapModulePrefix, modRing, dname)
		rname := fmt.Sprintf("%s%d%s", ringPrefix, modRing, dname)

		if ref.Phi == 1 {
			d, err := decompose.Decompose(mc, mname)
			if err != nil {
				return err
			}
			if err := e.emitEndcapModule(b, mc, d, mname, mats, stackSel, moduleSel); err != nil {
				return err
			}

			rinfo[modRing] = &endcapRingInfo{
				name:      rname,
				childName: mname,
				isZPlus:   ref.Side > 0,
				fwFlipped: mc.Module.Flipped,
				phi:       mc.Module.Center.Phi(),
				modules:   len(byRing[modRing]),
				rMin:      d.Envelope.RMin,
				rMid:      mc.Module.Center.Rho(),
				rMax:      d.Envelope.RMax,
				zMin:      ringZMin[modRing],
				zMax:      ringZMax[modRing],
				zFw:       mc.Module.Center.Z,
			}

			rtotal += mc.RadiationLength
			itotal += mc.InteractionLength
			count++
		}

		if ref.Phi == 2 {
			if ri, ok := rinfo[modRing]; ok {
				ri.zBw = mc.Module.Center.Z
			}
		}
	}

	if count > 0 {
		b.AddSummary(geometry.RadiationLengthSummary{
			Volume:            dname,
			RadiationLength:   rtotal / float64(count),
			InteractionLength: itotal / float64(count),
		})
	}

	// Ring containers and replication calls, rings in ascending order.
	for _, ring := range rings {
		ri, ok := rinfo[ring]
		if !ok || ri.modules <= 0 {
			continue
		}
		if err := b.AddShape(geometry.Shape{
			Name: ri.name,
			Kind: geometry.ShapeTube,
			RMin: ri.rMin - eps,
			RMax: ri.rMax + eps,
			DZ:   (ri.zMax-ri.zMin)/2 + eps,
		}); err != nil {
			return err
		}
		if err := b.AddLogical(geometry.LogicalVolume{Name: ri.name, Solid: ri.name, Material: materialAir}); err != nil {
			return err
		}
		ringZMid := (ri.zMin + ri.zMax) / 2
		if err := b.AddPlacement(geometry.Placement{
			Parent:      dname,
			Child:       ri.name,
			Translation: geometry.Vec3{Z: ringZMid - zmid},
			Copy:        1,
		}); err != nil {
			return err
		}
		ringSel.PartSelectors = append(ringSel.PartSelectors, ri.name)

		zPlus := 0.0
		if ri.isZPlus {
			zPlus = 1.0
		}
		halves := []struct {
			startCopy  float64
			startAngle float64
			zShift     float64
			flipped    bool
		}{
			{1, 360 / float64(ri.modules) * ri.phi, ri.zFw - ringZMid, ri.fwFlipped},
			{2, 360 / float64(ri.modules) * (ri.phi + 1), ri.zBw - ringZMid, !ri.fwFlipped},
		}
		for _, h := range halves {
			flipped := 0.0
			if h.flipped {
				flipped = 1.0
			}
			b.AddAlgo(geometry.AlgoCall{
				Name:   trackerRingAlgo,
				Parent: ri.name,
				Params: []geometry.AlgoParam{
					geometry.StringParam(paramChild, ri.childName),
					geometry.NumberParam(paramNMods, float64(ri.modules/2), ""),
					geometry.NumberParam(paramStartCopyNo, h.startCopy, ""),
					geometry.NumberParam(paramIncrCopyNo, 2, ""),
					geometry.NumberParam(paramRangeAngle, 360, "deg"),
					geometry.NumberParam(paramStartAngle, h.startAngle, "deg"),
					geometry.NumberParam(paramRadius, ri.rMid, "mm"),
					geometry.VectorParam(paramCenter, 0, 0, h.zShift),
					geometry.NumberParam(paramIsZPlus, zPlus, ""),
					geometry.NumberParam(paramTiltAngle, 90, "deg"),
					geometry.NumberParam(paramIsFlipped, flipped, ""),
				},
			})
		}
	}

	// Disc tube, placed in the endcap volume's own frame.
	if err := b.AddShape(geometry.Shape{
		Name: dname,
		Kind: geometry.ShapeTube,
		RMin: rmin - 2*eps,
		RMax: rmax + 2*eps,
		DZ:   discThickness/2 + 2*eps,
	}); err != nil {
		return err
	}
	if err := b.AddLogical(geometry.LogicalVolume{Name: dname, Solid: dname, Material: materialAir}); err != nil {
		return err
	}
	if err := b.AddPlacement(geometry.Placement{
		Parent:      e.cfg.EndcapVolume,
		Child:       dname,
		Translation: geometry.Vec3{Z: zmid - e.cfg.EndcapZOffset},
		Copy:        1,
	}); err != nil {
		return err
	}
	discSel.PartSelectors = append(discSel.PartSelectors, dname)
	return nil
}

// emitEndcapModule writes the volumes of one representative endcap module.
// Ring replication places the copies, so no direct placement is emitted for
// the module box itself.
func (e *Engine) emitEndcapModule(b *geometry.Bundle, mc *tracker.ModuleCapsule,
	d *decompose.Decomposition, mname string,
	mats *tracker.MaterialTable,
	stackSel, moduleSel *geometry.TopologySelector) error {

	m := &mc.Module

	shape := geometry.Shape{Name: mname}
	if m.Shape == tracker.ShapeWedge {
		shape.Kind = geometry.ShapeTrapezoid
		shape.DXBottom = m.MinWidth/2 + m.SideHybridWidth
		shape.DXTop = m.MaxWidth/2 + m.SideHybridWidth
		shape.DY = m.Length/2 + m.HybridWidth
		shape.DZ = m.Thickness/2 + m.SupportPlateThickness
	} else {
		shape.Kind = geometry.ShapeBox
		shape.DX = d.ExpandedWidth / 2
		shape.DY = d.ExpandedLength / 2
		shape.DZ = d.ExpandedThickness / 2
	}
	if err := b.AddShape(shape); err != nil {
		return err
	}
	if err := b.AddLogical(geometry.LogicalVolume{Name: mname, Solid: mname, Material: materialAir}); err != nil {
		return err
	}
	stackSel.PartSelectors = append(stackSel.PartSelectors, mname)

	return e.emitSensorStack(b, mc, d, mname, sensorStackEndcap, mats, moduleSel)
}

// ringCapsules returns the disc's ring numbers in ascending order and the
// capsule indexes grouped by ring.
func ringCapsules(disc *topology.DiscCaps) ([]int, map[int][]int) {
	byRing := map[int][]int{}
	for i := range disc.Capsules {
		r := disc.Capsules[i].Module.Ref.Ring
		byRing[r] = append(byRing[r], i)
	}
	rings := make([]int, 0, len(byRing))
	for r := range byRing {
		rings = append(rings, r)
	}
	sort.Ints(rings)
	return rings, byRing
}
