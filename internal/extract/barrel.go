package extract

import (
	"context"
	"fmt"
	"math"
	"sort"

	"detgeom/internal/decompose"
	"detgeom/internal/geomutil"
	"detgeom/internal/topology"
	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
)

// tiltedRingInfo accumulates the parameters of one tilted barrel ring on a
// single z side. The azimuthal-index-1 module fills the backward fields,
// its index-2 neighbour the forward ones.
type tiltedRingInfo struct {
	name      string
	childName string
	isZPlus   bool
	tiltDeg   float64
	phi       int
	modules   int

	bwFlipped bool
	fwFlipped bool

	r1, z1 float64
	r2, z2 float64

	rMin, rMax             float64
	zMin, zMax             float64
	rMinAtZMin, rMaxAtZMax float64
}

// BarrelLayers emits the records of every barrel layer: module, wafer and
// active-surface volumes, hybrid sub-volumes with their composites, rod
// containers and replication calls, tilted ring containers, layer tubes,
// topology selectors and material-budget summaries.
func (e *Engine) BarrelLayers(ctx context.Context, topo *topology.Topology) (*geometry.Bundle, error) {
	b := geometry.NewBundle()

	layerSel := geometry.TopologySelector{
		Name:      selLayer,
		Parameter: geometry.KeyValue{Key: structureKey, Value: structLayer},
	}
	rodSel := geometry.TopologySelector{
		Name:      selRod,
		Parameter: geometry.KeyValue{Key: structureKey, Value: structRod},
	}
	stackSel := geometry.TopologySelector{
		Name:      selBarrelStack,
		Parameter: geometry.KeyValue{Key: structureKey, Value: structBarrelStack},
	}
	moduleSel := geometry.TopologySelector{
		Name:      selBarrelDet,
		Parameter: geometry.KeyValue{Key: structureKey, Value: structBarrelDet},
	}

	for li := range topo.Layers {
		layer := &topo.Layers[li]
		if err := e.emitBarrelLayer(b, layer, topo.Materials, &layerSel, &rodSel, &stackSel, &moduleSel); err != nil {
			return nil, err
		}
	}

	for _, sel := range []geometry.TopologySelector{layerSel, rodSel, stackSel, moduleSel} {
		if len(sel.PartSelectors) > 0 {
			b.AddSelector(sel)
		}
	}
	return b, nil
}

func (e *Engine) emitBarrelLayer(b *geometry.Bundle, layer *topology.LayerCaps,
	mats *tracker.MaterialTable,
	layerSel, rodSel, stackSel, moduleSel *geometry.TopologySelector) error {

	lname := fmt.Sprintf("%s%d", layerPrefix, layer.Index)
	rodname := fmt.Sprintf("%s%d", rodPrefix, layer.Index)

	// First sweep: geometric extrema of the rod (straight layer) or of the
	// flat rod part plus tilted rings (tilted layer), and the two rod
	// placement radii.
	xmin, ymin, rmin := math.Inf(1), math.Inf(1), math.Inf(1)
	xmax, ymax, rmax, zmax := 0.0, 0.0, 0.0, 0.0
	flatMinX, flatMinY := math.Inf(1), math.Inf(1)
	flatMaxX, flatMaxY, flatMaxZ := 0.0, 0.0, 0.0
	radiusIn, radiusOut := 0.0, 0.0

	for ci := range layer.Capsules {
		mc := &layer.Capsules[ci]
		ref := mc.Module.Ref
		if ref.Side <= 0 || (ref.Phi != 1 && ref.Phi != 2) {
			continue
		}
		mname := fmt.Sprintf("%s%d%s", barrelModulePrefix, ref.Ring, lname)
		d, err := decompose.Decompose(mc, mname)
		if err != nil {
			return err
		}
		flat := layer.Tilted && mc.Module.TiltAngle == 0
		if ref.Phi == 1 {
			xmin = math.Min(xmin, d.Envelope.XMin)
			xmax = math.Max(xmax, d.Envelope.XMax)
			ymin = math.Min(ymin, d.Envelope.YMin)
			ymax = math.Max(ymax, d.Envelope.YMax)
			if flat {
				flatMinX = math.Min(flatMinX, d.Envelope.XMin)
				flatMaxX = math.Max(flatMaxX, d.Envelope.XMax)
				flatMinY = math.Min(flatMinY, d.Envelope.YMin)
				flatMaxY = math.Max(flatMaxY, d.Envelope.YMax)
			}
		}
		zmax = math.Max(zmax, d.Envelope.ZMax)
		rmin = math.Min(rmin, d.Envelope.RMin)
		rmax = math.Max(rmax, d.Envelope.RMax)
		if flat {
			flatMaxZ = math.Max(flatMaxZ, d.Envelope.ZMax)
		}
		// Rings 1 and 2 both contribute because of the small radial
		// stagger between even and odd rods.
		if ref.Phi == 1 && (ref.Ring == 1 || ref.Ring == 2) {
			radiusIn += mc.Module.Center.Rho() / 2
		}
		if ref.Phi == 2 && (ref.Ring == 1 || ref.Ring == 2) {
			radiusOut += mc.Module.Center.Rho() / 2
		}
	}

	// A layer with no radial extent has no representative modules to emit.
	if !(rmax-rmin > 0) {
		return nil
	}

	eps := e.cfg.Epsilon
	rinfoPlus := map[int]*tiltedRingInfo{}
	rinfoMinus := map[int]*tiltedRingInfo{}
	rtotal, itotal := 0.0, 0.0
	count := 0

	// Second sweep: emit per-module records and collect tilted ring info.
	for ci := range layer.Capsules {
		mc := &layer.Capsules[ci]
		ref := mc.Module.Ref
		if ref.Side <= 0 || (ref.Phi != 1 && ref.Phi != 2) {
			continue
		}
		modRing := ref.Ring
		tiltDeg := 0.0
		if layer.Tilted {
			tiltDeg = mc.Module.TiltAngle * 180 / math.Pi
		}
		mname := fmt.Sprintf("%s%d%s", barrelModulePrefix, modRing, lname)
		ringname := fmt.Sprintf("%s%d%s", ringPrefix, modRing, lname)

		d, err := decompose.Decompose(mc, mname)
		if err != nil {
			return err
		}

		if ref.Phi == 1 {
			if err := e.emitBarrelModule(b, layer, mc, d, mname, rodname, radiusIn, tiltDeg, mats, stackSel, moduleSel); err != nil {
				return err
			}

			if layer.Tilted && tiltDeg != 0 {
				plus := &tiltedRingInfo{
					name:       ringname + plusSuffix,
					childName:  mname,
					isZPlus:    true,
					tiltDeg:    tiltDeg,
					bwFlipped:  mc.Module.Flipped,
					phi:        ref.Phi,
					modules:    layer.NumRods,
					r1:         mc.Module.Center.Rho(),
					z1:         mc.Module.Center.Z,
					rMin:       d.Envelope.RMin,
					zMin:       d.Envelope.ZMin,
					rMinAtZMin: d.Envelope.RMinAtZMin,
				}
				rinfoPlus[modRing] = plus

				minus := *plus
				minus.name = ringname + minusSuffix
				minus.isZPlus = false
				minus.z1 = -mc.Module.Center.Z
				rinfoMinus[modRing] = &minus
			}

			rtotal += mc.RadiationLength
			itotal += mc.InteractionLength
			count++
		}

		if layer.Tilted && ref.Phi == 2 {
			if ri, ok := rinfoPlus[modRing]; ok {
				ri.fwFlipped = mc.Module.Flipped
				ri.r2 = mc.Module.Center.Rho()
				ri.z2 = mc.Module.Center.Z
				ri.rMax = d.Envelope.RMax
				ri.zMax = d.Envelope.ZMax
				ri.rMaxAtZMax = d.Envelope.RMaxAtZMax
			}
			if ri, ok := rinfoMinus[modRing]; ok {
				ri.fwFlipped = mc.Module.Flipped
				ri.r2 = mc.Module.Center.Rho()
				ri.z2 = -mc.Module.Center.Z
				ri.rMax = d.Envelope.RMax
				ri.zMax = d.Envelope.ZMax
				ri.rMaxAtZMax = d.Envelope.RMaxAtZMax
			}
		}
	}

	if count > 0 {
		b.AddSummary(geometry.RadiationLengthSummary{
			Volume:            lname,
			RadiationLength:   rtotal / float64(count),
			InteractionLength: itotal / float64(count),
		})
	}

	// Rod container.
	rodDX := (ymax - ymin) / 2
	rodDY := (xmax - xmin) / 2
	rodDZ := zmax
	if layer.Tilted {
		rodDX = (flatMaxY - flatMinY) / 2
		rodDY = (flatMaxX - flatMinX) / 2
		rodDZ = flatMaxZ
	}
	if err := b.AddShape(geometry.Shape{
		Name: rodname,
		Kind: geometry.ShapeBox,
		DX:   rodDX + eps,
		DY:   rodDY + eps,
		DZ:   rodDZ + eps,
	}); err != nil {
		return err
	}
	if err := b.AddLogical(geometry.LogicalVolume{Name: rodname, Solid: rodname, Material: materialAir}); err != nil {
		return err
	}
	rodSel.PartSelectors = append(rodSel.PartSelectors, rodname)

	// Rods around the layer azimuth.
	b.AddAlgo(geometry.AlgoCall{
		Name:   phiAltAlgo,
		Parent: lname,
		Params: []geometry.AlgoParam{
			geometry.StringParam(paramChild, rodname),
			geometry.NumberParam(paramTilt, layer.TiltDeg+90, "deg"),
			geometry.NumberParam(paramStartAngle, layer.StartAngleDeg, "deg"),
			geometry.NumberParam(paramRangeAngle, 360, "deg"),
			geometry.NumberParam(paramRadiusIn, radiusIn, "mm"),
			geometry.NumberParam(paramRadiusOut, radiusOut, "mm"),
			geometry.NumberParam(paramZPosition, 0, "mm"),
			geometry.NumberParam(paramNumber, float64(layer.NumRods), ""),
			geometry.NumberParam(paramStartCopyNo, 1, ""),
			geometry.NumberParam(paramIncrCopyNo, 1, ""),
		},
	})

	// Tilted rings, negative side first, rings in ascending order.
	for _, side := range []map[int]*tiltedRingInfo{rinfoMinus, rinfoPlus} {
		rings := make([]int, 0, len(side))
		for rn := range side {
			rings = append(rings, rn)
		}
		sort.Ints(rings)
		for _, rn := range rings {
			if err := e.emitTiltedRing(b, lname, side[rn], rodSel); err != nil {
				return err
			}
		}
	}

	// Layer tube.
	if err := b.AddShape(geometry.Shape{
		Name: lname,
		Kind: geometry.ShapeTube,
		RMin: rmin - 2*eps,
		RMax: rmax + 2*eps,
		DZ:   zmax + 2*eps,
	}); err != nil {
		return err
	}
	if err := b.AddLogical(geometry.LogicalVolume{Name: lname, Solid: lname, Material: materialAir}); err != nil {
		return err
	}
	if err := b.AddPlacement(geometry.Placement{
		Parent: e.cfg.BarrelVolume,
		Child:  lname,
		Copy:   1,
	}); err != nil {
		return err
	}
	layerSel.PartSelectors = append(layerSel.PartSelectors, lname)
	return nil
}

// emitBarrelModule writes the volumes of one representative barrel module:
// the expanded module box, its wafers and active surfaces, the hybrid
// sub-volume records, and the in-rod placements of the module and its
// z-partner.
func (e *Engine) emitBarrelModule(b *geometry.Bundle, layer *topology.LayerCaps,
	mc *tracker.ModuleCapsule, d *decompose.Decomposition,
	mname, rodname string, radiusIn, tiltDeg float64,
	mats *tracker.MaterialTable,
	stackSel, moduleSel *geometry.TopologySelector) error {

	m := &mc.Module

	// Module box, expanded to include the hybrids.
	if err := b.AddShape(geometry.Shape{
		Name: mname,
		Kind: geometry.ShapeBox,
		DX:   d.ExpandedWidth / 2,
		DY:   d.ExpandedLength / 2,
		DZ:   d.ExpandedThickness / 2,
	}); err != nil {
		return err
	}
	if err := b.AddLogical(geometry.LogicalVolume{Name: mname, Solid: mname, Material: materialAir}); err != nil {
		return err
	}

	// In-rod placements exist only for straight rod sections; tilted ring
	// modules are placed by the ring replication algorithm instead.
	if !layer.Tilted || tiltDeg == 0 {
		rotName := rotModuleInRod
		if m.Flipped {
			rotName = rotFlippedModuleInRod
		}
		if err := b.AddPlacement(geometry.Placement{
			Parent:      rodname,
			Child:       mname,
			Translation: geometry.Vec3{X: m.Center.Rho() - radiusIn, Z: m.Center.Z},
			Rotation:    rotName,
			Copy:        1,
		}); err != nil {
			return err
		}
		caps := layer.Capsules
		idx := -1
		for i := range caps {
			if &caps[i] == mc {
				idx = i
				break
			}
		}
		if idx >= 0 {
			if pi := geomutil.FindPartner(caps, idx); pi >= 0 {
				partner := &caps[pi].Module
				rotName = rotModuleInRod
				if partner.Flipped {
					rotName = rotFlippedModuleInRod
				}
				if err := b.AddPlacement(geometry.Placement{
					Parent:      rodname,
					Child:       mname,
					Translation: geometry.Vec3{X: partner.Center.Rho() - radiusIn, Z: partner.Center.Z},
					Rotation:    rotName,
					Copy:        2,
				}); err != nil {
					return err
				}
			}
		}
	}

	stackSel.PartSelectors = append(stackSel.PartSelectors, mname)

	return e.emitSensorStack(b, mc, d, mname, sensorStackBarrel, mats, moduleSel)
}

// emitTiltedRing writes one tilted ring container: a cone section hugging
// the tilt, intersected with a tube bounding the true radius range, plus
// the two replication calls placing the ring's forward and backward module
// halves.
func (e *Engine) emitTiltedRing(b *geometry.Bundle, lname string, ri *tiltedRingInfo, rodSel *geometry.TopologySelector) error {
	if ri.modules <= 0 {
		return nil
	}
	eps := e.cfg.Epsilon
	tanTilt := math.Tan(ri.tiltDeg * math.Pi / 180)
	dz := (ri.zMax-ri.zMin)/2 + eps

	cone := geometry.Shape{
		Name: ri.name + coneSuffix,
		Kind: geometry.ShapeCone,
		DZ:   dz,
	}
	if ri.isZPlus {
		cone.RMin = ri.rMinAtZMin - eps*tanTilt
		cone.RMax = ri.rMaxAtZMax + 2*dz*tanTilt + eps*tanTilt
		cone.RMin2 = ri.rMinAtZMin - 2*dz*tanTilt - eps*tanTilt
		cone.RMax2 = ri.rMaxAtZMax + eps*tanTilt
	} else {
		cone.RMin = ri.rMinAtZMin - 2*dz*tanTilt - eps*tanTilt
		cone.RMax = ri.rMaxAtZMax + eps*tanTilt
		cone.RMin2 = ri.rMinAtZMin - eps*tanTilt
		cone.RMax2 = ri.rMaxAtZMax + 2*dz*tanTilt + eps*tanTilt
	}
	if err := b.AddShape(cone); err != nil {
		return err
	}

	if err := b.AddShape(geometry.Shape{
		Name: ri.name + tubeSuffix,
		Kind: geometry.ShapeTube,
		RMin: ri.rMin - eps,
		RMax: ri.rMax + eps,
		DZ:   dz,
	}); err != nil {
		return err
	}

	// The layer's radial extrema rely on this intersection clipping the
	// cone back to the ring's true radius range.
	if err := b.AddOperation(geometry.ShapeOperation{
		Name:   ri.name,
		Kind:   geometry.OpIntersection,
		SolidA: ri.name + coneSuffix,
		SolidB: ri.name + tubeSuffix,
	}); err != nil {
		return err
	}

	if err := b.AddLogical(geometry.LogicalVolume{Name: ri.name, Solid: ri.name, Material: materialAir}); err != nil {
		return err
	}
	if err := b.AddPlacement(geometry.Placement{
		Parent:      lname,
		Child:       ri.name,
		Translation: geometry.Vec3{Z: (ri.z1 + ri.z2) / 2},
		Copy:        1,
	}); err != nil {
		return err
	}
	rodSel.PartSelectors = append(rodSel.PartSelectors, ri.name)

	zPlus := 0.0
	if ri.isZPlus {
		zPlus = 1.0
	}
	halves := []struct {
		startCopy  float64
		startAngle float64
		radius     float64
		zShift     float64
		flipped    bool
	}{
		{1, 90 + 360/float64(ri.modules)*float64(ri.phi-1), ri.r1, (ri.z1 - ri.z2) / 2, ri.bwFlipped},
		{2, 90 + 360/float64(ri.modules)*float64(ri.phi), ri.r2, (ri.z2 - ri.z1) / 2, ri.fwFlipped},
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
				geometry.NumberParam(paramRadius, h.radius, "mm"),
				geometry.VectorParam(paramCenter, 0, 0, h.zShift),
				geometry.NumberParam(paramIsZPlus, zPlus, ""),
				geometry.NumberParam(paramTiltAngle, ri.tiltDeg, "deg"),
				geometry.NumberParam(paramIsFlipped, flipped, ""),
			},
		})
	}
	return nil
}
