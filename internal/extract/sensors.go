package extract

import (
	"fmt"

	"detgeom/internal/decompose"
	"detgeom/internal/geomutil"
	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
)

type sensorStackKind int

const (
	sensorStackBarrel sensorStackKind = iota
	sensorStackEndcap
)

// waferShape returns the solid of one sensor wafer. Barrel wafers are
// always boxes; endcap wafers follow the module outline, a trapezoid for
// wedge modules.
func waferShape(m *tracker.Module, name string, kind sensorStackKind) geometry.Shape {
	s := geometry.Shape{
		Name: name,
		Kind: geometry.ShapeBox,
		DX:   m.MeanWidth() / 2,
		DY:   m.Length / 2,
		DZ:   m.SensorThickness / 2,
	}
	if kind == sensorStackEndcap {
		if m.Shape == tracker.ShapeWedge {
			s.Kind = geometry.ShapeTrapezoid
			s.DX = 0
			s.DXBottom = m.MinWidth / 2
			s.DXTop = m.MaxWidth / 2
		} else {
			s.DX = m.MinWidth / 2
		}
	}
	return s
}

// activeName maps a module type and sensor position to the active-surface
// volume name, or fails for an unrecognized type.
func activeName(m *tracker.Module, mname, positionTag string) (string, error) {
	switch m.Type {
	case tracker.TypePS:
		if positionTag == upperTag {
			return mname + positionTag + psStripActiveSuffix, nil
		}
		return mname + positionTag + psPixelActiveSuffix, nil
	case tracker.Type2S:
		return mname + positionTag + ssActiveSuffix, nil
	default:
		return "", fmt.Errorf("unknown module type %q", m.Type)
	}
}

// emitSensorStack writes the wafer and active-surface volumes of one
// module, the per-sensor readout chip records, and, for two-sensor
// modules, the hybrid sub-volume records of d. An unrecognized module type
// is logged and skips only the affected active surface.
func (e *Engine) emitSensorStack(b *geometry.Bundle, mc *tracker.ModuleCapsule,
	d *decompose.Decomposition, mname string, kind sensorStackKind,
	mats *tracker.MaterialTable, moduleSel *geometry.TopologySelector) error {

	m := &mc.Module
	twoSensors := m.NumSensors == 2

	lowerTagUsed := ""
	if twoSensors {
		lowerTagUsed = lowerTag
	}

	// Lower (or only) wafer.
	lowerWafer := mname + lowerTagUsed + waferSuffix
	if err := b.AddShape(waferShape(m, lowerWafer, kind)); err != nil {
		return err
	}
	if err := b.AddLogical(geometry.LogicalVolume{Name: lowerWafer, Solid: lowerWafer, Material: materialAir}); err != nil {
		return err
	}
	if err := b.AddPlacement(geometry.Placement{
		Parent:      mname,
		Child:       lowerWafer,
		Translation: geometry.Vec3{Z: -m.SensorSpacing / 2},
		Copy:        1,
	}); err != nil {
		return err
	}

	if twoSensors {
		upperWafer := mname + upperTag + waferSuffix
		if err := b.AddShape(waferShape(m, upperWafer, kind)); err != nil {
			return err
		}
		if err := b.AddLogical(geometry.LogicalVolume{Name: upperWafer, Solid: upperWafer, Material: materialAir}); err != nil {
			return err
		}
		placement := geometry.Placement{
			Parent:      mname,
			Child:       upperWafer,
			Translation: geometry.Vec3{Z: m.SensorSpacing / 2},
			Copy:        1,
		}
		if m.StereoRotation != 0 {
			rot := stereoRotation(stereoRotationPrefix+mname, m.StereoRotation)
			b.EnsureRotation(rot)
			placement.Rotation = rot.Name
		}
		if err := b.AddPlacement(placement); err != nil {
			return err
		}
	}

	// Active surfaces inside the wafers.
	if name, err := activeName(m, mname, lowerTagUsed); err != nil {
		e.log.Error("skipping active surface", "module", mname, "err", err)
	} else if err := e.emitActiveSurface(b, mc, name, lowerWafer, kind, mats, &m.InnerSensorROC, moduleSel); err != nil {
		return err
	}

	if twoSensors {
		upperWafer := mname + upperTag + waferSuffix
		if name, err := activeName(m, mname, upperTag); err != nil {
			e.log.Error("skipping active surface", "module", mname, "err", err)
		} else if err := e.emitActiveSurface(b, mc, name, upperWafer, kind, mats, &m.OuterSensorROC, moduleSel); err != nil {
			return err
		}

		// Hybrid sub-volumes carry the module's passive material.
		if err := d.AppendComposites(b, hybridCompositePrefix); err != nil {
			return err
		}
		if err := d.AppendShapes(b); err != nil {
			return err
		}
		if err := d.AppendLogicals(b, hybridCompositePrefix); err != nil {
			return err
		}
		if err := d.AppendPlacements(b, mname); err != nil {
			return err
		}
	}
	return nil
}

// emitActiveSurface writes one sensitive volume inside its wafer. Its
// thickness is derived from the capsule's deposited silicon mass; a model
// without a silicon density row yields a zero-thickness surface, which is
// still recorded.
func (e *Engine) emitActiveSurface(b *geometry.Bundle, mc *tracker.ModuleCapsule,
	name, wafer string, kind sensorStackKind,
	mats *tracker.MaterialTable, roc *tracker.ROCInfo, moduleSel *geometry.TopologySelector) error {

	m := &mc.Module
	shape := waferShape(m, name, kind)
	shape.DZ = geomutil.SensorThickness(mc.SensorMass, mc.Surface, mats) / 2
	if err := b.AddShape(shape); err != nil {
		return err
	}
	if err := b.AddLogical(geometry.LogicalVolume{Name: name, Solid: name, Material: tracker.SensorSiliconTag}); err != nil {
		return err
	}
	if err := b.AddPlacement(geometry.Placement{Parent: wafer, Child: name, Copy: 1}); err != nil {
		return err
	}

	moduleSel.PartSelectors = append(moduleSel.PartSelectors, name)
	moduleSel.ModuleTypes = append(moduleSel.ModuleTypes, string(m.Type))
	b.AddROC(geometry.ModuleROCInfo{
		Name:    name,
		ROCRows: roc.Rows,
		ROCCols: roc.Cols,
		ROCX:    roc.X,
		ROCY:    roc.Y,
	})
	return nil
}
