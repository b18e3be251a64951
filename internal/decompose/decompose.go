// Package decompose splits a detector module into its passive sub-volumes
// (hybrids, between filler, support plate), computes the module's expanded
// envelope, and apportions the capsule's local material masses across the
// sub-volumes.
package decompose

import (
	"fmt"
	"sort"

	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
)

// TargetError reports a material entry whose target sub-volume is invalid
// for decomposition. It is a fatal model inconsistency.
type TargetError struct {
	Module  string
	Element string
	Target  tracker.SubVolumeKind
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("decompose: module %s element %s targets %q, which decomposition cannot serve", e.Module, e.Element, e.Target)
}

// SubVolume is one decomposed piece of a module. Extents are full lengths
// in the module's local frame; Position is the local offset of the piece's
// center from the module center.
type SubVolume struct {
	Name     string
	Kind     tracker.SubVolumeKind
	DX       float64
	DY       float64
	DZ       float64
	Position geometry.Vec3

	Mass      float64
	Materials map[string]float64
}

// Volume returns the box volume in mm3.
func (v *SubVolume) Volume() float64 {
	return v.DX * v.DY * v.DZ
}

// mm3PerCm3 converts mm3 volumes to cm3 in density computations.
const mm3PerCm3 = 1e-3

// Density returns the sub-volume's bulk density in g/cm3; zero for an
// empty or degenerate sub-volume.
func (v *SubVolume) Density() float64 {
	vol := v.Volume()
	if vol <= 0 {
		return 0
	}
	return v.Mass / (vol * mm3PerCm3)
}

func (v *SubVolume) addMaterial(element string, grams float64) {
	v.Materials[element] += grams
}

// Decomposition is the result of decomposing one module: its six passive
// sub-volumes in emission order, the expanded envelope, and the expanded
// outer dimensions.
type Decomposition struct {
	SubVolumes []SubVolume
	Envelope   geometry.Envelope

	ExpandedWidth     float64
	ExpandedLength    float64
	ExpandedThickness float64
}

// Decompose builds the sub-volumes and envelope of the module inside cap.
// name is the module volume name the sub-volumes derive theirs from.
// Sensor-targeted material entries are a fatal input error.
func Decompose(cap *tracker.ModuleCapsule, name string) (*Decomposition, error) {
	m := &cap.Module

	w := m.MeanWidth()
	l := m.Length
	expandedW := w + 2*m.SideHybridWidth
	expandedL := l + 2*m.HybridWidth
	expandedT := m.TotalThickness()

	d := &Decomposition{
		ExpandedWidth:     expandedW,
		ExpandedLength:    expandedL,
		ExpandedThickness: expandedT,
	}

	newSub := func(kind tracker.SubVolumeKind, suffix string, dx, dy, dz float64, pos geometry.Vec3) SubVolume {
		return SubVolume{
			Name:      name + suffix,
			Kind:      kind,
			DX:        dx,
			DY:        dy,
			DZ:        dz,
			Position:  pos,
			Materials: map[string]float64{},
		}
	}

	// The front and back hybrids flank the module along its width axis,
	// the left and right hybrids along its length axis, matching the
	// physical layout of service and front-end hybrids.
	d.SubVolumes = []SubVolume{
		newSub(tracker.KindFrontHybrid, "FSide", m.SideHybridWidth, l, m.HybridThickness,
			geometry.Vec3{X: (w + m.SideHybridWidth) / 2}),
		newSub(tracker.KindBackHybrid, "BSide", m.SideHybridWidth, l, m.HybridThickness,
			geometry.Vec3{X: -(w + m.SideHybridWidth) / 2}),
		newSub(tracker.KindLeftHybrid, "LSide", expandedW, m.HybridWidth, m.HybridThickness,
			geometry.Vec3{Y: (l + m.HybridWidth) / 2}),
		newSub(tracker.KindRightHybrid, "RSide", expandedW, m.HybridWidth, m.HybridThickness,
			geometry.Vec3{Y: -(l + m.HybridWidth) / 2}),
		newSub(tracker.KindBetween, "Between", w, l, m.SensorSpacing, geometry.Vec3{}),
		newSub(tracker.KindSupportPlate, "SupportPlate", expandedW, expandedL, m.SupportPlateThickness,
			geometry.Vec3{Z: -((m.SensorSpacing+m.SupportPlateThickness)/2 + m.SensorThickness)}),
	}

	d.Envelope = expandedEnvelope(m, expandedW, expandedL, expandedT)

	if err := d.apportion(cap, name); err != nil {
		return nil, err
	}
	return d, nil
}

// expandedEnvelope grows the module's base polygon by the hybrid expansion
// ratios, extrudes it by half the expanded thickness both ways along the
// normal, and folds the resulting corners and edge midpoints into an
// envelope.
func expandedEnvelope(m *tracker.Module, expandedW, expandedL, expandedT float64) geometry.Envelope {
	w := m.MeanWidth()
	l := m.Length

	mx := geometry.Mid(m.Vertices[2], m.Vertices[3]).Sub(m.Center)
	my := geometry.Mid(m.Vertices[1], m.Vertices[2]).Sub(m.Center)

	rw, rl := 1.0, 1.0
	if w != 0 {
		rw = expandedW / w
	}
	if l != 0 {
		rl = expandedL / l
	}

	var v [4]geometry.Vec3
	v[0] = m.Center.Sub(mx.Scale(rw)).Sub(my.Scale(rl))
	v[1] = m.Center.Sub(mx.Scale(rw)).Add(my.Scale(rl))
	v[2] = m.Center.Add(mx.Scale(rw)).Add(my.Scale(rl))
	v[3] = m.Center.Add(mx.Scale(rw)).Sub(my.Scale(rl))

	half := m.Normal.Scale(expandedT / 2)
	corners := make([]geometry.Vec3, 0, 8)
	var top, bottom [4]geometry.Vec3
	for i := 0; i < 4; i++ {
		top[i] = v[i].Add(half)
		bottom[i] = v[i].Sub(half)
		corners = append(corners, top[i], bottom[i])
	}
	midpoints := make([]geometry.Vec3, 0, 8)
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		midpoints = append(midpoints, geometry.Mid(top[i], top[j]), geometry.Mid(bottom[i], bottom[j]))
	}
	return geometry.EnvelopeOf(corners, midpoints)
}

// apportion distributes cap's material entries across the sub-volumes
// according to each entry's policy.
func (d *Decomposition) apportion(cap *tracker.ModuleCapsule, name string) error {
	byKind := map[tracker.SubVolumeKind]*SubVolume{}
	for i := range d.SubVolumes {
		byKind[d.SubVolumes[i].Kind] = &d.SubVolumes[i]
	}

	split := func(element string, grams float64, kinds ...tracker.SubVolumeKind) {
		total := 0.0
		for _, k := range kinds {
			total += byKind[k].Volume()
		}
		for _, k := range kinds {
			sv := byKind[k]
			sv.addMaterial(element, grams)
			if total > 0 {
				sv.Mass += grams * sv.Volume() / total
			}
		}
	}

	for _, el := range cap.Elements {
		switch el.Policy {
		case tracker.PolicySingle:
			sv, ok := byKind[el.Target]
			if !ok {
				return &TargetError{Module: name, Element: el.Element, Target: el.Target}
			}
			sv.addMaterial(el.Element, el.Grams)
			sv.Mass += el.Grams
		case tracker.PolicyFrontBack:
			split(el.Element, el.Grams, tracker.KindFrontHybrid, tracker.KindBackHybrid)
		case tracker.PolicyLeftRight:
			split(el.Element, el.Grams, tracker.KindLeftHybrid, tracker.KindRightHybrid)
		case tracker.PolicyUniform:
			split(el.Element, el.Grams,
				tracker.KindFrontHybrid, tracker.KindBackHybrid,
				tracker.KindLeftHybrid, tracker.KindRightHybrid)
		default:
			return &TargetError{Module: name, Element: el.Element, Target: el.Target}
		}
	}
	return nil
}

// AppendShapes adds one box shape per material-bearing sub-volume to b.
func (d *Decomposition) AppendShapes(b *geometry.Bundle) error {
	for i := range d.SubVolumes {
		sv := &d.SubVolumes[i]
		if sv.Density() <= 0 {
			continue
		}
		err := b.AddShape(geometry.Shape{
			Name: sv.Name,
			Kind: geometry.ShapeBox,
			DX:   sv.DX / 2,
			DY:   sv.DY / 2,
			DZ:   sv.DZ / 2,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendLogicals adds one logical volume per material-bearing sub-volume,
// binding each to its composite material under materialPrefix.
func (d *Decomposition) AppendLogicals(b *geometry.Bundle, materialPrefix string) error {
	for i := range d.SubVolumes {
		sv := &d.SubVolumes[i]
		if sv.Density() <= 0 {
			continue
		}
		err := b.AddLogical(geometry.LogicalVolume{
			Name:     sv.Name,
			Solid:    sv.Name,
			Material: materialPrefix + sv.Name,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendPlacements adds one placement per material-bearing sub-volume,
// positioning it inside parent at its local offset.
func (d *Decomposition) AppendPlacements(b *geometry.Bundle, parent string) error {
	for i := range d.SubVolumes {
		sv := &d.SubVolumes[i]
		if sv.Density() <= 0 {
			continue
		}
		err := b.AddPlacement(geometry.Placement{
			Parent:      parent,
			Child:       sv.Name,
			Translation: sv.Position,
			Copy:        1,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendComposites adds one normalized composite material per
// material-bearing sub-volume.
func (d *Decomposition) AppendComposites(b *geometry.Bundle, materialPrefix string) error {
	for i := range d.SubVolumes {
		sv := &d.SubVolumes[i]
		if sv.Density() <= 0 {
			continue
		}
		names := make([]string, 0, len(sv.Materials))
		total := 0.0
		for n, g := range sv.Materials {
			names = append(names, n)
			total += g
		}
		sort.Strings(names)
		fractions := make([]geometry.MassFraction, 0, len(names))
		for _, n := range names {
			fractions = append(fractions, geometry.MassFraction{
				Material: n,
				Fraction: sv.Materials[n] / total,
			})
		}
		err := b.AddComposite(geometry.Composite{
			Name:     materialPrefix + sv.Name,
			Density:  sv.Density(),
			Method:   geometry.MethodMixtureByWeight,
			Elements: fractions,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
