package extract

import (
	"context"
	"fmt"
	"math"
	"sort"

	"detgeom/internal/geomutil"
	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
)

// InactiveVolumes emits the passive material of the tracker: barrel
// services, endcap services and support structures. Each material-bearing
// element produces one composite and a mirrored pair of placements; empty
// elements are skipped with a warning.
func (e *Engine) InactiveVolumes(ctx context.Context, is *tracker.InactiveSurfaces) (*geometry.Bundle, error) {
	b := geometry.NewBundle()
	if err := e.emitBarrelServices(b, is.BarrelServices); err != nil {
		return nil, err
	}
	if err := e.emitEndcapServices(b, is.EndcapServices); err != nil {
		return nil, err
	}
	if err := e.emitSupports(b, is.Supports); err != nil {
		return nil, err
	}
	return b, nil
}

func (e *Engine) emitBarrelServices(b *geometry.Bundle, services []tracker.InactiveElement) error {
	// A pass-through service at z offset zero appears once per distinct
	// inner radius; its mirrored twin covers the other side.
	seenRadii := map[int]struct{}{}

	for i := range services {
		el := &services[i]
		if int(el.ZOffset) == 0 {
			r := int(el.RInner)
			if _, ok := seenRadii[r]; ok {
				continue
			}
			seenRadii[r] = struct{}{}
		}
		if el.ZOffset+el.ZLength <= 0 {
			continue
		}

		zc := int(math.Abs(el.ZOffset + el.ZLength/2))
		shapeName := fmt.Sprintf("%sR%dZ%d", servicePrefix, int(el.RInner), zc)
		matName := fmt.Sprintf("%s%sR%dZ%d", serviceCompositePrefix, categoryTag(el.Category), int(el.RInner), zc)

		if len(el.Masses) == 0 {
			e.log.Warn("skipping empty service volume", "volume", shapeName)
			continue
		}
		if err := e.emitInactiveElement(b, el, shapeName, matName, e.cfg.BarrelVolume, el.ZOffset+el.ZLength/2); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) emitEndcapServices(b *geometry.Bundle, services []tracker.InactiveElement) error {
	for i := range services {
		el := &services[i]
		if el.ZOffset+el.ZLength <= 0 {
			continue
		}

		zc := int(math.Abs(el.ZOffset + el.ZLength/2))
		shapeName := fmt.Sprintf("%sR%dZ%d", servicePrefix, int(el.RInner), zc)
		matName := fmt.Sprintf("%s%sZ%d", serviceCompositePrefix, categoryTag(el.Category), zc)

		if len(el.Masses) == 0 {
			e.log.Warn("skipping empty service volume", "volume", shapeName)
			continue
		}
		if err := e.emitInactiveElement(b, el, shapeName, matName, e.cfg.EndcapVolume, el.ZOffset+el.ZLength/2); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) emitSupports(b *geometry.Bundle, supports []tracker.InactiveElement) error {
	// One composite per support category; later volumes of the same
	// category are dropped.
	found := map[tracker.Category]struct{}{}

	for i := range supports {
		el := &supports[i]
		if _, ok := found[el.Category]; ok {
			continue
		}
		if len(el.Masses) == 0 {
			continue
		}
		found[el.Category] = struct{}{}

		shapeName := fmt.Sprintf("%sR%dZ%d", supportPrefix, int(el.RInner), int(el.ZLength/2+el.ZOffset))
		matName := supportCompositePrefix + categoryTag(el.Category)

		var parent string
		switch el.Category {
		case tracker.CategoryBarrelSupport, tracker.CategoryTubeSupport,
			tracker.CategoryUserSupport, tracker.CategoryOuterSupport:
			parent = e.cfg.BarrelVolume
		case tracker.CategoryEndcapSupport:
			parent = e.cfg.EndcapVolume
		default:
			parent = e.cfg.TrackerVolume
		}

		dz := el.ZOffset + el.ZLength/2
		if el.Category == tracker.CategoryOuterSupport || el.Category == tracker.CategoryTubeSupport {
			dz = 0
		}
		if err := e.emitInactiveElement(b, el, shapeName, matName, parent, dz); err != nil {
			return err
		}
	}
	return nil
}

// emitInactiveElement writes one passive tube: its composite material,
// shape, logical volume, and the positive-z placement plus its mirrored
// negative-z copy.
func (e *Engine) emitInactiveElement(b *geometry.Bundle, el *tracker.InactiveElement,
	shapeName, matName, parent string, dz float64) error {

	if err := b.AddComposite(inactiveComposite(matName, el)); err != nil {
		return err
	}
	if err := b.AddShape(geometry.Shape{
		Name: shapeName,
		Kind: geometry.ShapeTube,
		RMin: el.RInner,
		RMax: el.RInner + el.RWidth,
		DZ:   el.ZLength / 2,
	}); err != nil {
		return err
	}
	if err := b.AddLogical(geometry.LogicalVolume{Name: shapeName, Solid: shapeName, Material: matName}); err != nil {
		return err
	}
	if err := b.AddPlacement(geometry.Placement{
		Parent:      parent,
		Child:       shapeName,
		Translation: geometry.Vec3{Z: dz},
		Copy:        1,
	}); err != nil {
		return err
	}
	return b.AddPlacement(geometry.Placement{
		Parent:      parent,
		Child:       shapeName,
		Translation: geometry.Vec3{Z: -dz},
		Rotation:    rotFlip,
		Copy:        2,
	})
}

// inactiveComposite builds the normalized composite of one passive element,
// smearing its total mass over the annular tube volume.
func inactiveComposite(name string, el *tracker.InactiveElement) geometry.Composite {
	byElement := map[string]float64{}
	order := []string{}
	total := 0.0
	for _, m := range el.Masses {
		if _, ok := byElement[m.Element]; !ok {
			order = append(order, m.Element)
		}
		byElement[m.Element] += m.Grams
		total += m.Grams
	}
	sort.Strings(order)

	fractions := make([]geometry.MassFraction, 0, len(order))
	for _, n := range order {
		fractions = append(fractions, geometry.MassFraction{Material: n, Fraction: byElement[n] / total})
	}
	return geometry.Composite{
		Name:     name,
		Density:  geomutil.AnnulusDensity(el.TotalMass, el.RInner, el.RWidth, el.ZLength),
		Method:   geometry.MethodMixtureByWeight,
		Elements: fractions,
	}
}
