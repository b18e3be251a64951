package geometry

import (
	"encoding/json"
	"fmt"
)

// Bundle collects the ordered record streams of one analysis pass. Records
// keep insertion order; the name-keyed indexes only guard uniqueness and are
// rebuilt when a bundle is decoded from JSON.
type Bundle struct {
	Shapes     []Shape                  `json:"shapes"`
	Operations []ShapeOperation         `json:"operations,omitempty"`
	Logicals   []LogicalVolume          `json:"logicals"`
	Placements []Placement              `json:"placements"`
	Rotations  []Rotation               `json:"rotations,omitempty"`
	Algos      []AlgoCall               `json:"algos,omitempty"`
	Composites []Composite              `json:"composites,omitempty"`
	Elements   []ElementaryMaterial     `json:"elements,omitempty"`
	ROCs       []ModuleROCInfo          `json:"rocs,omitempty"`
	Selectors  []TopologySelector       `json:"selectors,omitempty"`
	Summaries  []RadiationLengthSummary `json:"summaries,omitempty"`

	shapeIndex     map[string]struct{}
	logicalIndex   map[string]struct{}
	placementIndex map[string]struct{}
	rotationIndex  map[string]struct{}
	compositeIndex map[string]struct{}
}

// NewBundle returns an empty bundle ready for appending.
func NewBundle() *Bundle {
	return &Bundle{
		shapeIndex:     map[string]struct{}{},
		logicalIndex:   map[string]struct{}{},
		placementIndex: map[string]struct{}{},
		rotationIndex:  map[string]struct{}{},
		compositeIndex: map[string]struct{}{},
	}
}

// AddShape appends s, rejecting a second shape with the same name.
func (b *Bundle) AddShape(s Shape) error {
	if _, ok := b.shapeIndex[s.Name]; ok {
		return fmt.Errorf("geometry: duplicate shape %q", s.Name)
	}
	b.shapeIndex[s.Name] = struct{}{}
	b.Shapes = append(b.Shapes, s)
	return nil
}

// HasShape reports whether a shape with the given name was added.
func (b *Bundle) HasShape(name string) bool {
	_, ok := b.shapeIndex[name]
	return ok
}

// AddOperation appends a boolean solid operation. Operation results share
// the shape namespace so downstream logicals can reference them.
func (b *Bundle) AddOperation(op ShapeOperation) error {
	if _, ok := b.shapeIndex[op.Name]; ok {
		return fmt.Errorf("geometry: duplicate shape %q", op.Name)
	}
	b.shapeIndex[op.Name] = struct{}{}
	b.Operations = append(b.Operations, op)
	return nil
}

// AddLogical appends l, rejecting a second volume with the same name.
func (b *Bundle) AddLogical(l LogicalVolume) error {
	if _, ok := b.logicalIndex[l.Name]; ok {
		return fmt.Errorf("geometry: duplicate logical volume %q", l.Name)
	}
	b.logicalIndex[l.Name] = struct{}{}
	b.Logicals = append(b.Logicals, l)
	return nil
}

// AddPlacement appends p, rejecting a duplicate (parent, child, copy) triple.
func (b *Bundle) AddPlacement(p Placement) error {
	k := placementKey(p)
	if _, ok := b.placementIndex[k]; ok {
		return fmt.Errorf("geometry: duplicate placement of %q in %q copy %d", p.Child, p.Parent, p.Copy)
	}
	b.placementIndex[k] = struct{}{}
	b.Placements = append(b.Placements, p)
	return nil
}

// EnsureRotation appends r unless a rotation with the same name already
// exists. Module rotations repeat across rings so silent reuse is the
// normal case.
func (b *Bundle) EnsureRotation(r Rotation) {
	if _, ok := b.rotationIndex[r.Name]; ok {
		return
	}
	b.rotationIndex[r.Name] = struct{}{}
	b.Rotations = append(b.Rotations, r)
}

// HasRotation reports whether a rotation with the given name was added.
func (b *Bundle) HasRotation(name string) bool {
	_, ok := b.rotationIndex[name]
	return ok
}

// AddAlgo appends an algorithm call.
func (b *Bundle) AddAlgo(a AlgoCall) {
	b.Algos = append(b.Algos, a)
}

// AddComposite appends c, rejecting a second composite with the same name.
func (b *Bundle) AddComposite(c Composite) error {
	if _, ok := b.compositeIndex[c.Name]; ok {
		return fmt.Errorf("geometry: duplicate composite %q", c.Name)
	}
	b.compositeIndex[c.Name] = struct{}{}
	b.Composites = append(b.Composites, c)
	return nil
}

// AddElement appends an elementary material record.
func (b *Bundle) AddElement(e ElementaryMaterial) {
	b.Elements = append(b.Elements, e)
}

// AddROC appends a readout chip record.
func (b *Bundle) AddROC(r ModuleROCInfo) {
	b.ROCs = append(b.ROCs, r)
}

// AddSelector appends a topology selector.
func (b *Bundle) AddSelector(s TopologySelector) {
	b.Selectors = append(b.Selectors, s)
}

// AddSummary appends a radiation-length summary.
func (b *Bundle) AddSummary(s RadiationLengthSummary) {
	b.Summaries = append(b.Summaries, s)
}

// Merge appends every record of o to b, preserving o's internal order and
// enforcing b's uniqueness rules.
func (b *Bundle) Merge(o *Bundle) error {
	for _, s := range o.Shapes {
		if err := b.AddShape(s); err != nil {
			return err
		}
	}
	for _, op := range o.Operations {
		if err := b.AddOperation(op); err != nil {
			return err
		}
	}
	for _, l := range o.Logicals {
		if err := b.AddLogical(l); err != nil {
			return err
		}
	}
	for _, p := range o.Placements {
		if err := b.AddPlacement(p); err != nil {
			return err
		}
	}
	for _, r := range o.Rotations {
		b.EnsureRotation(r)
	}
	b.Algos = append(b.Algos, o.Algos...)
	for _, c := range o.Composites {
		if err := b.AddComposite(c); err != nil {
			return err
		}
	}
	b.Elements = append(b.Elements, o.Elements...)
	b.ROCs = append(b.ROCs, o.ROCs...)
	b.Selectors = append(b.Selectors, o.Selectors...)
	b.Summaries = append(b.Summaries, o.Summaries...)
	return nil
}

// UnmarshalJSON decodes the record streams and rebuilds the uniqueness
// indexes.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	type alias Bundle
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*b = Bundle(a)
	b.shapeIndex = map[string]struct{}{}
	b.logicalIndex = map[string]struct{}{}
	b.placementIndex = map[string]struct{}{}
	b.rotationIndex = map[string]struct{}{}
	b.compositeIndex = map[string]struct{}{}
	for _, s := range b.Shapes {
		b.shapeIndex[s.Name] = struct{}{}
	}
	for _, op := range b.Operations {
		b.shapeIndex[op.Name] = struct{}{}
	}
	for _, l := range b.Logicals {
		b.logicalIndex[l.Name] = struct{}{}
	}
	for _, p := range b.Placements {
		b.placementIndex[placementKey(p)] = struct{}{}
	}
	for _, r := range b.Rotations {
		b.rotationIndex[r.Name] = struct{}{}
	}
	for _, c := range b.Composites {
		b.compositeIndex[c.Name] = struct{}{}
	}
	return nil
}
