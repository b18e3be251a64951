// Package geometry defines the value types and output record collections
// produced by the tracker geometry analysis: solids, logical volumes,
// placements, rotations, replication-algorithm calls, composite materials,
// topology selectors, and radiation-length summaries.
package geometry

import "math"

// Vec3 is a point or direction in the global tracker frame. Lengths are in
// millimetres throughout the package.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v multiplied by f.
func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v.X * f, v.Y * f, v.Z * f}
}

// Rho returns the transverse radius of v, i.e. its distance from the beam
// axis after projection onto the x-y plane.
func (v Vec3) Rho() float64 {
	return math.Hypot(v.X, v.Y)
}

// Phi returns the azimuthal angle of v in radians, in (-pi, pi].
func (v Vec3) Phi() float64 {
	return math.Atan2(v.Y, v.X)
}

// Mid returns the midpoint of a and b.
func Mid(a, b Vec3) Vec3 {
	return Vec3{(a.X + b.X) / 2, (a.Y + b.Y) / 2, (a.Z + b.Z) / 2}
}
