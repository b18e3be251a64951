// Package geomutil holds the small numeric helpers shared by the analysis
// passes: partner-module lookup, rim clearance, and the material property
// derivations.
package geomutil

import (
	"math"

	"detgeom/pkg/tracker"
)

// FindPartner locates the module paired with the capsule at index start in
// caps: the next capsule in the same ring on the opposite detector side.
// It returns -1 when no partner exists.
func FindPartner(caps []tracker.ModuleCapsule, start int) int {
	ref := caps[start].Module.Ref
	for i := start + 1; i < len(caps); i++ {
		other := caps[i].Module.Ref
		if other.Ring == ref.Ring && other.Side != ref.Side {
			return i
		}
	}
	return -1
}

// RimOffset returns the radial sagitta a flat face of half-width w leaves
// against a circle of radius r, i.e. how far the face midpoint falls inside
// the circle through its corners.
func RimOffset(w, r float64) float64 {
	s := math.Asin(w / r)
	return (1 - math.Cos(s)) * r
}

// AtomicNumber estimates the atomic number of a material from its atomic
// weight a (g/mol) and radiation length x0 (mm of water equivalent). The
// estimate inverts the Tsai approximation; it returns -1 when the inversion
// has no real solution.
func AtomicNumber(x0, a float64) int {
	d := 4 - 4*(1.0-181.0*a/x0)
	if d > 0 {
		return int(math.Floor((math.Sqrt(d)-2.0)/2.0 + 0.5))
	}
	return -1
}

// AtomicWeight estimates an atomic weight from a nuclear interaction length
// (g/cm2) using the A^(1/3) scaling of nuclear cross sections.
func AtomicWeight(ilength float64) float64 {
	return math.Pow(ilength/35.0, 3)
}

// CompositeDensity returns the bulk density in g/cm3 of a module capsule
// mass m (g) smeared over a slab of the given surface (mm2) and thickness
// (mm).
func CompositeDensity(m, surface, thickness float64) float64 {
	return 1000.0 * m / (surface * thickness)
}

// AnnulusDensity returns the bulk density in g/cm3 of a mass m (g) smeared
// over an annular tube with the given inner radius, radial width and length
// (all mm).
func AnnulusDensity(m, rInner, rWidth, length float64) float64 {
	ro := rInner + rWidth
	return 1000.0 * m / (math.Pi * (ro*ro - rInner*rInner) * length)
}

// SensorThickness derives the physical thickness (mm) of a sensor of the
// given surface (mm2) from its silicon mass (g) and the density row of the
// material table. It returns 0 when no silicon row is available.
func SensorThickness(mass, surface float64, table *tracker.MaterialTable) float64 {
	if table == nil || surface == 0 {
		return 0
	}
	row, ok := table.Lookup(tracker.SensorSiliconTag)
	if !ok || row.Density == 0 {
		return 0
	}
	return 1000.0 * mass / (row.Density * surface)
}
