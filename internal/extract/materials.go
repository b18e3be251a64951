package extract

import (
	"context"

	"detgeom/internal/geomutil"
	"detgeom/pkg/geometry"
	"detgeom/pkg/tracker"
)

// ElementaryMaterials copies each material table row into an elementary
// material record, converting interaction length to an approximate atomic
// weight and deriving the atomic number from the radiation length. A
// derivation failure is surfaced as -1 and logged, never clamped.
func (e *Engine) ElementaryMaterials(ctx context.Context, table *tracker.MaterialTable) (*geometry.Bundle, error) {
	b := geometry.NewBundle()
	for _, row := range table.Rows {
		weight := geomutil.AtomicWeight(row.InteractionLength)
		number := geomutil.AtomicNumber(row.RadiationLength, weight)
		if number < 0 {
			e.log.Warn("unphysical radiation length, atomic number unresolved",
				"material", row.Tag, "radiationLength", row.RadiationLength)
		}
		b.AddElement(geometry.ElementaryMaterial{
			Name:         row.Tag,
			Symbol:       row.Tag,
			AtomicNumber: number,
			AtomicWeight: weight,
			Density:      row.Density,
		})
	}
	return b, nil
}
