package geometry

import "math"

// Envelope is the axis-aligned and radial bounding summary of a set of
// points. RMinAtZMin and friends record the transverse radius extrema among
// the points lying at the axial extremes, which later passes need when
// closing polycone contours around module rings.
type Envelope struct {
	XMin float64 `json:"xMin"`
	XMax float64 `json:"xMax"`
	YMin float64 `json:"yMin"`
	YMax float64 `json:"yMax"`
	ZMin float64 `json:"zMin"`
	ZMax float64 `json:"zMax"`
	RMin float64 `json:"rMin"`
	RMax float64 `json:"rMax"`

	RMinAtZMin float64 `json:"rMinAtZMin"`
	RMaxAtZMin float64 `json:"rMaxAtZMin"`
	RMinAtZMax float64 `json:"rMinAtZMax"`
	RMaxAtZMax float64 `json:"rMaxAtZMax"`
}

// zExtremeTol is the axial tolerance inside which a point counts as lying at
// an envelope's z extreme.
const zExtremeTol = 1e-3

// NewEnvelope returns an envelope seeded so any fold tightens it.
func NewEnvelope() Envelope {
	inf := math.Inf(1)
	return Envelope{
		XMin: inf, XMax: -inf,
		YMin: inf, YMax: -inf,
		ZMin: inf, ZMax: -inf,
		RMin: inf, RMax: -inf,
		RMinAtZMin: inf, RMaxAtZMin: -inf,
		RMinAtZMax: inf, RMaxAtZMax: -inf,
	}
}

// EnvelopeOf computes the envelope of pts. The cartesian extrema fold over
// corners only; the radial extrema fold over corners and edge midpoints, as
// the widest transverse excursion of a tilted box sits on an edge rather
// than a vertex.
func EnvelopeOf(corners, midpoints []Vec3) Envelope {
	e := NewEnvelope()
	for _, p := range corners {
		e.XMin = math.Min(e.XMin, p.X)
		e.XMax = math.Max(e.XMax, p.X)
		e.YMin = math.Min(e.YMin, p.Y)
		e.YMax = math.Max(e.YMax, p.Y)
		e.ZMin = math.Min(e.ZMin, p.Z)
		e.ZMax = math.Max(e.ZMax, p.Z)
	}
	all := make([]Vec3, 0, len(corners)+len(midpoints))
	all = append(all, corners...)
	all = append(all, midpoints...)
	for _, p := range all {
		r := p.Rho()
		e.RMin = math.Min(e.RMin, r)
		e.RMax = math.Max(e.RMax, r)
	}
	for _, p := range all {
		r := p.Rho()
		if math.Abs(p.Z-e.ZMin) < zExtremeTol {
			e.RMinAtZMin = math.Min(e.RMinAtZMin, r)
			e.RMaxAtZMin = math.Max(e.RMaxAtZMin, r)
		}
		if math.Abs(p.Z-e.ZMax) < zExtremeTol {
			e.RMinAtZMax = math.Min(e.RMinAtZMax, r)
			e.RMaxAtZMax = math.Max(e.RMaxAtZMax, r)
		}
	}
	return e
}

// Merge widens e to also cover o.
func (e Envelope) Merge(o Envelope) Envelope {
	out := e
	out.XMin = math.Min(e.XMin, o.XMin)
	out.XMax = math.Max(e.XMax, o.XMax)
	out.YMin = math.Min(e.YMin, o.YMin)
	out.YMax = math.Max(e.YMax, o.YMax)
	out.RMin = math.Min(e.RMin, o.RMin)
	out.RMax = math.Max(e.RMax, o.RMax)
	switch {
	case o.ZMin < e.ZMin-zExtremeTol:
		out.RMinAtZMin, out.RMaxAtZMin = o.RMinAtZMin, o.RMaxAtZMin
	case o.ZMin < e.ZMin+zExtremeTol:
		out.RMinAtZMin = math.Min(e.RMinAtZMin, o.RMinAtZMin)
		out.RMaxAtZMin = math.Max(e.RMaxAtZMin, o.RMaxAtZMin)
	}
	switch {
	case o.ZMax > e.ZMax+zExtremeTol:
		out.RMinAtZMax, out.RMaxAtZMax = o.RMinAtZMax, o.RMaxAtZMax
	case o.ZMax > e.ZMax-zExtremeTol:
		out.RMinAtZMax = math.Min(e.RMinAtZMax, o.RMinAtZMax)
		out.RMaxAtZMax = math.Max(e.RMaxAtZMax, o.RMaxAtZMax)
	}
	out.ZMin = math.Min(e.ZMin, o.ZMin)
	out.ZMax = math.Max(e.ZMax, o.ZMax)
	return out
}
