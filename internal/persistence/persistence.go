// Package persistence defines the store used to record extraction
// runs. Each run keeps the full geometry bundle as a JSON snapshot so
// past outputs can be inspected or re-exported without rerunning the
// analysis.
package persistence

import (
	"context"
	"errors"
	"time"

	"detgeom/pkg/geometry"
)

// Run is one completed extraction, keyed by name.
type Run struct {
	Name      string           `json:"name"`
	Model     string           `json:"model"`
	CreatedAt time.Time        `json:"created_at"`
	Counts    Counts           `json:"counts"`
	Bundle    *geometry.Bundle `json:"bundle,omitempty"`
}

// Counts summarizes a bundle without loading it.
type Counts struct {
	Shapes     int `json:"shapes"`
	Logicals   int `json:"logicals"`
	Placements int `json:"placements"`
	Algos      int `json:"algos"`
	Composites int `json:"composites"`
	Elements   int `json:"elements"`
}

// CountsOf derives summary counts from a bundle.
func CountsOf(b *geometry.Bundle) Counts {
	if b == nil {
		return Counts{}
	}
	return Counts{
		Shapes:     len(b.Shapes),
		Logicals:   len(b.Logicals),
		Placements: len(b.Placements),
		Algos:      len(b.Algos),
		Composites: len(b.Composites),
		Elements:   len(b.Elements),
	}
}

// RunStore persists extraction runs. SaveRun replaces any run with
// the same name.
type RunStore interface {
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, name string) (Run, error)
	ListRuns(ctx context.Context) ([]Run, error)
	Close() error
}

// ErrRunNotFound is returned by GetRun for an unknown run name.
var ErrRunNotFound = errors.New("persistence: run not found")
