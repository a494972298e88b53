// Package mapping converts template-space rectangles into photograph space
// from a pair of fiducial sets, with optional per-row warp corrections.
package mapping

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// Config controls anchor selection and move lookup.
type Config struct {
	// Boundary is the fraction of the TL→BL distance below which the top
	// fiducial pair anchors a mapping.
	Boundary float64 `mapstructure:"boundary" yaml:"boundary" json:"boundary"`
	// RowTolerance is how far, in template units, a region may be from an
	// assist row and still use its move operation.
	RowTolerance int `mapstructure:"row_tolerance" yaml:"row_tolerance" json:"row_tolerance"`
}

// DefaultConfig returns the mapping defaults.
func DefaultConfig() Config {
	return Config{Boundary: 0.5, RowTolerance: 30}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Boundary < 0 || c.Boundary > 1 {
		return fmt.Errorf("boundary must be in [0,1], got %f", c.Boundary)
	}
	if c.RowTolerance < 0 {
		return fmt.Errorf("row_tolerance must be >= 0, got %d", c.RowTolerance)
	}
	return nil
}

// Reference pairs the template fiducials of a page with the fiducials found
// in its photograph, both in TL, TR, BL, BR order.
type Reference struct {
	Template [4]utils.Rect
	Photo    [4]utils.Rect
}

// Scale returns the x and y scale from template to photograph.
func (r Reference) Scale() (float64, float64) {
	t, p := r.Template, r.Photo
	sx := float64(p[0].X-p[1].X) / float64(t[0].X-t[1].X)
	sy := float64(p[0].Y-p[2].Y) / float64(t[0].Y-t[2].Y)
	return sx, sy
}

// Mapper maps rectangles for one matched page. It is immutable.
type Mapper struct {
	ref    Reference
	cfg    Config
	sx, sy float64
	moves  *Moves
}

// NewMapper creates a mapper without move operations.
func NewMapper(ref Reference, cfg Config) *Mapper {
	sx, sy := ref.Scale()
	return &Mapper{ref: ref, cfg: cfg, sx: sx, sy: sy}
}

// WithMoves returns a copy of m that applies moves.
func (m *Mapper) WithMoves(moves *Moves) *Mapper {
	c := *m
	c.moves = moves
	return &c
}

// Reference returns the fiducial pair the mapper was built from.
func (m *Mapper) Reference() Reference { return m.ref }

// Map converts r, choosing the anchor pair by r's template y, and applies the
// move operation of the nearest assist row.
func (m *Mapper) Map(r utils.Rect) utils.Rect {
	out := m.mapAt(r, m.anchor(r.Y))
	if m.moves != nil {
		if op, ok := m.moves.Lookup(r.Y, m.cfg.RowTolerance); ok {
			out = op.Apply(out)
		}
	}
	return out
}

// MapFirst converts r with the top-left anchor and no move operation. Page
// matching uses it so the score does not depend on the bottom fiducials.
func (m *Mapper) MapFirst(r utils.Rect) utils.Rect {
	return m.mapAt(r, 0)
}

// MapRow converts r choosing the anchor by rowY instead of r's own y, so
// every marker of an assist row uses the same pair. No move is applied.
func (m *Mapper) MapRow(r utils.Rect, rowY int) utils.Rect {
	return m.mapAt(r, m.anchor(rowY))
}

func (m *Mapper) anchor(y int) int {
	t := m.ref.Template
	boundary := float64(t[0].Y) + float64(t[2].Y-t[0].Y)*m.cfg.Boundary
	if float64(y) < boundary {
		return 0
	}
	return 2
}

func (m *Mapper) mapAt(r utils.Rect, idx int) utils.Rect {
	a, pa := m.ref.Template[idx], m.ref.Photo[idx]
	return utils.Rect{
		X: int(math.Round(m.sx*float64(r.X-a.X))) + pa.X,
		Y: int(math.Round(m.sy*float64(r.Y-a.Y))) + pa.Y,
		W: int(math.Round(m.sx * float64(r.W))),
		H: int(math.Round(m.sy * float64(r.H))),
	}
}
