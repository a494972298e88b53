package mapping

import (
	"math"
	"slices"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// MoveOp is the local warp correction of one assist row: a translation
// followed by a rotation about Center.
type MoveOp struct {
	Row    int         `json:"row"`
	DX     float64     `json:"dx"`
	DY     float64     `json:"dy"`
	Angle  float64     `json:"angle"`
	Center utils.Point `json:"center"`
}

// NewMoveOp derives the operation that carries the original left/right
// markers of a row onto their refined positions.
func NewMoveOp(row int, origLeft, origRight, refLeft, refRight utils.Rect) MoveOp {
	before := utils.Point{X: float64(origRight.X - origLeft.X), Y: float64(origRight.Y - origLeft.Y)}
	after := utils.Point{X: float64(refRight.X - refLeft.X), Y: float64(refRight.Y - refLeft.Y)}
	return MoveOp{
		Row:    row,
		DX:     float64(refLeft.X - origLeft.X),
		DY:     float64(refLeft.Y - origLeft.Y),
		Angle:  utils.SignedAngle(before, after),
		Center: refLeft.Origin(),
	}
}

// Apply moves the anchor of r; the size is kept.
func (op MoveOp) Apply(r utils.Rect) utils.Rect {
	p := utils.Point{X: float64(r.X) + op.DX, Y: float64(r.Y) + op.DY}
	if op.Angle != 0 {
		p = utils.RotatePoint(p, op.Center, op.Angle)
	}
	return utils.Rect{X: int(math.Round(p.X)), Y: int(math.Round(p.Y)), W: r.W, H: r.H}
}

// Moves holds the move operations of a page keyed by template row.
type Moves struct {
	ops  map[int]MoveOp
	rows []int
}

// NewMoves creates an empty set.
func NewMoves() *Moves {
	return &Moves{ops: map[int]MoveOp{}}
}

// Add stores op under its row, replacing any earlier operation.
func (m *Moves) Add(op MoveOp) {
	if _, ok := m.ops[op.Row]; !ok {
		m.rows = append(m.rows, op.Row)
		slices.Sort(m.rows)
	}
	m.ops[op.Row] = op
}

// Len returns the number of rows.
func (m *Moves) Len() int { return len(m.rows) }

// All returns the operations in row order.
func (m *Moves) All() []MoveOp {
	out := make([]MoveOp, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, m.ops[r])
	}
	return out
}

// Lookup returns the operation of row, or of the nearest row within tolerance.
func (m *Moves) Lookup(row, tolerance int) (MoveOp, bool) {
	if op, ok := m.ops[row]; ok {
		return op, true
	}
	best, bestDist := 0, math.MaxInt
	for _, r := range m.rows {
		d := r - row
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = r, d
		}
	}
	if bestDist > tolerance {
		return MoveOp{}, false
	}
	return m.ops[best], true
}
