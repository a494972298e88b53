package mapping

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omr/internal/utils"
)

var templateFiducials = [4]utils.Rect{
	utils.NewRect(50, 50, 30, 30),
	utils.NewRect(920, 50, 30, 30),
	utils.NewRect(50, 1320, 30, 30),
	utils.NewRect(920, 1320, 30, 30),
}

func scaledReference() Reference {
	return Reference{
		Template: templateFiducials,
		Photo: [4]utils.Rect{
			utils.NewRect(100, 80, 36, 27),
			utils.NewRect(1144, 80, 36, 27),
			utils.NewRect(100, 1223, 36, 27),
			utils.NewRect(1144, 1223, 36, 27),
		},
	}
}

func TestMapper_Identity(t *testing.T) {
	m := NewMapper(Reference{Template: templateFiducials, Photo: templateFiducials}, DefaultConfig())
	properties := gopter.NewProperties(nil)

	properties.Property("identical fiducials map every rectangle onto itself", prop.ForAll(
		func(x, y, w, h int) bool {
			r := utils.NewRect(x, y, w, h)
			return m.Map(r) == r && m.MapFirst(r) == r
		},
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1400),
		gen.IntRange(1, 200),
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t)
}

func TestMapper_Linearity(t *testing.T) {
	m := NewMapper(scaledReference(), DefaultConfig())
	properties := gopter.NewProperties(nil)

	properties.Property("the midpoint maps to the midpoint of the mapped rectangles", prop.ForAll(
		func(x1, y1, x2, y2 int) bool {
			a := m.MapFirst(utils.NewRect(x1, y1, 10, 10))
			b := m.MapFirst(utils.NewRect(x2, y2, 10, 10))
			mid := m.MapFirst(utils.NewRect((x1+x2)/2, (y1+y2)/2, 10, 10))
			return math.Abs(float64(mid.X)-float64(a.X+b.X)/2) <= 2 &&
				math.Abs(float64(mid.Y)-float64(a.Y+b.Y)/2) <= 2
		},
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1400),
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1400),
	))

	properties.TestingRun(t)
}

func TestMapper_Scale(t *testing.T) {
	sx, sy := scaledReference().Scale()
	assert.InDelta(t, 1.2, sx, 1e-9)
	assert.InDelta(t, 0.9, sy, 1e-9)

	m := NewMapper(scaledReference(), DefaultConfig())
	assert.Equal(t, utils.NewRect(100+120, 80+90, 24, 18), m.Map(utils.NewRect(150, 150, 20, 20)))
}

func TestMapper_AnchorSelection(t *testing.T) {
	ref := scaledReference()
	// shift the bottom pair so the chosen anchor is visible in the output
	ref.Photo[2].Y += 10
	ref.Photo[3].Y += 10
	m := NewMapper(ref, DefaultConfig())
	sx, sy := ref.Scale()

	top := utils.NewRect(100, 600, 10, 10)
	got := m.Map(top)
	assert.Equal(t, int(math.Round(sy*float64(600-50)))+80, got.Y, "above the boundary the top pair anchors")

	bottom := utils.NewRect(100, 1000, 10, 10)
	got = m.Map(bottom)
	assert.Equal(t, int(math.Round(sy*float64(1000-1320)))+1233, got.Y, "below the boundary the bottom pair anchors")
	assert.Equal(t, int(math.Round(sx*50))+100, got.X)

	assert.Equal(t, m.MapFirst(bottom), m.MapRow(bottom, 600), "an override row picks the top pair")
}

func TestMoveOp_CarriesRowOntoRefinedMarkers(t *testing.T) {
	origL, origR := utils.NewRect(0, 0, 10, 10), utils.NewRect(100, 0, 10, 10)
	refL, refR := utils.NewRect(5, 3, 10, 10), utils.NewRect(105, 13, 10, 10)

	op := NewMoveOp(0, origL, origR, refL, refR)
	assert.InDelta(t, 5, op.DX, 1e-9)
	assert.InDelta(t, 3, op.DY, 1e-9)
	assert.InDelta(t, math.Atan2(10, 100), op.Angle, 1e-9)
	assert.Equal(t, refL, op.Apply(origL))
	assert.Equal(t, refR, op.Apply(origR))
}

func TestMoves_Lookup(t *testing.T) {
	moves := NewMoves()
	moves.Add(MoveOp{Row: 800, DX: 2})
	moves.Add(MoveOp{Row: 500, DX: 1})
	require.Equal(t, 2, moves.Len())
	assert.Equal(t, []int{500, 800}, []int{moves.All()[0].Row, moves.All()[1].Row})

	op, ok := moves.Lookup(500, 30)
	require.True(t, ok)
	assert.InDelta(t, 1, op.DX, 1e-9)

	op, ok = moves.Lookup(790, 30)
	require.True(t, ok)
	assert.Equal(t, 800, op.Row)

	_, ok = moves.Lookup(650, 30)
	assert.False(t, ok)
}

func TestMapper_AppliesMoves(t *testing.T) {
	moves := NewMoves()
	moves.Add(MoveOp{Row: 500, DX: 4, DY: -2})
	m := NewMapper(Reference{Template: templateFiducials, Photo: templateFiducials}, DefaultConfig()).WithMoves(moves)

	assert.Equal(t, utils.NewRect(204, 508, 40, 24), m.Map(utils.NewRect(200, 510, 40, 24)))
	assert.Equal(t, utils.NewRect(200, 900, 40, 24), m.Map(utils.NewRect(200, 900, 40, 24)))
	assert.Equal(t, utils.NewRect(200, 510, 40, 24), m.MapFirst(utils.NewRect(200, 510, 40, 24)))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.Error(t, Config{Boundary: 2}.Validate())
}
