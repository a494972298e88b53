package utils

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"gopkg.in/yaml.v3"
)

// Point represents a 2D coordinate in float space.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned pixel rectangle anchored at its top-left corner.
// It is the coordinate unit shared by templates, fiducials and answer regions.
type Rect struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// NewRect constructs a Rect.
func NewRect(x, y, w, h int) Rect { return Rect{X: x, Y: y, W: w, H: h} }

// Origin returns the anchor corner as a float point.
func (r Rect) Origin() Point { return Point{X: float64(r.X), Y: float64(r.Y)} }

// Far returns the corner opposite the anchor, (x+w, y+h).
func (r Rect) Far() Point { return Point{X: float64(r.X + r.W), Y: float64(r.Y + r.H)} }

// Area returns w*h, or 0 for degenerate rectangles.
func (r Rect) Area() int {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Translate returns r moved by dx, dy.
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// ToImageRect converts to an image.Rectangle.
func (r Rect) ToImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// UnmarshalJSON accepts integer or float members; floats truncate toward zero.
func (r *Rect) UnmarshalJSON(data []byte) error {
	var raw struct {
		X, Y, W, H json.Number
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	vals := [4]*int{&r.X, &r.Y, &r.W, &r.H}
	for i, n := range []json.Number{raw.X, raw.Y, raw.W, raw.H} {
		v, err := numberToInt(string(n))
		if err != nil {
			return fmt.Errorf("coordinate member %d: %w", i, err)
		}
		*vals[i] = v
	}
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML templates.
func (r *Rect) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		X float64 `yaml:"x"`
		Y float64 `yaml:"y"`
		W float64 `yaml:"w"`
		H float64 `yaml:"h"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*r = Rect{X: int(raw.X), Y: int(raw.Y), W: int(raw.W), H: int(raw.H)}
	return nil
}

func numberToInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return int(f), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CropPadWhite crops r out of img. Pixels of r outside the image are white,
// so the result always has size r.W x r.H.
func CropPadWhite(img image.Image, r Rect) *image.NRGBA {
	w, h := r.W, r.H
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	canvas := imaging.New(w, h, color.White)
	if w == 0 || h == 0 {
		return canvas
	}
	inside := r.ToImageRect().Intersect(img.Bounds())
	if inside.Empty() {
		return canvas
	}
	part := imaging.Crop(img, inside)
	return imaging.Paste(canvas, part, image.Pt(inside.Min.X-r.X, inside.Min.Y-r.Y))
}

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		yTop := rect.Min.Y + t
		yBot := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, yTop, col)
			dst.Set(x, yBot, col)
		}
	}
	for t := range thickness {
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(xLeft, y, col)
			dst.Set(xRight, y, col)
		}
	}
}

// FillRect paints rect with col blended at the given alpha (0..1).
func FillRect(dst *image.RGBA, rect image.Rectangle, col color.RGBA, alpha float64) {
	rect = rect.Intersect(dst.Bounds())
	a := math.Max(0, math.Min(1, alpha))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			o := dst.RGBAAt(x, y)
			dst.SetRGBA(x, y, color.RGBA{
				R: uint8(float64(o.R)*(1-a) + float64(col.R)*a),
				G: uint8(float64(o.G)*(1-a) + float64(col.G)*a),
				B: uint8(float64(o.B)*(1-a) + float64(col.B)*a),
				A: 255,
			})
		}
	}
}

// DrawLine draws a segment between two points.
func DrawLine(dst *image.RGBA, a, b Point, col color.Color, thickness int) {
	drawLine(dst,
		image.Pt(int(math.Round(a.X)), int(math.Round(a.Y))),
		image.Pt(int(math.Round(b.X)), int(math.Round(b.Y))),
		col, thickness)
}

// drawLine draws a line between two points using a simple Bresenham variant.
func drawLine(dst *image.RGBA, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	x1, y1 := b.X, b.Y
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawThickPoint(dst *image.RGBA, x, y int, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	r := (thickness - 1) / 2
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(dst.Bounds()) {
				dst.Set(xx, yy, col)
			}
		}
	}
}
