package testutil

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/omr/internal/template"
	"github.com/MeKo-Tech/omr/internal/utils"
)

// Sheet geometry shared by the fixtures, in template units.
const (
	SheetW = 1000
	SheetH = 1400
	// FiducialSize is the side of every printed fiducial.
	FiducialSize = 30
)

// SampleScan builds a layout with the given number of pages. Every page has six
// fiducials on one column, one page-number slot per page (the page's own slot
// is printed), one assist row and two answer groups: a single-choice question
// "q1" with options A-D and a multi-choice question "q2" with options A-D.
func SampleScan(pages int) *template.Scan {
	scan := &template.Scan{CardType: 1}
	for p := range pages {
		page := template.Page{
			CardColumns: 1,
			ModelSize:   template.Size{W: SheetW, H: SheetH},
		}
		for _, pt := range [][2]int{{50, 50}, {920, 50}, {50, 700}, {920, 700}, {50, 1320}, {920, 1320}} {
			page.ModelPoints = append(page.ModelPoints, template.ModelPoint{
				PointType:  1,
				Coordinate: utils.NewRect(pt[0], pt[1], FiducialSize, FiducialSize),
			})
		}
		for slot := range pages {
			rate := 0.0
			if slot == p {
				rate = 1.0
			}
			page.PageNumberPoints = append(page.PageNumberPoints, template.PageNumberPoint{
				FillRate:   rate,
				Coordinate: utils.NewRect(200+60*slot, 60, 20, 20),
			})
		}
		page.AssistPoints = []template.AssistPoint{{
			Left:  utils.NewRect(60, 500, 16, 16),
			Right: utils.NewRect(924, 500, 16, 16),
		}}
		page.Recognizes = []template.Recognition{
			optionGroup("q1", 7, 500),
			optionGroup("q2", 8, 800),
		}
		scan.Pages = append(scan.Pages, page)
	}
	if err := scan.Prepare(); err != nil {
		panic(err)
	}
	return scan
}

func optionGroup(id string, recType, y int) template.Recognition {
	rec := template.Recognition{RecID: id, RecType: recType}
	for i, label := range []string{"A", "B", "C", "D"} {
		rec.Options = append(rec.Options, template.Option{
			Value:      template.StringValue(label),
			Coordinate: utils.NewRect(200+80*i, y, 40, 24),
		})
	}
	return rec
}

// Marks lists the filled options of each group, by option index.
type Marks map[string][]int

// AssistFrame is the width of the dark frame printed around an assist pocket.
const AssistFrame = 6

// RenderPage draws page at template scale: fiducials, printed page-number
// slots, assist markers as white pockets in a dark frame, and answer bubbles
// as light outlines, with the options in marks filled solid.
func RenderPage(page *template.Page, marks Marks) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, page.ModelSize.W, page.ModelSize.H))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	black := color.NRGBA{A: 255}
	for _, mp := range page.ModelPoints {
		fillRect(img, mp.Coordinate, black)
	}
	for _, pn := range page.PageNumberPoints {
		if pn.FillRate >= 0.5 {
			fillRect(img, pn.Coordinate, black)
		}
	}
	for _, ap := range page.AssistPoints {
		pocket(img, ap.Left)
		pocket(img, ap.Right)
	}
	outline := color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	for _, rec := range page.Recognizes {
		filled := map[int]bool{}
		for _, i := range marks[rec.RecID] {
			filled[i] = true
		}
		for i, opt := range rec.Options {
			if filled[i] {
				fillRect(img, opt.Coordinate, color.NRGBA{R: 30, G: 30, B: 30, A: 255})
				continue
			}
			strokeRect(img, opt.Coordinate, outline)
		}
	}
	return img
}

// Photograph places a rendered page on a larger white canvas at offset and
// turns it by angle degrees counter-clockwise, the way a slightly skewed
// photograph looks.
func Photograph(page image.Image, offset image.Point, angle float64) *image.NRGBA {
	b := page.Bounds()
	canvas := imaging.New(b.Dx()+2*offset.X, b.Dy()+2*offset.Y, color.White)
	canvas = imaging.Paste(canvas, page, offset)
	if angle == 0 {
		return canvas
	}
	return imaging.Rotate(canvas, angle, color.White)
}

// pocket prints the dark frame of an assist marker and leaves r itself white.
func pocket(img *image.NRGBA, r utils.Rect) {
	f := AssistFrame
	fillRect(img, utils.NewRect(r.X-f, r.Y-f, r.W+2*f, r.H+2*f), color.NRGBA{A: 255})
	fillRect(img, r, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
}

func fillRect(img *image.NRGBA, r utils.Rect, c color.NRGBA) {
	draw.Draw(img, r.ToImageRect(), image.NewUniform(c), image.Point{}, draw.Src)
}

func strokeRect(img *image.NRGBA, r utils.Rect, c color.NRGBA) {
	for x := r.X; x < r.X+r.W; x++ {
		img.SetNRGBA(x, r.Y, c)
		img.SetNRGBA(x, r.Y+r.H-1, c)
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		img.SetNRGBA(r.X, y, c)
		img.SetNRGBA(r.X+r.W-1, y, c)
	}
}
