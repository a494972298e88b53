package testutil

import (
	"encoding/json"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/omr/internal/template"
)

// PhotoOffset is where Photo places a page on its canvas.
var PhotoOffset = image.Pt(40, 40)

// SheetFixture is a SampleScan layout plus the marks filled in on each of
// its pages.
type SheetFixture struct {
	Scan  *template.Scan
	Marks []Marks
}

// NewSheetFixture returns a fixture of the given number of pages with
// nothing filled.
func NewSheetFixture(pages int) *SheetFixture {
	f := &SheetFixture{Scan: SampleScan(pages), Marks: make([]Marks, pages)}
	for i := range f.Marks {
		f.Marks[i] = Marks{}
	}
	return f
}

// Mark fills options of group on page.
func (f *SheetFixture) Mark(page int, group string, options ...int) {
	f.Marks[page][group] = append(f.Marks[page][group], options...)
}

// Photo renders page and places it on a photograph canvas.
func (f *SheetFixture) Photo(page int) *image.NRGBA {
	return Photograph(RenderPage(&f.Scan.Pages[page], f.Marks[page]), PhotoOffset, 0)
}

// Expected returns the 0/1 value each option of group on page should read as.
func (f *SheetFixture) Expected(page int, group string) []int {
	for _, rec := range f.Scan.Pages[page].Recognizes {
		if rec.RecID != group {
			continue
		}
		out := make([]int, len(rec.Options))
		for _, i := range f.Marks[page][group] {
			out[i] = 1
		}
		return out
	}
	return nil
}

// WriteTemplate stores the layout as JSON.
func (f *SheetFixture) WriteTemplate(path string) error {
	data, err := json.MarshalIndent(f.Scan, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// WritePhoto stores the photograph of page; the format follows the extension.
func (f *SheetFixture) WritePhoto(path string, page int) error {
	return imaging.Save(f.Photo(page), path)
}
