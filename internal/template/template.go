// Package template holds the scan layout that describes, in template space,
// where fiducials, page-number marks, assist markers and answer regions sit
// on every page of an answer sheet.
package template

import (
	"github.com/MeKo-Tech/omr/internal/utils"
)

// Scan is a complete answer-sheet layout.
type Scan struct {
	Pages    []Page `json:"pages" yaml:"pages"`
	IsInSeal bool   `json:"is_in_seal" yaml:"is_in_seal"`
	CardType int    `json:"card_type" yaml:"card_type"`
}

// Size is a page size in template units.
type Size struct {
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// Portrait reports whether the page is taller than wide.
func (s Size) Portrait() bool { return s.H > s.W }

// ModelPoint is a printed fiducial marker.
type ModelPoint struct {
	PointType  int        `json:"point_type" yaml:"point_type"`
	Coordinate utils.Rect `json:"coordinate" yaml:"coordinate"`
}

// PageNumberPoint is a page fingerprint mark with its expected fill rate.
type PageNumberPoint struct {
	FillRate   float64    `json:"fill_rate" yaml:"fill_rate"`
	Coordinate utils.Rect `json:"coordinate" yaml:"coordinate"`
}

// AssistPoint is the left/right marker pair of one content row.
type AssistPoint struct {
	Left  utils.Rect `json:"left" yaml:"left"`
	Right utils.Rect `json:"right" yaml:"right"`
}

// Row returns the template y that keys the row's move operation.
func (a AssistPoint) Row() int { return a.Left.Y }

// Option is one answer region inside a recognition group.
type Option struct {
	Value      *Value     `json:"value,omitempty" yaml:"value,omitempty"`
	Coordinate utils.Rect `json:"coordinate" yaml:"coordinate"`
}

// Recognition is an answer group: one question, barcode, number box, ...
type Recognition struct {
	RecID   string   `json:"rec_id" yaml:"rec_id"`
	RecType int      `json:"rec_type" yaml:"rec_type"`
	Options []Option `json:"options" yaml:"options"`
}

// Page is the layout of one physical page.
type Page struct {
	CardColumns      int               `json:"card_columns" yaml:"card_columns"`
	ModelSize        Size              `json:"model_size" yaml:"model_size"`
	ModelPoints      []ModelPoint      `json:"model_points" yaml:"model_points"`
	PageNumberPoints []PageNumberPoint `json:"page_number_points" yaml:"page_number_points"`
	AssistPoints     []AssistPoint     `json:"assist_points,omitempty" yaml:"assist_points,omitempty"`
	Recognizes       []Recognition     `json:"recognizes" yaml:"recognizes"`
	ModelPoints4     *[4]ModelPoint    `json:"model_points_4,omitempty" yaml:"model_points_4,omitempty"`
}

// Fiducials returns the four reference fiducials in TL, TR, BL, BR order.
// Prepare must have succeeded first.
func (p *Page) Fiducials() [4]utils.Rect {
	var out [4]utils.Rect
	if p.ModelPoints4 == nil {
		return out
	}
	for i, mp := range p.ModelPoints4 {
		out[i] = mp.Coordinate
	}
	return out
}

// PageNumberRates returns the expected fill rates of the page-number marks.
func (p *Page) PageNumberRates() []float64 {
	out := make([]float64, len(p.PageNumberPoints))
	for i, pn := range p.PageNumberPoints {
		out[i] = pn.FillRate
	}
	return out
}
