package engine

import (
	"image"

	"github.com/MeKo-Tech/omr/internal/template"
	"github.com/MeKo-Tech/omr/internal/utils"
)

// Status is the outcome for one input image.
type Status int

const (
	StatusMatched Status = iota
	StatusUndecodable
	StatusNoFiducials
	StatusUnmatched
)

func (s Status) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusUndecodable:
		return "undecodable"
	case StatusNoFiducials:
		return "no_fiducials"
	case StatusUnmatched:
		return "unmatched"
	default:
		return "unknown"
	}
}

// Output codes.
const (
	CodeOK = iota
	// CodePartial means at least one template page found no photograph.
	CodePartial
	// CodeNoPages means no template page found a photograph.
	CodeNoPages
)

// Source is one submitted photograph. Image wins over Data when both are set.
type Source struct {
	Name  string
	Data  []byte
	Image image.Image
}

// Input is a recognition request.
type Input struct {
	TaskID  string
	Sources []Source
}

// Output is the result envelope of a recognition call. It always holds one
// page per template page and one status per input image.
type Output struct {
	TaskID  string        `json:"task_id"`
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Pages   []PageResult  `json:"pages"`
	Images  []ImageStatus `json:"images"`
}

// ImageStatus reports what happened to one input image.
type ImageStatus struct {
	Index  int    `json:"index"`
	Source string `json:"image_source,omitempty"`
	Code   Status `json:"code"`
	W      int    `json:"w"`
	H      int    `json:"h"`
	Error  string `json:"error,omitempty"`
}

// PageResult is the recognition of one template page.
type PageResult struct {
	HasPage        bool           `json:"has_page"`
	ImageIndex     int            `json:"image_index"`
	ImageSource    string         `json:"image_source,omitempty"`
	Rotated180     bool           `json:"rotated_180,omitempty"`
	ImageRotated   string         `json:"image_rotated,omitempty"`
	ImageRendering string         `json:"image_rendering,omitempty"`
	PageSize       *template.Size `json:"page_size,omitempty"`
	Recognizes     []GroupResult  `json:"recognizes"`
}

// GroupResult is the recognition of one answer group.
type GroupResult struct {
	RecID      string         `json:"rec_id"`
	RecType    int            `json:"rec_type"`
	RecOptions []OptionResult `json:"rec_options"`
}

// OptionResult is one option of a group. Value is nil when nothing was
// recognized. Diagnostic holds the raw fill rate of fill-type options.
type OptionResult struct {
	Value      *template.Value `json:"value"`
	Diagnostic *float64        `json:"diagnostic,omitempty"`
	Coordinate *utils.Rect     `json:"coordinate,omitempty"`
}

// SecondInput is a second-pass request: option rectangles are already in
// photograph space and Images holds one base64 image per page.
type SecondInput struct {
	TaskID string       `json:"task_id"`
	Pages  []SecondPage `json:"pages"`
	Images []string     `json:"images"`
}

// SecondPage lists the groups of one page of a second-pass request.
type SecondPage struct {
	Recognizes []template.Recognition `json:"recognizes"`
}

// emptyPage returns the result of a page without photograph.
func emptyPage(p *template.Page) PageResult {
	return PageResult{ImageIndex: -1, Recognizes: skeleton(p.Recognizes)}
}

// skeleton returns one group result per recognition with empty options.
func skeleton(recs []template.Recognition) []GroupResult {
	out := make([]GroupResult, len(recs))
	for i, rec := range recs {
		out[i] = GroupResult{
			RecID:      rec.RecID,
			RecType:    rec.RecType,
			RecOptions: make([]OptionResult, len(rec.Options)),
		}
	}
	return out
}
