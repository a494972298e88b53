package template

import (
	"errors"
	"fmt"
)

// ValidationError reports a structural defect in a scan layout.
type ValidationError struct {
	Page   int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Page < 0 {
		return fmt.Sprintf("invalid template: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid template page %d: %s: %s", e.Page, e.Field, e.Reason)
}

// columnCorners maps card_columns to the model point indices of the
// top-right and bottom-left fiducials.
var columnCorners = map[int][2]int{
	1: {1, 4},
	2: {2, 6},
	3: {3, 8},
	4: {4, 10},
}

// Prepare derives the four reference fiducials of every page and checks the
// geometric contract the engine relies on. It is idempotent.
func (s *Scan) Prepare() error {
	if len(s.Pages) == 0 {
		return &ValidationError{Page: -1, Field: "pages", Reason: "no pages"}
	}
	var errs []error
	for i := range s.Pages {
		if err := s.Pages[i].prepare(i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Page) prepare(idx int) error {
	if p.ModelSize.W <= 0 || p.ModelSize.H <= 0 {
		return &ValidationError{Page: idx, Field: "model_size", Reason: "width and height must be positive"}
	}
	if p.ModelPoints4 == nil {
		four, err := p.deriveFiducials(idx)
		if err != nil {
			return err
		}
		p.ModelPoints4 = &four
	}
	f := p.Fiducials()
	if f[0].X == f[1].X {
		return &ValidationError{Page: idx, Field: "model_points", Reason: "top-left and top-right fiducials share x"}
	}
	if f[0].Y == f[2].Y {
		return &ValidationError{Page: idx, Field: "model_points", Reason: "top-left and bottom-left fiducials share y"}
	}
	for i, fp := range f {
		if fp.W <= 0 || fp.H <= 0 {
			return &ValidationError{Page: idx, Field: "model_points", Reason: fmt.Sprintf("fiducial %d has empty size", i)}
		}
	}
	for i, pn := range p.PageNumberPoints {
		if pn.FillRate < 0 || pn.FillRate > 1 {
			return &ValidationError{Page: idx, Field: "page_number_points", Reason: fmt.Sprintf("fill_rate of mark %d outside [0,1]", i)}
		}
	}
	seen := make(map[string]bool, len(p.Recognizes))
	for _, rec := range p.Recognizes {
		if rec.RecID != "" && seen[rec.RecID] {
			return &ValidationError{Page: idx, Field: "recognizes", Reason: fmt.Sprintf("duplicate rec_id %q", rec.RecID)}
		}
		seen[rec.RecID] = true
	}
	return nil
}

func (p *Page) deriveFiducials(idx int) ([4]ModelPoint, error) {
	var four [4]ModelPoint
	n := len(p.ModelPoints)
	if n < 4 {
		return four, &ValidationError{Page: idx, Field: "model_points", Reason: fmt.Sprintf("need at least 4 fiducials, got %d", n)}
	}
	corners, ok := columnCorners[p.CardColumns]
	if !ok {
		return four, &ValidationError{Page: idx, Field: "card_columns", Reason: fmt.Sprintf("unsupported value %d", p.CardColumns)}
	}
	if corners[0] >= n || corners[1] >= n {
		return four, &ValidationError{
			Page:   idx,
			Field:  "model_points",
			Reason: fmt.Sprintf("%d columns need more than %d fiducials", p.CardColumns, n),
		}
	}
	four[0] = p.ModelPoints[0]
	four[1] = p.ModelPoints[corners[0]]
	four[2] = p.ModelPoints[corners[1]]
	four[3] = p.ModelPoints[n-1]
	return four, nil
}
