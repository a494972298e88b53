// Package match assigns registered photographs to template pages by
// comparing page-number mark fill rates, trying 180° turns for photographs
// that stay unassigned.
package match

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/omr/internal/mapping"
	"github.com/MeKo-Tech/omr/internal/raster"
	"github.com/MeKo-Tech/omr/internal/template"
	"github.com/MeKo-Tech/omr/internal/utils"
)

// Config controls matching.
type Config struct {
	// DiffThreshold is the largest accepted mean fill-rate difference.
	DiffThreshold float64 `mapstructure:"diff_threshold" yaml:"diff_threshold" json:"diff_threshold"`
}

// DefaultConfig returns the matching defaults.
func DefaultConfig() Config {
	return Config{DiffThreshold: 0.21}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.DiffThreshold < 0 || c.DiffThreshold > 1 {
		return fmt.Errorf("diff_threshold must be in [0,1], got %f", c.DiffThreshold)
	}
	return nil
}

// Candidate is a photograph whose fiducials were found.
type Candidate struct {
	// Index is the position of the photograph in the input batch.
	Index     int
	Image     *raster.Image
	Fiducials [4]utils.Rect
}

// Assignment is the outcome for one template page. Image is -1 when no
// photograph matched.
type Assignment struct {
	Page      int
	Image     int
	Rotated   bool
	Score     float64
	Raster    *raster.Image
	Fiducials [4]utils.Rect
}

// Matched reports whether a photograph was assigned.
func (a Assignment) Matched() bool { return a.Image >= 0 }

// Matcher scores and assigns candidates. It is stateless.
type Matcher struct {
	cfg    Config
	mapCfg mapping.Config
}

// New creates a matcher.
func New(cfg Config, mapCfg mapping.Config) *Matcher {
	return &Matcher{cfg: cfg, mapCfg: mapCfg}
}

// Score returns the mean absolute difference between the expected and the
// measured fill rates of page's page-number marks. Marks are mapped with the
// top-left fiducial pair only and measured on the morphological raster. A page
// without marks scores 0.
func (m *Matcher) Score(page *template.Page, im *raster.Image, fiducials [4]utils.Rect) float64 {
	if len(page.PageNumberPoints) == 0 {
		return 0
	}
	mapper := mapping.NewMapper(mapping.Reference{Template: page.Fiducials(), Photo: fiducials}, m.mapCfg)
	expected := make([]float64, len(page.PageNumberPoints))
	measured := make([]float64, len(page.PageNumberPoints))
	for i, pn := range page.PageNumberPoints {
		expected[i] = pn.FillRate
		measured[i] = im.IntegralMorph.FillRate(mapper.MapFirst(pn.Coordinate))
	}
	return utils.MeanAbsoluteDifference(expected, measured)
}

// Match assigns candidates to pages. The first pass walks pages in order and
// gives each the first unclaimed candidate scoring within the threshold. The
// second pass repeats this for the remaining pages with 180° turned copies of
// the remaining candidates. A turned copy that wins replaces the candidate's
// raster in the assignment; copies that do not win are released.
func (m *Matcher) Match(ctx context.Context, pages []template.Page, cands []Candidate) ([]Assignment, error) {
	out := make([]Assignment, len(pages))
	for i := range out {
		out[i] = Assignment{Page: i, Image: -1}
	}
	claimed := make([]bool, len(cands))

	pass := func(rotated bool, view func(int) (*raster.Image, [4]utils.Rect)) error {
		for p := range pages {
			if out[p].Matched() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			for c := range cands {
				if claimed[c] {
					continue
				}
				im, fids := view(c)
				score := m.Score(&pages[p], im, fids)
				slog.Debug("Page match score", "page", p, "image", cands[c].Index,
					"rotated", rotated, "score", score)
				if score <= m.cfg.DiffThreshold {
					claimed[c] = true
					out[p] = Assignment{
						Page: p, Image: cands[c].Index, Rotated: rotated,
						Score: score, Raster: im, Fiducials: fids,
					}
					break
				}
			}
		}
		return nil
	}

	if err := pass(false, func(c int) (*raster.Image, [4]utils.Rect) {
		return cands[c].Image, cands[c].Fiducials
	}); err != nil {
		return nil, err
	}

	turned := make([]*raster.Image, len(cands))
	turnedFids := make([][4]utils.Rect, len(cands))
	err := pass(true, func(c int) (*raster.Image, [4]utils.Rect) {
		if turned[c] == nil {
			im := cands[c].Image
			turned[c] = im.Clone()
			turned[c].Rotate180()
			turnedFids[c] = Rotate180Fiducials(cands[c].Fiducials, im.Width(), im.Height())
		}
		return turned[c], turnedFids[c]
	})

	for c, im := range turned {
		if im == nil {
			continue
		}
		used := false
		for _, a := range out {
			if a.Raster == im {
				used = true
				break
			}
		}
		if !used {
			im.Release()
			turned[c] = nil
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Rotate180Fiducials returns the fiducials of a w×h raster turned by 180°.
// The turn swaps TL with BR and TR with BL; each rectangle's far corner
// becomes its new anchor.
func Rotate180Fiducials(f [4]utils.Rect, w, h int) [4]utils.Rect {
	var out [4]utils.Rect
	for i := range f {
		src := f[3-i]
		out[i] = utils.NewRect(w-src.X-src.W, h-src.Y-src.H, src.W, src.H)
	}
	return out
}
