// Package engine runs answer-sheet recognition for one scan layout: it
// registers the submitted photographs, assigns them to template pages,
// refines the registration and reads every answer group.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/omr/internal/barcode"
	"github.com/MeKo-Tech/omr/internal/common"
	"github.com/MeKo-Tech/omr/internal/detector"
	"github.com/MeKo-Tech/omr/internal/fill"
	"github.com/MeKo-Tech/omr/internal/geometry"
	"github.com/MeKo-Tech/omr/internal/mapping"
	"github.com/MeKo-Tech/omr/internal/match"
	"github.com/MeKo-Tech/omr/internal/ocr"
	"github.com/MeKo-Tech/omr/internal/raster"
	"github.com/MeKo-Tech/omr/internal/refine"
	"github.com/MeKo-Tech/omr/internal/render"
	"github.com/MeKo-Tech/omr/internal/template"
	"github.com/MeKo-Tech/omr/internal/utils"
)

// ErrEmptyBatch is returned for a request without images.
var ErrEmptyBatch = errors.New("engine: no images submitted")

// Options supplies the collaborators. Nil fields get the defaults linked into
// the build.
type Options struct {
	Barcode  barcode.Backend
	Digits   ocr.DigitReader
	Ticks    ocr.TickReader
	Progress Progress
}

// Engine recognizes submissions against one scan layout. It is immutable
// after New and safe for concurrent use.
type Engine struct {
	cfg  Config
	scan *template.Scan

	// expected is the template fiducial (w,h) used by the shape filters.
	expected [2]float64

	detector   *detector.Detector
	matcher    *match.Matcher
	refiner    *refine.Refiner
	classifier *fill.Classifier
	barcodes   *barcode.Decoder
	digits     ocr.DigitReader
	ticks      ocr.TickReader
	progress   Progress
}

// New validates cfg and scan and builds an engine. Template contract
// violations are reported here, never during recognition.
func New(scan *template.Scan, cfg Config, opts Options) (*Engine, error) {
	if scan == nil {
		return nil, errors.New("engine: nil scan layout")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := scan.Prepare(); err != nil {
		return nil, err
	}

	if opts.Barcode == nil {
		opts.Barcode = barcode.NewBackend()
	}
	if opts.Digits == nil {
		d, err := ocr.NewDigitReader(cfg.OCR)
		if err != nil {
			return nil, fmt.Errorf("digit reader: %w", err)
		}
		opts.Digits = d
	}
	if opts.Ticks == nil {
		opts.Ticks = ocr.NewTickReader(cfg.OCR)
	}
	if opts.Progress == nil {
		opts.Progress = NoOpProgress{}
	}

	tl := scan.Pages[0].Fiducials()[geometry.TopLeft]
	matcher := match.New(cfg.Match, cfg.Mapping)
	return &Engine{
		cfg:        cfg,
		scan:       scan,
		expected:   [2]float64{float64(tl.W), float64(tl.H)},
		detector:   detector.New(cfg.Detector, geometry.NewValidator(cfg.Geometry)),
		matcher:    matcher,
		refiner:    refine.New(cfg.Refine, matcher),
		classifier: fill.New(cfg.Fill),
		barcodes:   barcode.NewDecoder(cfg.Barcode, opts.Barcode),
		digits:     opts.Digits,
		ticks:      opts.Ticks,
		progress:   opts.Progress,
	}, nil
}

// Scan returns the layout the engine was built for.
func (e *Engine) Scan() *template.Scan { return e.scan }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Close releases collaborators that hold native resources.
func (e *Engine) Close() error {
	if c, ok := e.digits.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Recognize registers every source, assigns photographs to pages and reads
// all answer groups. Per-image and per-page failures are reported in the
// output; the error is non-nil only for an empty batch or cancellation.
func (e *Engine) Recognize(ctx context.Context, in Input) (*Output, error) {
	if len(in.Sources) == 0 {
		return nil, ErrEmptyBatch
	}
	total := common.NewNamedTimer("recognize")

	regs, err := e.registerAll(ctx, in.Sources, e.progress)
	if err != nil {
		return nil, err
	}

	out := &Output{
		TaskID: in.TaskID,
		Pages:  make([]PageResult, len(e.scan.Pages)),
		Images: make([]ImageStatus, len(regs)),
	}
	var cands []match.Candidate
	for i, r := range regs {
		out.Images[i] = r.status
		if r.im != nil {
			cands = append(cands, match.Candidate{Index: i, Image: r.im, Fiducials: r.fiducials})
		}
	}
	defer func() {
		for _, c := range cands {
			c.Image.Release()
		}
	}()

	timer := common.NewNamedTimer("match")
	assignments, err := e.matcher.Match(ctx, e.scan.Pages, cands)
	if err != nil {
		return nil, err
	}
	timer.Done("Pages matched", "candidates", len(cands))

	matched := 0
	for p := range e.scan.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a := assignments[p]
		if !a.Matched() {
			out.Pages[p] = emptyPage(&e.scan.Pages[p])
			continue
		}
		matched++
		out.Images[a.Image].Code = StatusMatched
		out.Pages[p] = e.recognizePage(ctx, p, a)
		out.Pages[p].ImageSource = in.Sources[a.Image].Name
		if a.Rotated {
			// The turned copy is owned by the assignment, not by cands.
			a.Raster.Release()
		}
	}

	switch {
	case matched == len(e.scan.Pages):
		out.Code, out.Message = CodeOK, "ok"
	case matched == 0:
		out.Code, out.Message = CodeNoPages, "no page matched"
	default:
		out.Code, out.Message = CodePartial, fmt.Sprintf("%d of %d pages matched", matched, len(e.scan.Pages))
	}

	total.Stop()
	slog.Info("Recognition finished", "task_id", in.TaskID, "images", len(in.Sources),
		"pages_matched", matched, "duration", total.Duration())
	return out, nil
}

// recognizePage refines the registration of a matched page and reads its
// groups.
func (e *Engine) recognizePage(ctx context.Context, p int, a match.Assignment) PageResult {
	page := &e.scan.Pages[p]
	im := a.Raster

	fids, kept := e.refiner.RefineFiducials(page, im, a.Fiducials)
	mapper := mapping.NewMapper(mapping.Reference{Template: page.Fiducials(), Photo: fids}, e.cfg.Mapping)
	moves := e.refiner.RefineAssists(page, im, mapper)
	mapper = mapper.WithMoves(moves)
	slog.Debug("Page registered", "page", p, "image", a.Image, "rotated_180", a.Rotated,
		"score", a.Score, "fiducials_refined", kept, "assist_rows", moves.Len())

	res := PageResult{
		HasPage:    true,
		ImageIndex: a.Image,
		Rotated180: a.Rotated,
		PageSize:   &template.Size{W: im.Width(), H: im.Height()},
	}

	rects := make([][]utils.Rect, len(page.Recognizes))
	for i, rec := range page.Recognizes {
		rects[i] = make([]utils.Rect, len(rec.Options))
		for j, opt := range rec.Options {
			rects[i][j] = mapper.Map(opt.Coordinate)
		}
	}
	res.Recognizes = e.readGroups(ctx, im, page.Recognizes, rects)

	if !e.cfg.OmitImages {
		if s, err := utils.EncodeBase64JPEG(im.RGB, e.cfg.JPEGQuality); err == nil {
			res.ImageRotated = s
		} else {
			slog.Warn("Encoding rectified page failed", "page", p, "error", err)
		}
	}
	if e.cfg.Render {
		res.ImageRendering = e.renderPage(im, page, fids, mapper, res.Recognizes)
	}
	return res
}

// readGroups classifies or reads every group. rects holds the
// photograph-space option rectangles per group.
func (e *Engine) readGroups(ctx context.Context, im *raster.Image, recs []template.Recognition, rects [][]utils.Rect) []GroupResult {
	out := skeleton(recs)

	var fillRects [][]utils.Rect
	for i, rec := range recs {
		if e.cfg.RecTypes.Kind(rec.RecType).IsFill() {
			fillRects = append(fillRects, rects[i])
		}
	}
	pageT := e.classifier.PageThreshold(im.Blur, fillRects)

	for i, rec := range recs {
		kind := e.cfg.RecTypes.Kind(rec.RecType)
		if kind.IsFill() {
			n := e.cfg.Fill.Standard
			if kind == template.KindExamNumber {
				n = e.cfg.Fill.ExamNumber
			}
			e.readFillGroup(im, rects[i], n, pageT, out[i].RecOptions)
			slog.Debug("Group classified", "rec_id", rec.RecID, "kind", kind.String())
			continue
		}
		for j, r := range rects[i] {
			coord := r
			out[i].RecOptions[j] = OptionResult{
				Value:      e.readOption(ctx, im.RGB, kind, r),
				Coordinate: &coord,
			}
		}
	}
	return out
}

// readFillGroup classifies one fill-type group and binarizes its rates.
func (e *Engine) readFillGroup(im *raster.Image, rects []utils.Rect, n fill.Neighbourhood, pageT int, opts []OptionResult) {
	g := e.classifier.Classify(im.Blur, rects, n, pageT)
	final := e.classifier.Final(g.Fills)
	for j, r := range rects {
		rate := 0.0
		if j < len(g.Fills) {
			rate = g.Fills[j]
		}
		coord := r.Translate(g.Offset.X, g.Offset.Y)
		opts[j] = OptionResult{
			Value:      template.IntValue(final[j]),
			Diagnostic: &rate,
			Coordinate: &coord,
		}
	}
}

// readOption asks the collaborator for kind. A region the collaborator cannot
// read yields nil.
func (e *Engine) readOption(ctx context.Context, img image.Image, kind template.Kind, r utils.Rect) *template.Value {
	switch kind {
	case template.KindBarcode, template.KindQRCode:
		formats := barcode.LinearFormats()
		if kind == template.KindQRCode {
			formats = barcode.MatrixFormats()
		}
		v, ok, err := e.barcodes.DecodeRegion(ctx, img, r, formats)
		if err != nil {
			e.collaboratorFailed("barcode", r, err)
			return nil
		}
		if !ok {
			return nil
		}
		return template.StringValue(ocr.CleanText(v))
	case template.KindNumber:
		v, err := e.digits.ReadDigits(ctx, img, r)
		if err != nil {
			e.collaboratorFailed("digits", r, err)
			return nil
		}
		return template.StringValue(v)
	case template.KindTick:
		m, err := e.ticks.ReadTick(ctx, img, r)
		if err != nil || m == ocr.MarkNone {
			e.collaboratorFailed("tick", r, err)
			return nil
		}
		return template.StringValue(m.String())
	default:
		return nil
	}
}

func (e *Engine) collaboratorFailed(name string, r utils.Rect, err error) {
	if err == nil || errors.Is(err, ocr.ErrNotRecognized) || errors.Is(err, barcode.ErrNoBackend) {
		return
	}
	slog.Warn("Collaborator failed", "collaborator", name, "rect", r, "error", err)
}

// renderPage draws the debug overlay and returns it as base64 JPEG.
func (e *Engine) renderPage(im *raster.Image, page *template.Page, fids [4]utils.Rect, mapper *mapping.Mapper, groups []GroupResult) string {
	rp := render.Page{Fiducials: fids[:]}
	for _, ap := range page.AssistPoints {
		rp.Assists = append(rp.Assists, mapper.Map(ap.Left), mapper.Map(ap.Right))
	}
	for _, g := range groups {
		for _, o := range g.RecOptions {
			if o.Coordinate == nil {
				continue
			}
			reg := render.Region{Rect: *o.Coordinate}
			switch {
			case o.Value == nil:
			case o.Diagnostic != nil:
				// fill option: mark it, the label would hide the bubble
				reg.Marked = o.Value.Kind == template.KindInt && o.Value.Int == 1
			default:
				reg.Label = o.Value.String()
			}
			rp.Regions = append(rp.Regions, reg)
		}
	}
	s, err := utils.EncodeBase64JPEG(render.Overlay(im.RGB, rp, render.DefaultStyle()), e.cfg.JPEGQuality)
	if err != nil {
		slog.Warn("Encoding page rendering failed", "error", err)
		return ""
	}
	return s
}
