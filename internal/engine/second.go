package engine

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/omr/internal/raster"
	"github.com/MeKo-Tech/omr/internal/utils"
)

// RecognizeSecond reads groups whose option rectangles are already in
// photograph space. Page i is read from image i; no detection, matching or
// mapping happens. A page whose image is missing or undecodable has no result.
func (e *Engine) RecognizeSecond(ctx context.Context, in SecondInput) (*Output, error) {
	if len(in.Images) == 0 {
		return nil, ErrEmptyBatch
	}
	out := &Output{
		TaskID: in.TaskID,
		Pages:  make([]PageResult, len(in.Pages)),
		Images: make([]ImageStatus, len(in.Images)),
	}
	for i := range out.Images {
		out.Images[i] = ImageStatus{Index: i, Code: StatusUnmatched}
	}

	read := 0
	for p, page := range in.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out.Pages[p] = PageResult{ImageIndex: -1, Recognizes: skeleton(page.Recognizes)}
		if p >= len(in.Images) {
			continue
		}
		im, err := e.secondRaster(in.Images[p])
		if err != nil {
			out.Images[p].Code = StatusUndecodable
			out.Images[p].Error = err.Error()
			slog.Warn("Second pass image unusable", "page", p, "error", err)
			continue
		}

		rects := make([][]utils.Rect, len(page.Recognizes))
		for i, rec := range page.Recognizes {
			rects[i] = make([]utils.Rect, len(rec.Options))
			for j, opt := range rec.Options {
				rects[i][j] = opt.Coordinate
			}
		}
		out.Pages[p] = PageResult{
			HasPage:    true,
			ImageIndex: p,
			Recognizes: e.readGroups(ctx, im, page.Recognizes, rects),
		}
		out.Images[p] = ImageStatus{Index: p, Code: StatusMatched, W: im.Width(), H: im.Height()}
		im.Release()
		read++
	}

	switch {
	case read == len(in.Pages):
		out.Code, out.Message = CodeOK, "ok"
	case read == 0:
		out.Code, out.Message = CodeNoPages, "no page readable"
	default:
		out.Code, out.Message = CodePartial, fmt.Sprintf("%d of %d pages read", read, len(in.Pages))
	}
	return out, nil
}

// secondRaster decodes a base64 page image and builds its rasters without
// any orientation change.
func (e *Engine) secondRaster(b64 string) (*raster.Image, error) {
	img, err := utils.DecodeBase64Image(b64)
	if err != nil {
		return nil, err
	}
	return raster.Preprocess(img, image.Point{}, e.cfg.Raster)
}
