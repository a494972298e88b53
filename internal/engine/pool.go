package engine

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/omr/internal/common"
	"github.com/MeKo-Tech/omr/internal/raster"
	"github.com/MeKo-Tech/omr/internal/utils"
)

// registration is the preprocessing and detection outcome of one input.
type registration struct {
	status    ImageStatus
	im        *raster.Image
	fiducials [4]utils.Rect
	err       error
}

type registerJob struct {
	index int
	src   Source
}

// registerAll preprocesses and detects every source on a bounded pool and
// returns the outcomes in input order. Per-image failures are recorded in the
// outcome; only cancellation aborts.
func (e *Engine) registerAll(ctx context.Context, sources []Source, progress Progress) ([]registration, error) {
	out := make([]registration, len(sources))
	workers := min(e.cfg.workers(), len(sources))

	progress.OnStart(len(sources))
	defer progress.OnComplete()

	jobs := make(chan registerJob)
	results := make(chan struct {
		index int
		reg   registration
	}, len(sources))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				reg := e.register(ctx, job.index, job.src)
				results <- struct {
					index int
					reg   registration
				}{job.index, reg}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, src := range sources {
			select {
			case jobs <- registerJob{index: i, src: src}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for r := range results {
		out[r.index] = r.reg
		done++
		if r.reg.err != nil {
			progress.OnError(r.index, r.reg.err)
		}
		progress.OnProgress(done, len(sources))
	}

	if err := ctx.Err(); err != nil {
		for _, r := range out {
			if r.im != nil {
				r.im.Release()
			}
		}
		return nil, err
	}
	return out, nil
}

// register decodes, preprocesses and detects one source.
func (e *Engine) register(ctx context.Context, index int, src Source) registration {
	timer := common.NewNamedTimer("register")
	reg := registration{status: ImageStatus{Index: index, Source: src.Name, Code: StatusUndecodable}}

	img := src.Image
	if img == nil {
		decoded, _, err := utils.DecodeImage(src.Data)
		if err != nil {
			reg.err = err
			reg.status.Error = err.Error()
			return reg
		}
		img = decoded
	}
	if err := ctx.Err(); err != nil {
		reg.err = err
		return reg
	}

	page := &e.scan.Pages[0]
	im, err := raster.Preprocess(img, image.Pt(page.ModelSize.W, page.ModelSize.H), e.cfg.Raster)
	if err != nil {
		reg.err = err
		reg.status.Error = err.Error()
		return reg
	}
	reg.status.W, reg.status.H = im.Width(), im.Height()

	res, err := e.detector.Detect(ctx, im, e.expected)
	if err != nil {
		im.Release()
		reg.err = err
		reg.status.Code = StatusNoFiducials
		reg.status.Error = err.Error()
		if !errors.Is(err, context.Canceled) {
			slog.Warn("Fiducial detection failed", "image", index, "source", src.Name, "error", err)
		}
		return reg
	}

	reg.im = im
	reg.fiducials = res.Fiducials
	// Unmatched until the matcher claims it.
	reg.status.Code = StatusUnmatched
	timer.Done("Image registered", "image", index, "attempts", res.Attempts,
		"repaired", res.Repaired, "rotated_90", im.Rotated90)
	return reg
}
