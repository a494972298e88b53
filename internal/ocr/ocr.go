// Package ocr holds the handwritten-digit and tick-mark recognizers that
// answer number and vx regions.
//
// The default build ships no recognizer: both readers report
// ErrNotRecognized, which callers treat as an empty answer. Build with
// -tags=ocr_tesseract to read digit boxes with Tesseract.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// ErrNotRecognized means the region held nothing the recognizer could read.
// It is a normal outcome, not a failure.
var ErrNotRecognized = errors.New("ocr: region not recognized")

// Mark is the gesture drawn into a tick region.
type Mark int

const (
	MarkNone Mark = iota
	MarkTick
	MarkCross
)

func (m Mark) String() string {
	switch m {
	case MarkTick:
		return "v"
	case MarkCross:
		return "x"
	default:
		return ""
	}
}

// DigitReader reads a handwritten number out of a photograph-space region.
type DigitReader interface {
	ReadDigits(ctx context.Context, img image.Image, r utils.Rect) (string, error)
}

// TickReader classifies the gesture drawn into a photograph-space region.
type TickReader interface {
	ReadTick(ctx context.Context, img image.Image, r utils.Rect) (Mark, error)
}

// Config controls the recognizers.
type Config struct {
	// Language is the Tesseract language used for digit boxes.
	Language string `mapstructure:"language" yaml:"language" json:"language"`
	// Whitelist restricts the characters Tesseract may emit.
	Whitelist string `mapstructure:"whitelist" yaml:"whitelist" json:"whitelist"`
	Padding   int    `mapstructure:"padding" yaml:"padding" json:"padding"`
}

// DefaultConfig returns the recognizer defaults.
func DefaultConfig() Config {
	return Config{Language: "eng", Whitelist: "0123456789", Padding: 4}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Padding < 0 {
		return fmt.Errorf("padding must be >= 0, got %d", c.Padding)
	}
	return nil
}

// Unimplemented answers every region with ErrNotRecognized.
type Unimplemented struct{}

// ReadDigits implements DigitReader.
func (Unimplemented) ReadDigits(ctx context.Context, _ image.Image, _ utils.Rect) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", ErrNotRecognized
}

// ReadTick implements TickReader.
func (Unimplemented) ReadTick(ctx context.Context, _ image.Image, _ utils.Rect) (Mark, error) {
	if err := ctx.Err(); err != nil {
		return MarkNone, err
	}
	return MarkNone, ErrNotRecognized
}

// NewDigitReader returns the digit reader linked into this build.
func NewDigitReader(cfg Config) (DigitReader, error) { return newDigitReader(cfg) }

// NewTickReader returns the tick reader linked into this build.
func NewTickReader(Config) TickReader { return Unimplemented{} }

// padded returns r grown by cfg.Padding on every side.
func (c Config) padded(r utils.Rect) utils.Rect {
	p := c.Padding
	return utils.NewRect(r.X-p, r.Y-p, r.W+2*p, r.H+2*p)
}
