package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// ErrNoBackend is returned when decoding is disabled.
var ErrNoBackend = errors.New("barcode: no decoder backend configured")

// Config controls region decoding.
type Config struct {
	Enabled   bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	TryHarder bool `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	// Padding widens the crop on every side so the quiet zone survives a
	// tight template rectangle.
	Padding int `mapstructure:"padding" yaml:"padding" json:"padding"`
}

// DefaultConfig returns the decoding defaults.
func DefaultConfig() Config {
	return Config{Enabled: true, TryHarder: true, Padding: 10}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Padding < 0 {
		return fmt.Errorf("padding must be >= 0, got %d", c.Padding)
	}
	return nil
}

// Decoder reads symbols out of photograph-space regions.
type Decoder struct {
	cfg     Config
	backend Backend
}

// NewDecoder wraps backend. A nil backend or a disabled config yields a
// decoder whose every call fails with ErrNoBackend.
func NewDecoder(cfg Config, backend Backend) *Decoder {
	if !cfg.Enabled {
		backend = nil
	}
	return &Decoder{cfg: cfg, backend: backend}
}

// DecodeRegion crops r (padded with white where it leaves the image) and
// decodes the first symbol of one of formats. ok is false when no symbol was
// found, which is not an error.
func (d *Decoder) DecodeRegion(ctx context.Context, img image.Image, r utils.Rect, formats []Format) (value string, ok bool, err error) {
	if d == nil || d.backend == nil {
		return "", false, ErrNoBackend
	}
	if r.W <= 0 || r.H <= 0 {
		return "", false, nil
	}
	p := d.cfg.Padding
	crop := utils.CropPadWhite(img, utils.NewRect(r.X-p, r.Y-p, r.W+2*p, r.H+2*p))

	results, err := d.backend.Decode(ctx, crop, Options{Formats: formats, TryHarder: d.cfg.TryHarder})
	if err != nil {
		return "", false, fmt.Errorf("decode region %v: %w", r, err)
	}
	for _, res := range results {
		if v := strings.TrimSpace(res.Value); v != "" {
			slog.Debug("barcode decoded", "format", res.Type.String(), "rect", r, "value", v)
			return v, true, nil
		}
	}
	return "", false, nil
}
