//go:build ocr_tesseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// tesseractDigits reads digit boxes with a single Tesseract client. The
// client is not safe for concurrent use, so calls are serialized.
type tesseractDigits struct {
	cfg    Config
	mu     sync.Mutex
	client *gosseract.Client
}

func newDigitReader(cfg Config) (DigitReader, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(cfg.Language); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set OCR language: %w", err)
	}
	if cfg.Whitelist != "" {
		if err := client.SetWhitelist(cfg.Whitelist); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set OCR whitelist: %w", err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set OCR page segmentation: %w", err)
	}
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	return &tesseractDigits{cfg: cfg, client: client}, nil
}

func (t *tesseractDigits) ReadDigits(ctx context.Context, img image.Image, r utils.Rect) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.W <= 0 || r.H <= 0 {
		return "", ErrNotRecognized
	}
	crop := utils.CropPadWhite(img, t.cfg.padded(r))
	var buf bytes.Buffer
	if err := png.Encode(&buf, crop); err != nil {
		return "", fmt.Errorf("encode digit region: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("load digit region: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	digits := CleanDigits(text)
	if digits == "" {
		return "", ErrNotRecognized
	}
	return digits, nil
}

// Close releases the Tesseract client.
func (t *tesseractDigits) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
