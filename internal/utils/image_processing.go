package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ToGray converts any image to an 8-bit grayscale raster with bounds starting at (0,0).
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		src := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return out
}

// ToNRGBA returns an NRGBA copy of img with bounds starting at (0,0).
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// FlattenOnWhite composites img over an opaque white background.
// Used after rotations that leave transparent corners.
func FlattenOnWhite(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := imaging.New(b.Dx(), b.Dy(), color.White)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}

// GrayFromRGBA flattens a premultiplied RGBA raster produced by a gray source onto
// white and keeps the red channel as luminance.
func GrayFromRGBA(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		row := src.Pix[(y)*src.Stride:]
		for x := range b.Dx() {
			r := int(row[x*4])
			a := int(row[x*4+3])
			out.Pix[y*out.Stride+x] = uint8(min(255, r+255-a))
		}
	}
	return out
}

// ValidateImage checks that an image is non-nil and non-empty.
func ValidateImage(img image.Image) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return &ImageProcessingError{Operation: "validate", Err: fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())}
	}
	return nil
}
