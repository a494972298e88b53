package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// SupportedImageExtensions lists supported file extensions for loading.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// DecodeImage decodes encoded image bytes in any registered format.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &ImageProcessingError{Operation: "decode", Err: errors.New("empty image data")}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &ImageProcessingError{Operation: "decode", Err: err}
	}
	return img, format, nil
}

// DecodeBase64Image decodes a base64 image, tolerating a data-URL prefix.
func DecodeBase64Image(s string) (image.Image, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 {
		s = s[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, &ImageProcessingError{Operation: "base64", Err: err}
	}
	img, _, err := DecodeImage(data)
	return img, err
}

// EncodeBase64JPEG encodes img as a base64 JPEG string.
func EncodeBase64JPEG(img image.Image, quality int) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", &ImageProcessingError{Operation: "encode", Err: err}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
