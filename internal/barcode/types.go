package barcode

import (
	"context"
	"image"

	gozxing "github.com/makiuchi-d/gozxing"
)

// Format is a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatCode128
	FormatCode39
	FormatCode93
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
)

// symbologies maps each Format to its gozxing format and display name.
var symbologies = map[Format]struct {
	zxing gozxing.BarcodeFormat
	name  string
}{
	FormatQR:         {gozxing.BarcodeFormat_QR_CODE, "QR_CODE"},
	FormatDataMatrix: {gozxing.BarcodeFormat_DATA_MATRIX, "DATA_MATRIX"},
	FormatAztec:      {gozxing.BarcodeFormat_AZTEC, "AZTEC"},
	FormatCode128:    {gozxing.BarcodeFormat_CODE_128, "CODE_128"},
	FormatCode39:     {gozxing.BarcodeFormat_CODE_39, "CODE_39"},
	FormatCode93:     {gozxing.BarcodeFormat_CODE_93, "CODE_93"},
	FormatEAN8:       {gozxing.BarcodeFormat_EAN_8, "EAN_8"},
	FormatEAN13:      {gozxing.BarcodeFormat_EAN_13, "EAN_13"},
	FormatUPCA:       {gozxing.BarcodeFormat_UPC_A, "UPC_A"},
	FormatUPCE:       {gozxing.BarcodeFormat_UPC_E, "UPC_E"},
	FormatITF:        {gozxing.BarcodeFormat_ITF, "ITF"},
	FormatCodabar:    {gozxing.BarcodeFormat_CODABAR, "CODABAR"},
}

func (f Format) String() string {
	if s, ok := symbologies[f]; ok {
		return s.name
	}
	return "UNKNOWN"
}

// formatOf is the inverse of the symbologies table.
func formatOf(bf gozxing.BarcodeFormat) Format {
	for f, s := range symbologies {
		if s.zxing == bf {
			return f
		}
	}
	return FormatUnknown
}

// LinearFormats are the 1D symbologies printed in barcode regions.
func LinearFormats() []Format {
	return []Format{FormatCode128, FormatCode39, FormatCode93, FormatEAN13, FormatEAN8, FormatUPCA, FormatUPCE, FormatITF, FormatCodabar}
}

// MatrixFormats are the 2D symbologies printed in qrcode regions.
func MatrixFormats() []Format {
	return []Format{FormatQR, FormatDataMatrix, FormatAztec}
}

// Options controls one backend call.
type Options struct {
	// Formats limits the search; empty means every symbology.
	Formats   []Format
	TryHarder bool
}

// Result is one decoded symbol.
type Result struct {
	Type  Format
	Value string
}

// Backend decodes symbols in an already cropped region. Finding nothing is
// an empty slice and a nil error.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// NewBackend returns the gozxing backend.
func NewBackend() Backend { return gozxingBackend{} }
