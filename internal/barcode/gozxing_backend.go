package barcode

import (
	"context"
	"fmt"
	"image"
	"slices"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

type gozxingBackend struct{}

// reader pairs a gozxing reader constructor with the formats it handles.
type reader struct {
	formats []Format
	build   func(hints map[gozxing.DecodeHintType]any) gozxing.Reader
}

// readers are tried in order; 2D symbols come first since a qrcode region
// is the common case on answer sheets.
var readers = []reader{
	{[]Format{FormatQR}, func(map[gozxing.DecodeHintType]any) gozxing.Reader { return qrcode.NewQRCodeReader() }},
	{[]Format{FormatDataMatrix}, func(map[gozxing.DecodeHintType]any) gozxing.Reader { return datamatrix.NewDataMatrixReader() }},
	{[]Format{FormatAztec}, func(map[gozxing.DecodeHintType]any) gozxing.Reader { return aztec.NewAztecReader() }},
	{[]Format{FormatEAN13, FormatEAN8, FormatUPCA, FormatUPCE}, func(h map[gozxing.DecodeHintType]any) gozxing.Reader {
		return oned.NewMultiFormatUPCEANReader(h)
	}},
	{[]Format{FormatCode128}, func(map[gozxing.DecodeHintType]any) gozxing.Reader { return oned.NewCode128Reader() }},
	{[]Format{FormatCode39}, func(map[gozxing.DecodeHintType]any) gozxing.Reader { return oned.NewCode39Reader() }},
	{[]Format{FormatCode93}, func(map[gozxing.DecodeHintType]any) gozxing.Reader { return oned.NewCode93Reader() }},
	{[]Format{FormatITF}, func(map[gozxing.DecodeHintType]any) gozxing.Reader { return oned.NewITFReader() }},
	{[]Format{FormatCodabar}, func(map[gozxing.DecodeHintType]any) gozxing.Reader { return oned.NewCodaBarReader() }},
}

func (gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	hints := map[gozxing.DecodeHintType]any{}
	if len(opts.Formats) > 0 {
		var formats []gozxing.BarcodeFormat
		for _, f := range opts.Formats {
			if s, ok := symbologies[f]; ok {
				formats = append(formats, s.zxing)
			}
		}
		hints[gozxing.DecodeHintType_POSSIBLE_FORMATS] = formats
	}
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(gozxing.NewLuminanceSourceFromImage(img)))
	if err != nil {
		return nil, fmt.Errorf("barcode: binarize: %w", err)
	}

	for _, rd := range readers {
		if !wanted(rd.formats, opts.Formats) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// A decode error means no symbol of this kind.
		r, err := rd.build(hints).Decode(bitmap, hints)
		if err != nil || r == nil {
			continue
		}
		return []Result{{Type: formatOf(r.GetBarcodeFormat()), Value: r.GetText()}}, nil
	}
	return nil, nil
}

func wanted(have, want []Format) bool {
	if len(want) == 0 {
		return true
	}
	for _, f := range have {
		if slices.Contains(want, f) {
			return true
		}
	}
	return false
}
