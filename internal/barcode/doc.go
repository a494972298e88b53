// Package barcode decodes barcodes and QR codes found inside answer-sheet
// regions.
//
// The default backend is pure Go and built on gozxing. Callers that want to
// disable decoding pass a nil Backend to NewDecoder; every decode then fails
// with ErrNoBackend.
package barcode
