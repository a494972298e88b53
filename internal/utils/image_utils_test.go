package utils

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestIsSupportedImage(t *testing.T) {
	cases := []struct {
		path string
		ok   bool
	}{
		{"a.jpg", true},
		{"b.jpeg", true},
		{"c.png", true},
		{"d.bmp", true},
		{"e.tiff", true},
		{"f.gif", false},
		{"g.pdf", false},
	}
	for _, c := range cases {
		if IsSupportedImage(c.path) != c.ok {
			t.Fatalf("IsSupportedImage(%s) expected %v", c.path, c.ok)
		}
	}
}

func TestDecodeImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 20))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, format, err := DecodeImage(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 10, 20), img.Bounds())

	for name, data := range map[string][]byte{"empty": nil, "garbage": []byte("not an image")} {
		_, _, err := DecodeImage(data)
		var ipe *ImageProcessingError
		require.ErrorAs(t, err, &ipe, name)
		assert.Equal(t, "decode", ipe.Operation)
	}
}

func TestBase64RoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := range 8 {
		for x := range 16 {
			img.Set(x, y, color.White)
		}
	}
	enc, err := EncodeBase64JPEG(img, 90)
	require.NoError(t, err)

	dec, err := DecodeBase64Image(enc)
	require.NoError(t, err)
	assert.Equal(t, 16, dec.Bounds().Dx())
	assert.Equal(t, 8, dec.Bounds().Dy())

	dec, err = DecodeBase64Image("data:image/jpeg;base64," + enc)
	require.NoError(t, err)
	assert.Equal(t, 16, dec.Bounds().Dx())

	_, err = DecodeBase64Image("!!not base64!!")
	require.Error(t, err)
}

func TestRectUnmarshalAcceptsFloats(t *testing.T) {
	var r Rect
	require.NoError(t, json.Unmarshal([]byte(`{"x": 10, "y": 20.9, "w": 5.5, "h": 7}`), &r))
	assert.Equal(t, Rect{X: 10, Y: 20, W: 5, H: 7}, r)

	require.NoError(t, json.Unmarshal([]byte(`{"x": -3.7, "y": 0, "w": 1, "h": 1}`), &r))
	assert.Equal(t, -3, r.X)

	require.Error(t, json.Unmarshal([]byte(`{"x": "a", "y": 0, "w": 1, "h": 1}`), &r))

	var y Rect
	require.NoError(t, yaml.Unmarshal([]byte("x: 1.9\ny: 2\nw: 3\nh: 4.2\n"), &y))
	assert.Equal(t, Rect{X: 1, Y: 2, W: 3, H: 4}, y)
}

func TestRectHelpers(t *testing.T) {
	r := NewRect(10, 20, 30, 40)
	assert.Equal(t, Point{X: 10, Y: 20}, r.Origin())
	assert.Equal(t, Point{X: 40, Y: 60}, r.Far())
	assert.Equal(t, 1200, r.Area())
	assert.Equal(t, 0, NewRect(0, 0, -1, 5).Area())
	assert.Equal(t, NewRect(12, 17, 30, 40), r.Translate(2, -3))
	assert.Equal(t, image.Rect(10, 20, 40, 60), r.ToImageRect())
}

func TestCropPadWhite(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	// all black
	out := CropPadWhite(img, NewRect(8, 8, 4, 4))
	require.Equal(t, 4, out.Bounds().Dx())
	require.Equal(t, 4, out.Bounds().Dy())
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 0).R, "inside pixel keeps source value")
	assert.Equal(t, uint8(255), out.NRGBAAt(3, 3).R, "outside pixel is white")

	empty := CropPadWhite(img, NewRect(50, 50, 3, 2))
	assert.Equal(t, uint8(255), empty.NRGBAAt(1, 1).R)
}

func TestDrawRectAndLine(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	DrawRect(img, image.Rect(2, 2, 10, 8), color.RGBA{0, 255, 0, 255}, 1)
	if img.RGBAAt(2, 2) == (color.RGBA{}) {
		t.Fatalf("expected top-left pixel colored")
	}
	DrawLine(img, Point{X: 12, Y: 2}, Point{X: 18, Y: 2}, color.RGBA{0, 0, 255, 255}, 1)
	if img.RGBAAt(15, 2) == (color.RGBA{}) {
		t.Fatalf("expected line pixel colored")
	}
	FillRect(img, image.Rect(0, 0, 1, 1), color.RGBA{R: 255, A: 255}, 1)
	assert.Equal(t, uint8(255), img.RGBAAt(0, 0).R)
}
