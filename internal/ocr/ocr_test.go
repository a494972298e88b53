package ocr

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/omr/internal/utils"
)

func TestCleanDigits(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "2024", "2024"},
		{"full width", "２０２４", "2024"},
		{"confusions", "l0O5", "1005"},
		{"noise", " 4-2\n", "42"},
		{"letters only", "xyk", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanDigits(tt.in))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "STU 42", CleanText("  STU\u200b \t42\n"))
	assert.Equal(t, "é", CleanText("é"))
	assert.Equal(t, "ab", CleanText("a\x07b"))
}

func TestUnimplemented(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	r := utils.NewRect(0, 0, 5, 5)

	_, err := Unimplemented{}.ReadDigits(context.Background(), img, r)
	assert.True(t, errors.Is(err, ErrNotRecognized))

	m, err := NewTickReader(DefaultConfig()).ReadTick(context.Background(), img, r)
	assert.True(t, errors.Is(err, ErrNotRecognized))
	assert.Equal(t, MarkNone, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Unimplemented{}.ReadDigits(ctx, img, r)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMarkString(t *testing.T) {
	assert.Equal(t, "v", MarkTick.String())
	assert.Equal(t, "x", MarkCross.String())
	assert.Equal(t, "", MarkNone.String())
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, utils.NewRect(6, 6, 18, 18), cfg.padded(utils.NewRect(10, 10, 10, 10)))
	assert.Error(t, Config{Padding: -2}.Validate())
}
