package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))

	validated, err := GetProjectRootValidated()
	require.NoError(t, err)
	assert.Equal(t, root, validated)
}

func TestValidateProjectRoot(t *testing.T) {
	assert.Error(t, ValidateProjectRoot(t.TempDir()))
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, DirExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
	assert.False(t, DirExists(filepath.Join(dir, "missing")))
}

func TestSheetFixture(t *testing.T) {
	f := NewSheetFixture(2)
	f.Mark(1, "q2", 0, 3)

	assert.Equal(t, []int{0, 0, 0, 0}, f.Expected(0, "q2"))
	assert.Equal(t, []int{1, 0, 0, 1}, f.Expected(1, "q2"))
	assert.Nil(t, f.Expected(1, "missing"))

	photo := f.Photo(1)
	assert.Equal(t, SheetW+2*PhotoOffset.X, photo.Bounds().Dx())
	assert.Equal(t, SheetH+2*PhotoOffset.Y, photo.Bounds().Dy())

	dir := t.TempDir()
	require.NoError(t, f.WriteTemplate(filepath.Join(dir, "exam.json")))
	require.NoError(t, f.WritePhoto(filepath.Join(dir, "page.png"), 0))
	assert.True(t, FileExists(filepath.Join(dir, "exam.json")))
	assert.True(t, FileExists(filepath.Join(dir, "page.png")))
}

func TestTextPage(t *testing.T) {
	img := TextPage(200, 120, "hello")
	assert.Equal(t, 200, img.Bounds().Dx())

	// The first line is drawn near (40, 60); the corner stays white.
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 0).R)
	dark := false
	for y := 48; y < 64 && !dark; y++ {
		for x := 40; x < 80; x++ {
			if img.NRGBAAt(x, y).R < 128 {
				dark = true
				break
			}
		}
	}
	assert.True(t, dark)

	path := filepath.Join(t.TempDir(), "text.png")
	SaveImage(t, img, path)
	assert.True(t, FileExists(path))
}
