package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.png"))
	touch(t, filepath.Join(dir, "a.JPG"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "scan.pdf"))
	touch(t, filepath.Join(dir, "sub", "c.tif"))

	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{"flat", Config{}, []string{"a.JPG", "b.png", "scan.pdf"}},
		{"recursive", Config{Recursive: true}, []string{"a.JPG", "b.png", "scan.pdf", filepath.Join("sub", "c.tif")}},
		{"include", Config{IncludePatterns: []string{"*.png"}}, []string{"b.png"}},
		{"exclude", Config{ExcludePatterns: []string{"*.pdf"}}, []string{"a.JPG", "b.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := discoverFiles([]string{dir}, tt.cfg)
			require.NoError(t, err)
			var rel []string
			for _, f := range files {
				r, err := filepath.Rel(dir, f)
				require.NoError(t, err)
				rel = append(rel, r)
			}
			assert.Equal(t, tt.want, rel)
		})
	}
}

func TestDiscoverExplicitFilesKeepOrder(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "z.png"), filepath.Join(dir, "a.png")
	touch(t, a)
	touch(t, b)

	files, err := discoverFiles([]string{a, b}, Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	_, err = discoverFiles([]string{filepath.Join(dir, "missing.png")}, Config{})
	assert.Error(t, err)
}

func TestShouldIncludeFile(t *testing.T) {
	assert.True(t, shouldIncludeFile("x/a.png", nil, nil))
	assert.False(t, shouldIncludeFile("x/a.png", nil, []string{"a.*"}))
	assert.True(t, shouldIncludeFile("x/a.png", []string{"*.png"}, nil))
	assert.False(t, shouldIncludeFile("x/a.png", []string{"*.jpg"}, nil))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Format: "xml"}.Validate())
	assert.Error(t, Config{Format: "json", IncludePatterns: []string{""}}.Validate())
}
