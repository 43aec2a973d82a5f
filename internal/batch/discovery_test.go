package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
}

func TestDiscoverImageFiles_Directory(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "b.png")
	jpg := filepath.Join(dir, "a.jpg")
	zbf := filepath.Join(dir, "c.zbf")
	touch(t, png, jpg, zbf, filepath.Join(dir, "notes.txt"), filepath.Join(dir, "sub", "d.png"))

	files, err := discoverImageFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{jpg, png, zbf}, files)

	files, err = discoverImageFiles([]string{dir}, true, nil, nil)
	require.NoError(t, err)
	assert.Len(t, files, 4)
}

func TestDiscoverImageFiles_ExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "scan.png")
	other := filepath.Join(dir, "scan.dat")
	touch(t, png, other)

	files, err := discoverImageFiles([]string{other, png}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{other, png}, files, "named files are taken as given")

	files, err = discoverImageFiles([]string{other, png}, false, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{png}, files)
}

func TestDiscoverImageFiles_IncludeExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	keep1 := filepath.Join(dir, "test1.png")
	keep2 := filepath.Join(dir, "test2.png")
	drop := filepath.Join(dir, "exclude.png")
	touch(t, keep1, keep2, drop, filepath.Join(dir, "test3.jpg"))

	files, err := discoverImageFiles([]string{dir}, false, []string{"*.png"}, []string{"*exclude*"})
	require.NoError(t, err)
	assert.Equal(t, []string{keep1, keep2}, files)
}

func TestDiscoverImageFiles_NonExistent(t *testing.T) {
	files, err := discoverImageFiles([]string{"/nonexistent/directory"}, false, nil, nil)
	require.Error(t, err)
	assert.Nil(t, files)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestMatchesAnyPattern(t *testing.T) {
	patterns := []string{"*.png", "special.*"}
	cases := map[string]bool{
		"test.png":       true,
		"dir/photo.png":  true,
		"special.gif":    true,
		"test.PNG":       false,
		"document.pdf":   false,
		"dir/special.tf": true,
	}
	for name, want := range cases {
		assert.Equal(t, want, matchesAnyPattern(name, patterns), name)
	}
	assert.False(t, matchesAnyPattern("test.png", nil))
}
