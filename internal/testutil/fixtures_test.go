package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSampleFixtures(t *testing.T) {
	dir := t.TempDir()
	fixtures := WriteSampleFixtures(t, dir)
	require.Len(t, fixtures, len(Samples()))

	for _, f := range fixtures {
		ValidateFixture(t, dir, f)
		assert.True(t, FileExists(filepath.Join(dir, f.Name+".json")))
		require.Len(t, f.Expected, 1)
	}
}

func TestSaveAndLoadFixture(t *testing.T) {
	dir := t.TempDir()
	fixture := TestFixture{
		Name:        "test_fixture",
		Description: "Test fixture for unit testing",
		InputFile:   "input.png",
		Expected:    []ExpectedSymbol{{Type: "EAN-13", Data: "4006381333931"}},
	}
	SaveFixture(t, dir, fixture)

	loaded := LoadFixture(t, dir, "test_fixture")
	assert.Equal(t, fixture, loaded)
}
