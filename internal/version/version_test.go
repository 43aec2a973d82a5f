package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngine(t *testing.T) {
	assert.Equal(t, "0.23", Engine())
}

func TestString(t *testing.T) {
	v, c, d := Info()
	s := String()
	assert.Contains(t, s, v)
	assert.Contains(t, s, c)
	assert.Contains(t, s, d)
	assert.Contains(t, s, "engine 0.23")
}
