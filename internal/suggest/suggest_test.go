package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClosestPicksNearest(t *testing.T) {
	best, distance := Closest("msvcc", []string{"msvc", "nvcc", "local-build"})
	assert.Equal(t, "msvc", best)
	assert.Equal(t, 1, distance)
}

func TestClosestEmptyCandidates(t *testing.T) {
	best, distance := Closest("x", nil)
	assert.Equal(t, "", best)
	assert.Equal(t, -1, distance)
}
