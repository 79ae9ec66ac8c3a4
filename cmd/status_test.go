package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHierarchySummary(t *testing.T) {
	s := testStore(t)
	assert.Equal(t, "1 continents, 1 superregions, 1 regions, 1 areas, 1 climates, 2 terrains", hierarchySummary(s))
}
