package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNames = map[int]string{
	1:  "Stockholm",
	2:  "Östergötland",
	3:  "Uppland",
	45: "Lübeck",
}

func TestResolveProvinceByID(t *testing.T) {
	id, ok, _ := resolveProvince("45", testNames)
	assert.True(t, ok)
	assert.Equal(t, 45, id)

	id, ok, _ = resolveProvince("999", testNames)
	assert.False(t, ok)
	assert.Equal(t, 999, id)
}

func TestResolveProvinceByName(t *testing.T) {
	id, ok, _ := resolveProvince("stockholm", testNames)
	require.True(t, ok)
	assert.Equal(t, 1, id)
}

func TestResolveProvinceSuggestions(t *testing.T) {
	_, ok, suggestions := resolveProvince("Stokholm", testNames)
	assert.False(t, ok)
	assert.Equal(t, []string{"Stockholm (#1)"}, suggestions)

	_, ok, suggestions = resolveProvince("Constantinople", testNames)
	assert.False(t, ok)
	assert.Empty(t, suggestions)
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1,2", " 3 ", ""})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids)

	_, err = parseIDs([]string{"1,x"})
	assert.Error(t, err)
}

func TestPredictionInput(t *testing.T) {
	base := map[string]any{"aspect_ratio": "16:9", "prompt": "old"}
	in := predictionInput(base, "prompt", "a misty fjord")
	assert.Equal(t, "a misty fjord", in["prompt"])
	assert.Equal(t, "16:9", in["aspect_ratio"])
	assert.Equal(t, "old", base["prompt"])
}
