package m

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scaled encodes a rating as a single value in [0, 1].
type scaled struct{}

func (scaled) Encode(r float64) []float64 { return []float64{r / 5} }

func TestGetLines(t *testing.T) {
	in := `# user, item features then rating
0.1,0.2,0.3,5

1,2,3, 2.5
`
	lines, err := GetLines(strings.NewReader(in), 3, scaled{})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, lines[0].Inputs)
	assert.Equal(t, []float64{1}, lines[0].Targets)
	assert.Equal(t, []float64{1, 2, 3}, lines[1].Inputs)
	assert.Equal(t, []float64{0.5}, lines[1].Targets)
}

func TestGetLinesInvalid(t *testing.T) {
	lines, err := GetLines(strings.NewReader("1,2,3\n4,5,6\n"), 2, scaled{})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	_, err = GetLines(strings.NewReader("1,2,3\n1,2\n"), 3, scaled{})
	var invalid errInvalidLine
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 1, invalid.lineNum)
	assert.Equal(t, "at line 1, expected 4 values, got 3", err.Error())

	_, err = GetLines(strings.NewReader("1,x,3\n"), 2, scaled{})
	require.ErrorContains(t, err, "line 1: parsing input")

	_, err = GetLines(strings.NewReader("1,2,?\n"), 2, scaled{})
	require.ErrorContains(t, err, "line 1: parsing rating")
}

func TestSplit(t *testing.T) {
	lines := Lines{{}, {}, {}}
	a, b := Split(lines, 2)
	assert.Len(t, a, 2)
	assert.Len(t, b, 1)

	a, b = Split(lines, 10)
	assert.Len(t, a, 3)
	assert.Empty(t, b)

	a, b = Split(lines, -1)
	assert.Empty(t, a)
	assert.Len(t, b, 3)
}

func TestStandardize(t *testing.T) {
	lines := Lines{
		{Inputs: []float64{1, 10, 3}, Targets: []float64{0.2}},
		{Inputs: []float64{3, 20, 3}, Targets: []float64{0.4}},
		{Inputs: []float64{5, 60, 3}, Targets: []float64{0.6}},
		{Inputs: []float64{7, 30, 3}, Targets: []float64{0.8}},
	}

	mean := CalculateMean(lines)
	std := CalculateStdDev(lines)
	assert.InDeltaSlice(t, []float64{4, 30, 3}, mean, 1e-12)
	// Population deviation; the constant third column reports 1.
	assert.InDeltaSlice(t, []float64{math.Sqrt(5), math.Sqrt(350), 1}, std, 1e-12)

	normalized := NormalizeLines(lines, std, mean)
	require.Len(t, normalized, len(lines))
	assert.InDeltaSlice(t, []float64{-3 / math.Sqrt(5), -20 / math.Sqrt(350), 0}, normalized[0].Inputs, 1e-12)
	assert.Equal(t, lines[3].Targets, normalized[3].Targets)
	assert.Equal(t, []float64{1, 10, 3}, lines[0].Inputs, "source lines untouched")

	after := CalculateMean(normalized)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, after, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 1, 1}, CalculateStdDev(normalized), 1e-12)

	// Stats from one set apply unchanged to another.
	held := NormalizeLines(Lines{{Inputs: []float64{4, 30, 9}}}, std, mean)
	assert.InDeltaSlice(t, []float64{0, 0, 6}, held[0].Inputs, 1e-12)
}

func TestStandardizeEmpty(t *testing.T) {
	assert.Nil(t, CalculateMean(nil))
	assert.Nil(t, CalculateStdDev(Lines{}))
	assert.Nil(t, NormalizeLines(nil, nil, nil))
}
