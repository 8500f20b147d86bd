package convert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		rating float64
		want   []float64
	}{
		{1, []float64{1, 0, 0, 0, 0}},
		{3, []float64{0, 0, 1, 0, 0}},
		{3.6, []float64{0, 0, 0, 1, 0}},
		{5, []float64{0, 0, 0, 0, 1}},
		{0, []float64{1, 0, 0, 0, 0}},
		{9, []float64{0, 0, 0, 0, 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Ratings.Encode(tt.rating), "rating %v", tt.rating)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	for r := MinRating; r <= MaxRating; r++ {
		assert.Equal(t, float64(r), Ratings.Decode(Ratings.Encode(float64(r))))
	}
}

func TestDecodeWeightedMean(t *testing.T) {
	assert.InDelta(t, 3.0, Ratings.Decode([]float64{0.5, 0.5, 0.5, 0.5, 0.5}), 1e-12)
	assert.InDelta(t, 1.5, Ratings.Decode([]float64{0.2, 0.2, 0, 0, 0}), 1e-12)
	assert.Equal(t, float64(MinRating), Ratings.Decode([]float64{0, 0, 0, 0, 0}))
}

func TestDecodeCapped(t *testing.T) {
	// negative mass is dropped before averaging
	got := Ratings.DecodeCapped([]float64{-3, 0, 0, 0, 1})
	assert.Equal(t, 5.0, got)

	got = Ratings.DecodeCapped([]float64{-1, -1, -1, -1, -1})
	assert.Equal(t, float64(MinRating), got)

	for _, v := range [][]float64{
		{0.9, 0.1, 0.2, 0.3, 0.4},
		{0.01, 0.02, 0.99, 0.5, 0.7},
	} {
		r := Ratings.DecodeCapped(v)
		require.False(t, math.IsNaN(r))
		assert.GreaterOrEqual(t, r, float64(MinRating))
		assert.LessOrEqual(t, r, float64(MaxRating))
	}
}
