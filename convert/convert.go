// Package convert maps ratings to the network's target vectors and maps
// network outputs back to ratings.
package convert

import "math"

const (
	MinRating = 1
	MaxRating = 5
	// Width is the length of an encoded rating vector.
	Width = MaxRating - MinRating + 1
)

// Codec implements the rating encoding used by the network.
type Codec struct{}

// Ratings is the codec used by default.
var Ratings = Codec{}

// Encode returns a one-hot vector for rating, rounded to the nearest whole
// rating and clamped to [MinRating, MaxRating].
func (Codec) Encode(rating float64) []float64 {
	v := make([]float64, Width)
	r := int(math.Round(clamp(rating)))
	v[r-MinRating] = 1
	return v
}

// Decode returns the weighted mean rating of v. A vector with no positive
// mass decodes to MinRating.
func (Codec) Decode(v []float64) float64 {
	var sum, weighted float64
	for i, x := range v {
		sum += x
		weighted += float64(i+MinRating) * x
	}
	if sum <= 0 {
		return MinRating
	}
	return weighted / sum
}

// DecodeCapped decodes a raw network output. Negative components carry no
// weight and the result is clamped to [MinRating, MaxRating].
func (c Codec) DecodeCapped(v []float64) float64 {
	pos := make([]float64, len(v))
	for i, x := range v {
		if x > 0 {
			pos[i] = x
		}
	}
	return clamp(c.Decode(pos))
}

func clamp(r float64) float64 {
	if math.IsNaN(r) || r < MinRating {
		return MinRating
	}
	if r > MaxRating {
		return MaxRating
	}
	return r
}
