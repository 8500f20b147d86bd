package m

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func dot(m, n mat.Matrix) *mat.Dense {
	r, _ := m.Dims()
	_, c := n.Dims()
	o := mat.NewDense(r, c, nil)
	o.Product(m, n)
	return o
}

func apply(fn func(i, j int, v float64) float64, m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Apply(fn, m)
	return o
}

func scale(s float64, m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Scale(s, m)
	return o
}

// multiply is the elementwise (Hadamard) product.
func multiply(m, n mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.MulElem(m, n)
	return o
}

func subtract(m, n mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	o := mat.NewDense(r, c, nil)
	o.Sub(m, n)
	return o
}

// transpose materialises m.T() so later products never alias the source.
func transpose(m mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(m.T())
}

// rowVector wraps a copy of v as a 1×len(v) matrix.
func rowVector(v []float64) *mat.Dense {
	return mat.NewDense(1, len(v), append([]float64(nil), v...))
}

func copyDense(d *mat.Dense) *mat.Dense {
	if d == nil {
		return nil
	}
	return mat.DenseCopyOf(d)
}

// randomArray draws size independent samples from the standard normal
// distribution using src.
func randomArray(size int, src rand.Source) []float64 {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: 1,
		Src:   src,
	}

	data := make([]float64, size)
	for i := 0; i < size; i++ {
		data[i] = dist.Rand()
	}
	return data
}

// rootMeanSquare returns sqrt(Σr_i^2 / n).
func rootMeanSquare(residuals []float64) float64 {
	return floats.Norm(residuals, 2) / math.Sqrt(float64(len(residuals)))
}

// Shuffle permutes lines in place, uniformly at random.
func Shuffle(lines Lines, rng *rand.Rand) {
	rng.Shuffle(len(lines), func(i, j int) {
		lines[i], lines[j] = lines[j], lines[i]
	})
}
