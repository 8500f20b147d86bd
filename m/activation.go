package m

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Activator is an elementwise activation. Deactivate takes the
// pre-activation matrix (beta), not the activated output.
type Activator interface {
	Activate(i, j int, sum float64) float64
	Deactivate(beta mat.Matrix) mat.Matrix
	fmt.Stringer
}

var ActivatorLookup = map[string]Activator{
	"sigmoid": Sigmoid{},
	"tanh":    Tanh{},
	"relu":    ReLU{},
}

type Sigmoid struct{}

func (s Sigmoid) Activate(i, j int, sum float64) float64 {
	return 1.0 / (1.0 + math.Exp(-sum))
}

// Deactivate evaluates e^-x / (1+e^-x)^2 directly on the pre-activation.
func (s Sigmoid) Deactivate(beta mat.Matrix) mat.Matrix {
	sigmoidPrime := func(i, j int, v float64) float64 {
		e := math.Exp(-v)
		return e / ((1 + e) * (1 + e))
	}
	return apply(sigmoidPrime, beta)
}

func (s Sigmoid) String() string {
	return "sigmoid"
}

type Tanh struct{}

func (t Tanh) Activate(i, j int, sum float64) float64 {
	return math.Tanh(sum)
}

func (t Tanh) Deactivate(beta mat.Matrix) mat.Matrix {
	tanhPrime := func(i, j int, v float64) float64 {
		return 1.0 - (math.Tanh(v) * math.Tanh(v))
	}

	return apply(tanhPrime, beta)
}

func (t Tanh) String() string {
	return "tanh"
}

// ReLU is leaky with a 0.0001 slope below zero.
type ReLU struct{}

func (r ReLU) Activate(i, j int, sum float64) float64 {
	if sum < 0 {
		return 0.0001 * sum
	}
	return sum
}

func (r ReLU) Deactivate(beta mat.Matrix) mat.Matrix {
	reluPrime := func(i, j int, v float64) float64 {
		if v < 0 {
			return 0.0001
		}
		return 1
	}
	return apply(reluPrime, beta)
}

func (r ReLU) String() string {
	return "relu"
}
