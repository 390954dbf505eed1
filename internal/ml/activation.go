package ml

import "math"

// IActivationFn pairs an activation with its derivative.
// SigmaPrime is evaluated at the activated value, not at the layer input.
type IActivationFn interface {
	Sigma(x float64) float64
	SigmaPrime(y float64) float64
}

type IdentityActivation struct{}

func (*IdentityActivation) Sigma(x float64) float64      { return Linear(x) }
func (*IdentityActivation) SigmaPrime(y float64) float64 { return 1 }

type ClippedReLuActivation struct{}

func (*ClippedReLuActivation) Sigma(x float64) float64      { return ClippedReLU(x) }
func (*ClippedReLuActivation) SigmaPrime(y float64) float64 { return ClippedReLUPrime(y) }

// SigmoidActivation maps to (-1, 1).
type SigmoidActivation struct{}

func (*SigmoidActivation) Sigma(x float64) float64      { return Sigmoid(x) }
func (*SigmoidActivation) SigmaPrime(y float64) float64 { return SigmoidPrime(y) }

func Linear(x float64) float64 {
	return x
}

func ClippedReLU(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func ClippedReLUPrime(x float64) float64 {
	if 0 < x && x < 1 {
		return 1
	}
	return 0
}

func Sigmoid(x float64) float64 {
	return 2/(1+math.Exp(-x)) - 1
}

func SigmoidPrime(x float64) float64 {
	var e = math.Exp(-x)
	return 2 * e / ((1 + e) * (1 + e))
}
