package train

import (
	"math/rand"

	"github.com/maxwellchess/selfplay/internal/ml"
)

// Layer is a fully connected layer with one weight/bias pair per bucket.
type Layer struct {
	activationFn ml.IActivationFn
	weights      []*ml.Matrix
	biases       []*ml.Matrix
	outputs      *ml.Matrix
}

func NewLayer(
	rnd *rand.Rand,
	inputSize, outputSize, buckets int,
	activationFn ml.IActivationFn,
) *Layer {
	var layer = &Layer{
		activationFn: activationFn,
		weights:      make([]*ml.Matrix, buckets),
		biases:       make([]*ml.Matrix, buckets),
		outputs:      ml.New(1, outputSize),
	}
	for i := 0; i < buckets; i++ {
		layer.weights[i] = ml.Random(rnd, inputSize, outputSize)
		layer.biases[i] = ml.Random(rnd, 1, outputSize)
	}
	return layer
}

func (layer *Layer) Forward(inputs *ml.Matrix, bucket int) *ml.Matrix {
	layer.outputs = inputs.Dot(layer.weights[bucket]).
		AddInPlace(layer.biases[bucket]).
		Map(layer.activationFn.Sigma)
	return layer.outputs
}

// Gradients returns activation'(outputs) * errors * learningRate.
func (layer *Layer) Gradients(errors *ml.Matrix, learningRate float64) *ml.Matrix {
	return layer.outputs.Clone().
		Map(layer.activationFn.SigmaPrime).
		Multiply(errors).
		Scale(learningRate)
}

// Update applies gradients computed for inputs to the bucket parameters.
func (layer *Layer) Update(inputs, gradients *ml.Matrix, bucket int) {
	layer.biases[bucket].AddInPlace(gradients)
	layer.weights[bucket].AddInPlace(inputs.Transpose().Dot(gradients))
}

func (layer *Layer) flatWeights() []float64 {
	var result []float64
	for _, w := range layer.weights {
		result = append(result, w.Flatten()...)
	}
	return result
}

func (layer *Layer) flatBiases() []float64 {
	var result []float64
	for _, b := range layer.biases {
		result = append(result, b.Flatten()...)
	}
	return result
}
