package train

import (
	"math/rand"

	"github.com/maxwellchess/selfplay/internal/domain"
	"github.com/maxwellchess/selfplay/internal/ml"
	"github.com/pkg/errors"
)

// Model is a 768 -> hidden (clipped ReLU) -> bucketed output (sigmoid) network.
// It is not safe for concurrent use.
type Model struct {
	topology Topology
	hidden   *Layer
	output   *Layer
	inputs   *ml.Matrix
	cost     ml.IModelCost
}

func NewModel(rnd *rand.Rand, topology Topology) *Model {
	return &Model{
		topology: topology,
		hidden: NewLayer(rnd,
			topology.Inputs, topology.Hidden, 1,
			&ml.ClippedReLuActivation{}),
		output: NewLayer(rnd,
			topology.Hidden, topology.Outputs, topology.Buckets,
			&ml.SigmoidActivation{}),
		inputs: ml.New(1, topology.Inputs),
		cost:   &ml.AbsCost{},
	}
}

func (m *Model) Topology() Topology {
	return m.topology
}

// setup loads the position into the input vector and returns its bucket.
func (m *Model) setup(fen string) (int, error) {
	var entry, err = ComputeFeatures(fen)
	if err != nil {
		return 0, err
	}
	m.inputs.FillZeros()
	for _, index := range entry.Features {
		if int(index) >= m.topology.Inputs {
			return 0, errors.Errorf("feature %d out of input size %d", index, m.topology.Inputs)
		}
		m.inputs.Set(0, int(index), 1)
	}
	return Bucket(entry.PieceCount, m.topology.Buckets), nil
}

func (m *Model) forward(bucket int) *ml.Matrix {
	var hidden = m.hidden.Forward(m.inputs, 0)
	return m.output.Forward(hidden, bucket)
}

// Predict returns the network output for the position.
func (m *Model) Predict(fen string) (float64, error) {
	var bucket, err = m.setup(fen)
	if err != nil {
		return 0, err
	}
	return m.forward(bucket).At(0, 0), nil
}

// Train runs one forward and backward pass on sample and applies the update
// immediately. It returns the absolute error before the update.
func (m *Model) Train(sample *domain.Sample, learningRate float64) (float64, error) {
	var bucket, err = m.setup(sample.FEN)
	if err != nil {
		return 0, errors.WithMessagef(err, "sample %q", sample.FEN)
	}
	var outputs = m.forward(bucket)

	var outputErrors = ml.New(1, m.topology.Outputs)
	var cost float64
	for j := 0; j < m.topology.Outputs; j++ {
		var predicted = outputs.At(0, j)
		outputErrors.Set(0, j, sample.Label-predicted)
		cost += m.cost.Cost(predicted, sample.Label)
	}

	var outputGradients = m.output.Gradients(outputErrors, learningRate)
	m.output.Update(m.hidden.outputs, outputGradients, bucket)

	// The hidden error is taken through the freshly updated output weights.
	var hiddenErrors = outputGradients.Dot(m.output.weights[bucket].Transpose())
	var hiddenGradients = m.hidden.Gradients(hiddenErrors, learningRate)
	m.hidden.Update(m.inputs, hiddenGradients, 0)

	return cost / float64(m.topology.Outputs), nil
}

// Weights returns a copy of all parameters in export order.
func (m *Model) Weights() Weights {
	return Weights{
		HiddenWeights: m.hidden.flatWeights(),
		HiddenBiases:  m.hidden.flatBiases(),
		OutputWeights: m.output.flatWeights(),
		OutputBiases:  m.output.flatBiases(),
	}
}
