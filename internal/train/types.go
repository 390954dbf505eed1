package train

// Topology describes the network shape: a shared hidden layer and
// Buckets interchangeable output layers.
type Topology struct {
	Inputs  int
	Hidden  int
	Outputs int
	Buckets int
}

func DefaultTopology() Topology {
	return Topology{
		Inputs:  FeatureSize,
		Hidden:  128,
		Outputs: 1,
		Buckets: 8,
	}
}

// Weights is a flat copy of the network parameters.
// Output layer weights and biases are concatenated bucket by bucket.
type Weights struct {
	HiddenWeights []float64
	HiddenBiases  []float64
	OutputWeights []float64
	OutputBiases  []float64
}

// Report summarizes a Train call.
type Report struct {
	Epochs    int
	Samples   int
	LastError float64
}
