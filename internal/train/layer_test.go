package train

import (
	"math"
	"math/rand"
	"testing"

	"github.com/maxwellchess/selfplay/internal/ml"
)

func TestLayerForwardIdentity(t *testing.T) {
	var layer = NewLayer(rand.New(rand.NewSource(1)), 3, 2, 2, &ml.IdentityActivation{})
	var inputs = ml.FromSlice(1, 3, []float64{1, 0, 2})
	for bucket := 0; bucket < 2; bucket++ {
		var outputs = layer.Forward(inputs, bucket)
		var w, b = layer.weights[bucket], layer.biases[bucket]
		for j := 0; j < 2; j++ {
			var want = w.At(0, j) + 2*w.At(2, j) + b.At(0, j)
			if math.Abs(outputs.At(0, j)-want) > 1e-12 {
				t.Errorf("bucket %v output %v = %v, want %v", bucket, j, outputs.At(0, j), want)
			}
		}
	}
}

func TestLayerUpdate(t *testing.T) {
	var layer = NewLayer(rand.New(rand.NewSource(2)), 2, 1, 1, &ml.IdentityActivation{})
	var inputs = ml.FromSlice(1, 2, []float64{1, 0})
	var before = layer.weights[0].Clone()
	layer.Forward(inputs, 0)
	var gradients = layer.Gradients(ml.FromSlice(1, 1, []float64{0.5}), 0.1)
	if math.Abs(gradients.At(0, 0)-0.05) > 1e-12 {
		t.Fatalf("gradient %v", gradients.At(0, 0))
	}
	layer.Update(inputs, gradients, 0)
	if math.Abs(layer.weights[0].At(0, 0)-before.At(0, 0)-0.05) > 1e-12 {
		t.Error("active input weight not updated")
	}
	if layer.weights[0].At(1, 0) != before.At(1, 0) {
		t.Error("inactive input weight changed")
	}
}
