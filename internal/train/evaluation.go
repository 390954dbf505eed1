package train

import (
	"github.com/maxwellchess/selfplay/internal/domain"
	"github.com/maxwellchess/selfplay/internal/ml"
	"github.com/pkg/errors"
)

// Evaluate returns the mean absolute error of the model on samples without updating it.
func Evaluate(model *Model, samples []domain.Sample) (float64, error) {
	return EvaluateCost(model, samples, &ml.AbsCost{})
}

func EvaluateCost(model *Model, samples []domain.Sample, cost ml.IModelCost) (float64, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	var total float64
	for i := range samples {
		var predicted, err = model.Predict(samples[i].FEN)
		if err != nil {
			return 0, errors.WithMessagef(err, "sample %v", i)
		}
		total += cost.Cost(predicted, samples[i].Label)
	}
	return total / float64(len(samples)), nil
}
