package train

import (
	"context"
	"math/rand"

	"github.com/maxwellchess/selfplay/internal/domain"
	"github.com/rs/zerolog/log"
)

type Settings struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Rnd          *rand.Rand
	// OnEpoch is called after every finished epoch. Returning an error stops training.
	OnEpoch func(epoch int, report Report) error
}

// Train runs online backpropagation over samples. Samples are shuffled in place
// every epoch and consumed in contiguous chunks of BatchSize.
// Epochs <= 0 trains until ctx is cancelled or OnEpoch fails.
func Train(
	ctx context.Context,
	samples []domain.Sample,
	model *Model,
	settings Settings,
) (Report, error) {
	log.Info().
		Int("samples", len(samples)).
		Int("epochs", settings.Epochs).
		Msg("Train started")
	defer log.Info().Msg("Train finished")

	var rnd = settings.Rnd
	if rnd == nil {
		rnd = rand.New(rand.NewSource(0))
	}
	var batchSize = settings.BatchSize
	if batchSize <= 0 {
		batchSize = len(samples)
	}

	var report Report
	for epoch := 1; settings.Epochs <= 0 || epoch <= settings.Epochs; epoch++ {
		shuffle(rnd, samples)
		for i := 0; i < len(samples); i += batchSize {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			var j = min(i+batchSize, len(samples))
			var batchError, err = trainBatch(model, samples[i:j], settings.LearningRate)
			if err != nil {
				return report, err
			}
			log.Info().Msgf("Batch %v~%v error: %.6f", i, j, batchError)
			report.Samples += j - i
			report.LastError = batchError
		}
		report.Epochs = epoch
		log.Info().
			Int("epoch", epoch).
			Float64("error", report.LastError).
			Msg("Finished epoch")
		if settings.OnEpoch != nil {
			if err := settings.OnEpoch(epoch, report); err != nil {
				return report, err
			}
		}
		if len(samples) == 0 && settings.Epochs <= 0 {
			break
		}
	}
	return report, nil
}

func shuffle(rnd *rand.Rand, samples []domain.Sample) {
	rnd.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
}

// trainBatch returns the mean absolute error of the batch. An empty batch has zero error.
func trainBatch(model *Model, batch []domain.Sample, learningRate float64) (float64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	var total float64
	for i := range batch {
		var cost, err = model.Train(&batch[i], learningRate)
		if err != nil {
			return 0, err
		}
		total += cost
	}
	return total / float64(len(batch)), nil
}
