package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/maxwellchess/selfplay/internal/archive"
	"github.com/maxwellchess/selfplay/internal/config"
	"github.com/maxwellchess/selfplay/internal/dataset"
	"github.com/maxwellchess/selfplay/internal/domain"
	"github.com/maxwellchess/selfplay/internal/export"
	"github.com/maxwellchess/selfplay/internal/ml"
	"github.com/maxwellchess/selfplay/internal/train"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	resume        bool
	netFolderPath string
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
		With().Timestamp().Caller().Logger()

	flag.BoolVar(&resume, "resume", false, "Continue from the checkpoint file")
	flag.StringVar(&netFolderPath, "net", "", "Directory for per-epoch checkpoints")
	var c, err = config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("bad config")
	}
	log.Info().Interface("config", c).Msg("train")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = run(ctx, c)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("train failed")
	}
}

func run(ctx context.Context, c config.Config) error {
	samples, err := loadSamples(ctx, c)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return errors.New("dataset is empty")
	}
	log.Info().Int("positions", len(samples)).Msg("Loaded dataset")

	var rnd = rand.New(rand.NewSource(c.Seed))
	rnd.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
	var validationSize = min(500_000, len(samples)/5)
	var validation = samples[:validationSize]
	var training = samples[validationSize:]

	var model *train.Model
	if resume {
		model, err = train.LoadCheckpoint(c.Checkpoint, c.Topology())
		if err != nil {
			return err
		}
	} else {
		model = train.NewModel(rnd, c.Topology())
	}

	if netFolderPath != "" {
		err = os.MkdirAll(netFolderPath, os.ModePerm)
		if err != nil {
			return err
		}
	}

	_, err = train.Train(ctx, training, model, train.Settings{
		Epochs:       c.Epochs,
		BatchSize:    c.BatchSize,
		LearningRate: c.LearningRate,
		Rnd:          rnd,
		OnEpoch: func(epoch int, report train.Report) error {
			validationCost, err := train.Evaluate(model, validation)
			if err != nil {
				return err
			}
			validationMSE, err := train.EvaluateCost(model, validation, &ml.MSECost{})
			if err != nil {
				return err
			}
			log.Info().
				Int("epoch", epoch).
				Float64("validation", validationCost).
				Float64("mse", validationMSE).
				Msg("Current validation cost")
			err = export.SaveWeights(c.WeightsPath, model.Weights())
			if err != nil {
				return err
			}
			if netFolderPath != "" {
				err = model.Save(buildNetPath(netFolderPath, epoch, validationCost))
				if err != nil {
					return err
				}
			}
			if c.Checkpoint != "" {
				return model.Save(c.Checkpoint)
			}
			return nil
		},
	})
	return err
}

func loadSamples(ctx context.Context, c config.Config) ([]domain.Sample, error) {
	var samples []domain.Sample
	if c.DatasetPath != "" {
		var loaded, err = dataset.Load(ctx, c.DatasetPath, c.MaxPositions)
		if err != nil {
			return nil, err
		}
		samples = dataset.Merge(samples, loaded)
	}
	if c.ArchiveDir != "" {
		arch, err := archive.Open(c.ArchiveDir)
		if err != nil {
			return nil, err
		}
		defer arch.Close()
		loaded, err := arch.Load(c.MaxPositions)
		if err != nil {
			return nil, err
		}
		samples = dataset.Merge(samples, loaded)
	}
	if c.DatasetPath == "" && c.ArchiveDir == "" {
		return nil, errors.New("either -dataset or -archive is required")
	}
	return samples, nil
}

func buildNetPath(netFolderPath string, epoch int, validationCost float64) string {
	var valCostInt = int(100000 * validationCost)
	return filepath.Join(netFolderPath, fmt.Sprintf("n-%02d-%v.nn", epoch, valCostInt))
}
