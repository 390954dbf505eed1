package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/maxwellchess/selfplay/internal/archive"
	"github.com/maxwellchess/selfplay/internal/book"
	"github.com/maxwellchess/selfplay/internal/config"
	"github.com/maxwellchess/selfplay/internal/export"
	"github.com/maxwellchess/selfplay/internal/selfplay"
	"github.com/maxwellchess/selfplay/internal/train"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var resume bool

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
		With().Timestamp().Caller().Logger()

	flag.BoolVar(&resume, "resume", false, "Continue from the checkpoint file")
	var c, err = config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("bad config")
	}
	log.Info().Interface("config", c).Msg("trainer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = run(ctx, c)
	if err != nil {
		log.Fatal().Err(err).Msg("trainer failed")
	}
}

func run(ctx context.Context, c config.Config) error {
	log.Info().Msg("trainer started")
	defer log.Info().Msg("trainer finished")

	if c.Epochs == 0 {
		return errors.New("epochs must be positive for online training")
	}

	var rnd = rand.New(rand.NewSource(c.Seed))
	model, err := loadModel(rnd, c)
	if err != nil {
		return err
	}
	bk, err := book.LoadOrDefault(c.BookPath)
	if err != nil {
		return err
	}

	var arch *archive.Archive
	if c.ArchiveDir != "" {
		arch, err = archive.Open(c.ArchiveDir)
		if err != nil {
			return err
		}
		defer arch.Close()
	}

	// The engine must play with the same weights the trainer starts from.
	err = publish(ctx, c, model)
	if err != nil {
		return err
	}

	var player = selfplay.NewPlayer(c.PlayerSettings(),
		selfplay.UCIEngineFactory(c.EnginePath, c.EngineArgs...), bk)
	var stats selfplay.Stats

	for cycle := 1; c.Cycles == 0 || cycle <= c.Cycles; cycle++ {
		log.Info().Int("cycle", cycle).Msg("Training cycle")

		result, err := selfplay.PlayGames(ctx, c.Games, c.Concurrency, player.PlayGame)
		if err != nil {
			return err
		}
		stats.Add(result)

		if arch != nil {
			_, err = arch.Put(result.Samples)
			if err != nil {
				return err
			}
			err = arch.AddGames(result.Games)
			if err != nil {
				return err
			}
		}

		_, err = train.Train(ctx, result.Samples, model, train.Settings{
			Epochs:       c.Epochs,
			BatchSize:    c.BatchSize,
			LearningRate: c.LearningRate,
			Rnd:          rnd,
		})
		if err != nil {
			return err
		}

		err = publish(ctx, c, model)
		if err != nil {
			return err
		}
		if c.Checkpoint != "" {
			err = model.Save(c.Checkpoint)
			if err != nil {
				return err
			}
		}

		log.Info().
			Int("cycles", stats.Cycles).
			Int("games", stats.Games).
			Int("positions", stats.Positions).
			Msg("Training results")
	}
	return nil
}

func loadModel(rnd *rand.Rand, c config.Config) (*train.Model, error) {
	if !resume {
		return train.NewModel(rnd, c.Topology()), nil
	}
	model, err := train.LoadCheckpoint(c.Checkpoint, c.Topology())
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", c.Checkpoint).Msg("Resumed from checkpoint")
	return model, nil
}

// publish exports the weights and rebuilds the engine.
func publish(ctx context.Context, c config.Config, model *train.Model) error {
	var err = export.SaveWeights(c.WeightsPath, model.Weights())
	if err != nil {
		return err
	}
	return export.Rebuild(ctx, c.RebuildDir, c.RebuildCmd)
}
