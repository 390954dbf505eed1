package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/maxwellchess/selfplay/internal/archive"
	"github.com/maxwellchess/selfplay/internal/book"
	"github.com/maxwellchess/selfplay/internal/config"
	"github.com/maxwellchess/selfplay/internal/dataset"
	"github.com/maxwellchess/selfplay/internal/selfplay"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
		With().Timestamp().Caller().Logger()

	var c, err = config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("bad config")
	}
	log.Info().Interface("config", c).Msg("datagen")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = run(ctx, c)
	if err != nil {
		log.Fatal().Err(err).Msg("datagen failed")
	}
}

func run(ctx context.Context, c config.Config) error {
	log.Info().Msg("datagen started")
	defer log.Info().Msg("datagen finished")

	if c.DatasetPath == "" && c.ArchiveDir == "" {
		return errors.New("either -dataset or -archive is required")
	}

	bk, err := book.LoadOrDefault(c.BookPath)
	if err != nil {
		return err
	}
	var player = selfplay.NewPlayer(c.PlayerSettings(),
		selfplay.UCIEngineFactory(c.EnginePath, c.EngineArgs...), bk)

	result, err := selfplay.PlayGames(ctx, c.Games, c.Concurrency, player.PlayGame)
	if err != nil {
		return err
	}

	if c.DatasetPath != "" {
		err = dataset.Save(c.DatasetPath, result.Samples)
		if err != nil {
			return err
		}
	}

	if c.ArchiveDir != "" {
		arch, err := archive.Open(c.ArchiveDir)
		if err != nil {
			return err
		}
		defer arch.Close()
		added, err := arch.Put(result.Samples)
		if err != nil {
			return err
		}
		err = arch.AddGames(result.Games)
		if err != nil {
			return err
		}
		stats, err := arch.Stats()
		if err != nil {
			return err
		}
		log.Info().
			Int("added", added).
			Int("games", stats.Games).
			Int("positions", stats.Positions).
			Msg("Archive")
	}

	log.Info().
		Int("games", result.Games).
		Int("positions", result.Positions).
		Msg("Self-play results")
	return nil
}
