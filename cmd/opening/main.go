package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/maxwellchess/selfplay/internal/book"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"
)

type Config struct {
	bookPath   string
	outputPath string
	count      int
	minMoves   int
	maxMoves   int
}

var config Config

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).
		With().Timestamp().Caller().Logger()

	flag.StringVar(&config.bookPath, "book", "", "Opening book file, empty uses the built-in book")
	flag.StringVar(&config.outputPath, "output", "", "Path to output fen file, empty prints to stdout")
	flag.IntVar(&config.count, "count", 1, "Number of openings")
	flag.IntVar(&config.minMoves, "min", 2, "Minimum number of book moves")
	flag.IntVar(&config.maxMoves, "max", 10, "Maximum number of book moves")
	flag.Parse()

	var err = run(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("opening failed")
	}
}

func run(ctx context.Context) error {
	bk, err := book.LoadOrDefault(config.bookPath)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	var fens = make(chan string, 128)

	g.Go(func() error {
		defer close(fens)
		var rnd = frand.New()
		for i := 0; i < config.count; i++ {
			var fen, err = book.RandomOpening(bk, rnd, config.minMoves, config.maxMoves)
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case fens <- fen:
			}
		}
		return nil
	})

	g.Go(func() error {
		return saveFens(ctx, config.outputPath, fens)
	})

	return g.Wait()
}
