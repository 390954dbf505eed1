package selfplay

import (
	"context"
	"sync"
	"time"

	"github.com/maxwellchess/selfplay/internal/domain"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PlayFunc plays one game and returns its labeled positions.
type PlayFunc func(ctx context.Context, gameNumber int) ([]domain.Sample, error)

type Result struct {
	Samples   []domain.Sample
	Games     int
	Positions int
}

// Stats accumulates totals over training cycles.
type Stats struct {
	Cycles    int
	Games     int
	Positions int
}

func (s *Stats) Add(r Result) {
	s.Cycles++
	s.Games += r.Games
	s.Positions += r.Positions
}

var progressInterval = 10 * time.Second

// PlayGames plays games with at most concurrency games in flight.
// On the first error the remaining games are cancelled and no data is returned.
func PlayGames(
	ctx context.Context,
	games int,
	concurrency int,
	play PlayFunc,
) (Result, error) {
	if games < 0 || concurrency <= 0 {
		return Result{}, errors.Errorf("bad games %v or concurrency %v", games, concurrency)
	}
	log.Info().
		Int("games", games).
		Int("concurrency", concurrency).
		Msg("Self-play started")
	defer log.Info().Msg("Self-play finished")

	g, ctx := errgroup.WithContext(ctx)

	var gameNumbers = make(chan int)
	var results = make(chan []domain.Sample, concurrency)

	g.Go(func() error {
		defer close(gameNumbers)
		for i := 1; i <= games; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case gameNumbers <- i:
			}
		}
		return nil
	})

	var result Result
	g.Go(func() error {
		return collectGames(ctx, results, games, &result)
	})

	var wg = &sync.WaitGroup{}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return playGames(ctx, gameNumbers, results, play)
		})
	}

	g.Go(func() error {
		wg.Wait()
		close(results)
		return nil
	})

	var err = g.Wait()
	if err != nil {
		return Result{}, err
	}
	if result.Games != games {
		return Result{}, errors.Errorf("played %v games, expected %v", result.Games, games)
	}
	return result, nil
}

func playGames(
	ctx context.Context,
	gameNumbers <-chan int,
	results chan<- []domain.Sample,
	play PlayFunc,
) error {
	for gameNumber := range gameNumbers {
		var samples, err = play(ctx, gameNumber)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case results <- samples:
		}
	}
	return nil
}

func collectGames(
	ctx context.Context,
	results <-chan []domain.Sample,
	games int,
	result *Result,
) error {
	var ticker = time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			log.Info().
				Int("done", result.Games).
				Int("games", games).
				Int("positions", result.Positions).
				Msg("Playing self-play games")
		case samples, ok := <-results:
			if !ok {
				return nil
			}
			result.Samples = append(result.Samples, samples...)
			result.Games++
			result.Positions += len(samples)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
