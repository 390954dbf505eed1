package selfplay

import (
	"context"
	"time"

	"github.com/maxwellchess/selfplay/internal/book"
	"github.com/maxwellchess/selfplay/internal/domain"
	"github.com/maxwellchess/selfplay/internal/rules"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"
)

type Engine interface {
	Play(ctx context.Context, fen string, depth int) (string, error)
	Quit() error
}

type EngineFactory func(ctx context.Context) (Engine, error)

type Book interface {
	Sample(game *rules.Game, rnd book.Rand) (string, bool)
}

type Rand interface {
	Intn(n int) int
	Float64() float64
}

type Settings struct {
	Depth           int
	RandomMoveRate  float64
	MaxMoves        int
	OpeningMinMoves int
	OpeningMaxMoves int
	// GameTimeout bounds a single game. Zero means no limit.
	GameTimeout time.Duration
}

// Player plays self-play games and labels every position with the game result.
type Player struct {
	settings  Settings
	newEngine EngineFactory
	book      Book
	newRand   func() Rand
}

func NewPlayer(settings Settings, newEngine EngineFactory, book Book) *Player {
	return &Player{
		settings:  settings,
		newEngine: newEngine,
		book:      book,
		newRand:   func() Rand { return frand.New() },
	}
}

// WithRand replaces the random source used for book and exploration moves.
func (p *Player) WithRand(newRand func() Rand) *Player {
	p.newRand = newRand
	return p
}

// PlayGame plays one game and returns its positions after every move, all
// labeled with the final result.
func (p *Player) PlayGame(ctx context.Context, gameNumber int) (samples []domain.Sample, err error) {
	defer func() {
		if r := recover(); r != nil {
			samples = nil
			err = errors.Errorf("game %v panic: %v", gameNumber, r)
		}
	}()

	if p.settings.GameTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.settings.GameTimeout)
		defer cancel()
	}

	engine, err := p.newEngine(ctx)
	if err != nil {
		return nil, errors.WithMessagef(err, "game %v", gameNumber)
	}
	defer engine.Quit()

	var rnd = p.newRand()
	var game = rules.NewStartGame()
	if err := p.playOpening(game, rnd); err != nil {
		return nil, errors.WithMessagef(err, "game %v opening", gameNumber)
	}

	var fens []string
	for !game.IsGameOver() {
		var move string
		if rnd.Float64() < p.settings.RandomMoveRate {
			var moves = game.LegalMoves()
			move = moves[rnd.Intn(len(moves))]
		} else {
			move, err = engine.Play(ctx, game.FEN(), p.settings.Depth)
			if err != nil {
				return nil, errors.WithMessagef(err, "game %v", gameNumber)
			}
		}
		err = game.Apply(move)
		if err != nil {
			return nil, errors.WithMessagef(err, "game %v", gameNumber)
		}
		fens = append(fens, game.FEN())

		if p.settings.MaxMoves > 0 && game.FullMoveNumber() >= p.settings.MaxMoves {
			break
		}
	}

	var label = Label(game)
	log.Debug().
		Int("game", gameNumber).
		Int("positions", len(fens)).
		Float64("label", label).
		Msg("Finished game")

	samples = make([]domain.Sample, len(fens))
	for i := range fens {
		samples[i] = domain.Sample{FEN: fens[i], Label: label}
	}
	return samples, nil
}

func (p *Player) playOpening(game *rules.Game, rnd Rand) error {
	if p.book == nil {
		return nil
	}
	var k = p.settings.OpeningMinMoves
	if p.settings.OpeningMaxMoves > k {
		k += rnd.Intn(p.settings.OpeningMaxMoves - k + 1)
	}
	for i := 0; i < k; i++ {
		var move, ok = p.book.Sample(game, rnd)
		if !ok {
			break
		}
		if err := game.Apply(move); err != nil {
			return err
		}
	}
	return nil
}

// Label maps the final position to a training target. Positions without an
// explicit outcome (repetition, fifty moves, move limit) are labeled as a draw.
func Label(game *rules.Game) float64 {
	var outcome, ok = game.Outcome()
	if !ok {
		return domain.LabelDraw
	}
	switch outcome {
	case rules.WhiteWins:
		return domain.LabelWhiteWin
	case rules.BlackWins:
		return domain.LabelBlackWin
	default:
		return domain.LabelDraw
	}
}
