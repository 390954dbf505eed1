package selfplay

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maxwellchess/selfplay/internal/book"
	"github.com/maxwellchess/selfplay/internal/domain"
	"github.com/maxwellchess/selfplay/internal/rules"
)

type fakeEngine struct {
	play  func(ctx context.Context, fen string) (string, error)
	calls int
	quits *int32
}

func (e *fakeEngine) Play(ctx context.Context, fen string, depth int) (string, error) {
	e.calls++
	return e.play(ctx, fen)
}

func (e *fakeEngine) Quit() error {
	atomic.AddInt32(e.quits, 1)
	return nil
}

// knightShuffle moves the g-file knights back and forth.
func knightShuffle(ctx context.Context, fen string) (string, error) {
	var game, err = rules.NewGame(fen)
	if err != nil {
		return "", err
	}
	var legal = make(map[string]bool)
	for _, m := range game.LegalMoves() {
		legal[m] = true
	}
	for _, m := range []string{"g1f3", "f3g1", "g8f6", "f6g8"} {
		if legal[m] {
			return m, nil
		}
	}
	return "0000", nil
}

func scripted(moves ...string) func(ctx context.Context, fen string) (string, error) {
	var i int
	return func(ctx context.Context, fen string) (string, error) {
		var m = moves[i%len(moves)]
		i++
		return m, nil
	}
}

func newTestPlayer(settings Settings, play func(ctx context.Context, fen string) (string, error), quits *int32) (*Player, *fakeEngine) {
	var engine = &fakeEngine{play: play, quits: quits}
	var player = NewPlayer(settings, func(ctx context.Context) (Engine, error) {
		return engine, nil
	}, nil)
	player.WithRand(func() Rand { return rand.New(rand.NewSource(1)) })
	return player, engine
}

func TestRepetitionIsLabeledDraw(t *testing.T) {
	var quits int32
	var player, _ = newTestPlayer(Settings{Depth: 1}, knightShuffle, &quits)
	samples, err := player.PlayGame(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 8 {
		t.Fatalf("positions %v, want 8", len(samples))
	}
	for _, s := range samples {
		if s.Label != domain.LabelDraw {
			t.Fatalf("label %v, want 0", s.Label)
		}
	}
	if quits != 1 {
		t.Errorf("engine quit %v times", quits)
	}
}

func TestCheckmateIsLabeled(t *testing.T) {
	var quits int32
	var player, _ = newTestPlayer(Settings{Depth: 1},
		scripted("f2f3", "e7e5", "g2g4", "d8h4"), &quits)
	samples, err := player.PlayGame(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 4 {
		t.Fatalf("positions %v, want 4", len(samples))
	}
	for _, s := range samples {
		if s.Label != domain.LabelBlackWin {
			t.Fatalf("label %v, want -1", s.Label)
		}
	}
	if samples[0].FEN == rules.InitialFen {
		t.Error("initial position must not be recorded")
	}
}

func TestMaxMoves(t *testing.T) {
	var quits int32
	var player, _ = newTestPlayer(Settings{Depth: 1, MaxMoves: 3}, knightShuffle, &quits)
	samples, err := player.PlayGame(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 4 {
		t.Fatalf("positions %v, want 4", len(samples))
	}
	for _, s := range samples {
		if s.Label != domain.LabelDraw {
			t.Fatalf("label %v, want 0", s.Label)
		}
	}
}

func TestRandomMoves(t *testing.T) {
	var quits int32
	var player, engine = newTestPlayer(Settings{Depth: 1, RandomMoveRate: 1, MaxMoves: 20}, knightShuffle, &quits)
	samples, err := player.PlayGame(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) == 0 {
		t.Fatal("no positions")
	}
	if engine.calls != 0 {
		t.Errorf("engine was asked %v times", engine.calls)
	}
}

func TestOpeningFromBook(t *testing.T) {
	bk, err := book.Parse(strings.NewReader("1: e2e4 e7e5\n"))
	if err != nil {
		t.Fatal(err)
	}
	var quits int32
	var engine = &fakeEngine{play: knightShuffle, quits: &quits}
	var player = NewPlayer(Settings{Depth: 1, OpeningMinMoves: 2, OpeningMaxMoves: 2},
		func(ctx context.Context) (Engine, error) { return engine, nil }, bk)
	player.WithRand(func() Rand { return rand.New(rand.NewSource(1)) })
	samples, err := player.PlayGame(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	game, err := rules.NewGame(samples[0].FEN)
	if err != nil {
		t.Fatal(err)
	}
	// Two book moves and one engine move.
	if game.FullMoveNumber() != 2 || game.WhiteToMove() {
		t.Errorf("first recorded position %v", samples[0].FEN)
	}
}

func TestEngineErrors(t *testing.T) {
	var quits int32
	var boom = errors.New("boom")
	var player, _ = newTestPlayer(Settings{Depth: 1}, func(ctx context.Context, fen string) (string, error) {
		return "", boom
	}, &quits)
	if _, err := player.PlayGame(context.Background(), 1); !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}

	player, _ = newTestPlayer(Settings{Depth: 1}, scripted("e2e5"), &quits)
	if _, err := player.PlayGame(context.Background(), 2); err == nil {
		t.Error("expected illegal move error")
	}

	player, _ = newTestPlayer(Settings{Depth: 1}, func(ctx context.Context, fen string) (string, error) {
		panic("engine crashed")
	}, &quits)
	if _, err := player.PlayGame(context.Background(), 3); err == nil {
		t.Error("expected panic to be reported")
	}

	if quits != 3 {
		t.Errorf("engine quit %v times, want 3", quits)
	}

	var failing = NewPlayer(Settings{}, func(ctx context.Context) (Engine, error) {
		return nil, boom
	}, nil)
	if _, err := failing.PlayGame(context.Background(), 4); !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}
}

func TestGameTimeout(t *testing.T) {
	var quits int32
	var player, _ = newTestPlayer(Settings{Depth: 1, GameTimeout: 50 * time.Millisecond},
		func(ctx context.Context, fen string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}, &quits)
	_, err := player.PlayGame(context.Background(), 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v", err)
	}
	if quits != 1 {
		t.Errorf("engine quit %v times", quits)
	}
}

func TestPlayGamesBoundsConcurrency(t *testing.T) {
	const games, concurrency = 40, 4
	var inFlight, maxInFlight, started int32
	result, err := PlayGames(context.Background(), games, concurrency,
		func(ctx context.Context, gameNumber int) ([]domain.Sample, error) {
			atomic.AddInt32(&started, 1)
			var n = atomic.AddInt32(&inFlight, 1)
			for {
				var m = atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return []domain.Sample{
				{FEN: rules.InitialFen, Label: 0},
				{FEN: rules.InitialFen, Label: 0},
			}, nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if maxInFlight > concurrency {
		t.Errorf("max in flight %v > %v", maxInFlight, concurrency)
	}
	if started != games || result.Games != games {
		t.Errorf("started %v, completed %v, want %v", started, result.Games, games)
	}
	if result.Positions != 2*games || len(result.Samples) != 2*games {
		t.Errorf("positions %v", result.Positions)
	}

	var stats Stats
	stats.Add(result)
	stats.Add(result)
	if stats.Games != 2*games || stats.Positions != 4*games || stats.Cycles != 2 {
		t.Errorf("stats %+v", stats)
	}
}

func TestPlayGamesError(t *testing.T) {
	var boom = errors.New("boom")
	result, err := PlayGames(context.Background(), 20, 3,
		func(ctx context.Context, gameNumber int) ([]domain.Sample, error) {
			if gameNumber == 5 {
				return nil, boom
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Millisecond):
			}
			return []domain.Sample{{FEN: rules.InitialFen}}, nil
		})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if len(result.Samples) != 0 {
		t.Errorf("partial data returned")
	}
}

func TestPlayGamesZero(t *testing.T) {
	result, err := PlayGames(context.Background(), 0, 2,
		func(ctx context.Context, gameNumber int) ([]domain.Sample, error) {
			t.Error("unexpected game")
			return nil, nil
		})
	if err != nil || result.Games != 0 {
		t.Errorf("got %+v %v", result, err)
	}
}
