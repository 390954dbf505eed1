package rules

import (
	"math/bits"

	"github.com/dylhunn/dragontoothmg"
	"github.com/pkg/errors"
)

const InitialFen = dragontoothmg.Startpos

type Outcome int

const (
	WhiteWins Outcome = 1
	Draw      Outcome = 0
	BlackWins Outcome = -1
)

func (o Outcome) String() string {
	switch o {
	case WhiteWins:
		return "1-0"
	case BlackWins:
		return "0-1"
	default:
		return "1/2-1/2"
	}
}

// Game is a position together with the repetition history that led to it.
type Game struct {
	board dragontoothmg.Board
	keys  map[uint64]int
	moves []dragontoothmg.Move
}

func NewStartGame() *Game {
	var g, err = NewGame(InitialFen)
	if err != nil {
		panic(err)
	}
	return g
}

func NewGame(fen string) (g *Game, err error) {
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = errors.Errorf("parse fen %q: %v", fen, r)
		}
	}()
	if len(fen) == 0 {
		return nil, errors.New("empty fen")
	}
	var board = dragontoothmg.ParseFen(fen)
	if bits.OnesCount64(board.White.Kings) != 1 || bits.OnesCount64(board.Black.Kings) != 1 {
		return nil, errors.Errorf("parse fen %q: bad kings", fen)
	}
	g = &Game{
		board: board,
		keys:  make(map[uint64]int),
	}
	g.keys[board.Hash()]++
	return g, nil
}

func (g *Game) FEN() string {
	return g.board.ToFen()
}

// Key is the Zobrist hash of the current position.
func (g *Game) Key() uint64 {
	return g.board.Hash()
}

func (g *Game) WhiteToMove() bool {
	return g.board.Wtomove
}

func (g *Game) FullMoveNumber() int {
	return int(g.board.Fullmoveno)
}

func (g *Game) PieceCount() int {
	return bits.OnesCount64(g.board.White.All | g.board.Black.All)
}

// LegalMoves returns the legal moves in UCI notation.
func (g *Game) LegalMoves() []string {
	var moves = g.generateMoves()
	var result = make([]string, len(moves))
	for i := range moves {
		result[i] = moves[i].String()
	}
	return result
}

func (g *Game) generateMoves() []dragontoothmg.Move {
	if g.moves == nil {
		g.moves = g.board.GenerateLegalMoves()
		if g.moves == nil {
			g.moves = []dragontoothmg.Move{}
		}
	}
	return g.moves
}

// Apply plays a move given in UCI notation. Castling is accepted as the king move (e1g1).
func (g *Game) Apply(move string) error {
	var moves = g.generateMoves()
	for i := range moves {
		if moves[i].String() == move {
			g.board.Apply(moves[i])
			g.moves = nil
			g.keys[g.board.Hash()]++
			return nil
		}
	}
	return errors.Errorf("illegal move %v in %v", move, g.FEN())
}

func (g *Game) IsCheck() bool {
	return g.board.OurKingInCheck()
}

func (g *Game) IsCheckmate() bool {
	return len(g.generateMoves()) == 0 && g.IsCheck()
}

func (g *Game) IsStalemate() bool {
	return len(g.generateMoves()) == 0 && !g.IsCheck()
}

// a1 = bit 0.
const darkSquares uint64 = 0xAA55AA55AA55AA55

// IsInsufficientMaterial reports whether neither side can ever deliver mate.
func (g *Game) IsInsufficientMaterial() bool {
	return insufficientMaterial(&g.board.White, &g.board.Black) &&
		insufficientMaterial(&g.board.Black, &g.board.White)
}

// insufficientMaterial reports whether us alone cannot mate them.
// A lone knight needs an opponent with nothing but queens to block with.
// Bishops of both sides must stand on one square color with no pawns or knights left.
func insufficientMaterial(us, them *dragontoothmg.Bitboards) bool {
	if us.Pawns|us.Rooks|us.Queens != 0 {
		return false
	}
	if us.Knights != 0 {
		return bits.OnesCount64(us.Knights|us.Bishops) <= 1 &&
			them.Pawns|them.Knights|them.Bishops|them.Rooks == 0
	}
	if us.Bishops != 0 {
		var bishops = us.Bishops | them.Bishops
		var sameColor = bishops&darkSquares == 0 || bishops&^darkSquares == 0
		return sameColor && them.Pawns|them.Knights == 0
	}
	return true
}

func (g *Game) IsThreefoldRepetition() bool {
	return g.keys[g.board.Hash()] >= 3
}

func (g *Game) IsFiftyMoves() bool {
	return g.board.Halfmoveclock >= 100
}

func (g *Game) IsGameOver() bool {
	return len(g.generateMoves()) == 0 ||
		g.IsInsufficientMaterial() ||
		g.IsThreefoldRepetition() ||
		g.IsFiftyMoves()
}

// Outcome reports a result only for checkmate, stalemate and insufficient material.
// Repetition and the fifty move rule are draws that must be claimed, so they report ok == false.
func (g *Game) Outcome() (outcome Outcome, ok bool) {
	if g.IsCheckmate() {
		if g.board.Wtomove {
			return BlackWins, true
		}
		return WhiteWins, true
	}
	if g.IsStalemate() || g.IsInsufficientMaterial() {
		return Draw, true
	}
	return Draw, false
}
