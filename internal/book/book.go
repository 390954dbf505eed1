package book

import (
	"bufio"
	_ "embed"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/maxwellchess/selfplay/internal/rules"
	"github.com/pkg/errors"
)

//go:embed openings.txt
var openingsTxt string

var ErrEmpty = errors.New("book: no entries")

// Entry is a book move with its accumulated weight.
type Entry struct {
	Move   string
	Weight int
}

// Book maps a position key to the weighted moves played from it.
type Book struct {
	entries map[uint64][]Entry
}

type Rand interface {
	Intn(n int) int
}

func New() *Book {
	return &Book{
		entries: make(map[uint64][]Entry),
	}
}

// Default returns the book built from the embedded opening lines.
func Default() (*Book, error) {
	return Parse(strings.NewReader(openingsTxt))
}

// LoadOrDefault loads path, or the embedded book when path is empty.
func LoadOrDefault(path string) (*Book, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

func Load(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	book, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load book %v", path)
	}
	return book, nil
}

// Parse reads lines of the form "weight: move move ...".
// Empty lines and lines starting with // are skipped.
func Parse(r io.Reader) (*Book, error) {
	var book = New()
	var scanner = bufio.NewScanner(r)
	var lineNumber int
	for scanner.Scan() {
		lineNumber++
		var line = strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var err = book.addLine(line)
		if err != nil {
			return nil, errors.WithMessagef(err, "line %v", lineNumber)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return book, nil
}

func (b *Book) addLine(line string) error {
	var weightText, movesText, found = strings.Cut(line, ":")
	if !found {
		return errors.Errorf("missing weight in %q", line)
	}
	weight, err := strconv.Atoi(strings.TrimSpace(weightText))
	if err != nil {
		return errors.Wrap(err, "bad weight")
	}
	if weight <= 0 {
		return errors.Errorf("weight %v must be positive", weight)
	}
	var game = rules.NewStartGame()
	for _, move := range strings.Fields(movesText) {
		var key = game.Key()
		if err := game.Apply(move); err != nil {
			return err
		}
		b.add(key, move, weight)
	}
	return nil
}

func (b *Book) add(key uint64, move string, weight int) {
	var entries = b.entries[key]
	for i := range entries {
		if entries[i].Move == move {
			entries[i].Weight += weight
			return
		}
	}
	b.entries[key] = append(entries, Entry{Move: move, Weight: weight})
}

func (b *Book) Len() int {
	return len(b.entries)
}

// Entries returns the book moves for the current position.
func (b *Book) Entries(game *rules.Game) []Entry {
	if b == nil {
		return nil
	}
	return b.entries[game.Key()]
}

// Sample picks a book move for the position by weighted random choice.
// It returns false when the book has no legal entry for the position.
func (b *Book) Sample(game *rules.Game, rnd Rand) (string, bool) {
	var entries = b.Entries(game)
	if len(entries) == 0 {
		return "", false
	}
	var totalWeight int
	for _, e := range entries {
		totalWeight += e.Weight
	}
	var r = rnd.Intn(totalWeight)
	var cumulative int
	for _, e := range entries {
		cumulative += e.Weight
		if r < cumulative {
			if !isLegal(game, e.Move) {
				return "", false
			}
			return e.Move, true
		}
	}
	return "", false
}

func isLegal(game *rules.Game, move string) bool {
	for _, m := range game.LegalMoves() {
		if m == move {
			return true
		}
	}
	return false
}

// Play applies up to k book moves to game and returns how many were played.
func (b *Book) Play(game *rules.Game, rnd Rand, k int) (int, error) {
	for i := 0; i < k; i++ {
		var move, ok = b.Sample(game, rnd)
		if !ok {
			return i, nil
		}
		if err := game.Apply(move); err != nil {
			return i, err
		}
	}
	return k, nil
}

// RandomOpening plays between minMoves and maxMoves book moves from the
// initial position and returns the resulting FEN.
func RandomOpening(b *Book, rnd Rand, minMoves, maxMoves int) (string, error) {
	if b == nil || b.Len() == 0 {
		return "", ErrEmpty
	}
	if minMoves < 0 || maxMoves < minMoves {
		return "", errors.Errorf("bad opening range [%v, %v]", minMoves, maxMoves)
	}
	var game = rules.NewStartGame()
	var k = minMoves + rnd.Intn(maxMoves-minMoves+1)
	if _, err := b.Play(game, rnd, k); err != nil {
		return "", err
	}
	return game.FEN(), nil
}
