package domain

// Game outcome labels from White's point of view.
const (
	LabelBlackWin = -1.0
	LabelDraw     = 0.0
	LabelWhiteWin = 1.0
)

// Sample is one position of a finished self-play game labeled with the game result.
type Sample struct {
	FEN   string
	Label float64
}
