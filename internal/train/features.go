package train

import (
	"strings"

	"github.com/pkg/errors"
)

const FeatureSize = 64 * 12

// TuneEntry is the sparse form of a 768 input vector.
type TuneEntry struct {
	Features   []int16
	PieceCount int
}

// ComputeFeatures encodes the piece placement field of a FEN.
// Squares follow FEN order (a8 = 0, h1 = 63). Each occupied square sets
// index square*12 + pieceType + 6*color where pieces are ordered PNBRQK
// and color is 1 for white.
func ComputeFeatures(fen string) (TuneEntry, error) {
	var placement = fen
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		placement = fen[:i]
	}
	var features = make([]int16, 0, 32)
	var sq, file int
	for _, ch := range placement {
		switch {
		case ch == '/':
			if file != 8 {
				return TuneEntry{}, errors.Errorf("bad rank length %d in %q", file, placement)
			}
			file = 0
		case '1' <= ch && ch <= '8':
			file += int(ch - '0')
			sq += int(ch - '0')
			if file > 8 {
				return TuneEntry{}, errors.Errorf("rank overflow in %q", placement)
			}
		default:
			var piece = pieceIndex(ch)
			if piece < 0 {
				return TuneEntry{}, errors.Errorf("bad piece %q in %q", ch, placement)
			}
			if file >= 8 || sq >= 64 {
				return TuneEntry{}, errors.Errorf("rank overflow in %q", placement)
			}
			features = append(features, int16(sq*12+piece))
			sq++
			file++
		}
	}
	if sq != 64 {
		return TuneEntry{}, errors.Errorf("placement %q covers %d squares", placement, sq)
	}
	return TuneEntry{
		Features:   features,
		PieceCount: len(features),
	}, nil
}

func pieceIndex(ch rune) int {
	if i := strings.IndexRune("pnbrqk", ch); i >= 0 {
		return i
	}
	if i := strings.IndexRune("PNBRQK", ch); i >= 0 {
		return i + 6
	}
	return -1
}

// Bucket selects the output layer for a position with pieceCount pieces:
// 1-4 pieces use bucket 0, 5-8 bucket 1 and so on.
func Bucket(pieceCount, buckets int) int {
	if pieceCount < 1 {
		return 0
	}
	var b = (pieceCount - 1) / 4
	if b >= buckets {
		b = buckets - 1
	}
	return b
}
