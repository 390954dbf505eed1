package dataset

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"github.com/maxwellchess/selfplay/internal/domain"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Write writes samples as "fen,label" lines. The last line has no trailing newline.
func Write(w io.Writer, samples []domain.Sample) error {
	var bw = bufio.NewWriter(w)
	for i := range samples {
		if i > 0 {
			bw.WriteByte('\n')
		}
		bw.WriteString(samples[i].FEN)
		bw.WriteByte(',')
		bw.WriteString(strconv.FormatFloat(samples[i].Label, 'f', -1, 64))
	}
	return bw.Flush()
}

func Save(path string, samples []domain.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	err = Write(f, samples)
	if err != nil {
		return errors.Wrapf(err, "save dataset %v", path)
	}
	err = f.Close()
	if err != nil {
		return err
	}
	log.Info().
		Str("path", path).
		Int("positions", len(samples)).
		Msg("Saved dataset")
	return nil
}

// Merge appends the samples of src whose FEN is not yet in dst.
func Merge(dst, src []domain.Sample) []domain.Sample {
	var repeats = make(map[string]struct{}, len(dst))
	for i := range dst {
		repeats[dst[i].FEN] = struct{}{}
	}
	var repeatCount int
	for i := range src {
		if _, found := repeats[src[i].FEN]; found {
			repeatCount++
			continue
		}
		repeats[src[i].FEN] = struct{}{}
		dst = append(dst, src[i])
	}
	log.Debug().
		Int("positions", len(dst)).
		Int("repeats", repeatCount).
		Msg("Merged dataset")
	return dst
}
