package dataset

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/maxwellchess/selfplay/internal/domain"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// FileProvider streams samples from a "fen,label" file.
type FileProvider struct {
	FilePath string
}

var errDatasetReady = errors.New("dataset ready")

// Load sends samples until the file ends or datasetReady is closed.
func (dp *FileProvider) Load(
	ctx context.Context,
	datasetReady <-chan struct{},
	dataset chan<- domain.Sample,
) error {
	file, err := os.Open(dp.FilePath)
	if err != nil {
		return err
	}
	defer file.Close()

	var scanner = bufio.NewScanner(file)
	var lineNumber int
	for scanner.Scan() {
		lineNumber++
		var s = scanner.Text()
		if s == "" {
			continue
		}
		sample, err := ParseLine(s)
		if err != nil {
			return errors.WithMessagef(err, "%v:%v", dp.FilePath, lineNumber)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-datasetReady:
			return errDatasetReady
		case dataset <- sample:
		}
	}
	return scanner.Err()
}

// ParseLine parses "fen,label". The label must be in [-1, 1].
func ParseLine(s string) (domain.Sample, error) {
	var index = strings.LastIndexByte(s, ',')
	if index <= 0 {
		return domain.Sample{}, errors.Errorf("dataset parser failed %q", s)
	}
	var fen = strings.TrimSpace(s[:index])
	label, err := strconv.ParseFloat(strings.TrimSpace(s[index+1:]), 64)
	if err != nil {
		return domain.Sample{}, errors.Wrapf(err, "dataset parser failed %q", s)
	}
	if !(domain.LabelBlackWin <= label && label <= domain.LabelWhiteWin) {
		return domain.Sample{}, errors.Errorf("label %v out of range in %q", label, s)
	}
	return domain.Sample{FEN: fen, Label: label}, nil
}

// Load reads at most maxSize samples from path. Zero maxSize means no limit.
func Load(ctx context.Context, path string, maxSize int) ([]domain.Sample, error) {
	log.Info().Str("path", path).Msg("load dataset started")
	defer log.Info().Msg("load dataset finished")

	g, ctx := errgroup.WithContext(ctx)
	var datasetReady = make(chan struct{})
	var samples = make(chan domain.Sample, 128)

	g.Go(func() error {
		defer close(samples)
		var err = (&FileProvider{FilePath: path}).Load(ctx, datasetReady, samples)
		if err == errDatasetReady {
			return nil
		}
		return err
	})

	var result []domain.Sample
	g.Go(func() error {
		for sample := range samples {
			if maxSize != 0 && len(result) >= maxSize {
				continue
			}
			result = append(result, sample)
			if maxSize != 0 && len(result) == maxSize {
				close(datasetReady)
			}
		}
		return nil
	})

	var err = g.Wait()
	if err != nil {
		return nil, err
	}
	log.Info().Int("positions", len(result)).Msg("Loaded dataset")
	return result, nil
}
