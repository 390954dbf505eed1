package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

func saveFens(ctx context.Context, filepath string, fens <-chan string) error {
	var w io.Writer = os.Stdout
	if filepath != "" {
		file, err := os.Create(filepath)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	var ticker = time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var totalCount int
	var uniqueCount int
	var repeats = make(map[string]struct{})

	var showProgress = func() {
		log.Info().
			Int("total", totalCount).
			Int("unique", uniqueCount).
			Msg("Openings")
	}

LOOP:
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			showProgress()
		case fen, ok := <-fens:
			if !ok {
				break LOOP
			}
			totalCount++
			if _, found := repeats[fen]; found {
				continue
			}
			repeats[fen] = struct{}{}
			uniqueCount++

			_, err := fmt.Fprintln(w, fen)
			if err != nil {
				return err
			}
		}
	}

	if filepath != "" {
		showProgress()
	}
	return nil
}
