package export

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/maxwellchess/selfplay/internal/train"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// WriteWeights writes the network as Rust constants:
//
//	pub const INPUT_LAYER_WEIGHTS: [f32; N] = [...];
//
// followed by INPUT_LAYER_BIASES, HIDDEN_LAYER_WEIGHTS and HIDDEN_LAYER_BIASES.
// Output layer parameters are concatenated bucket by bucket.
func WriteWeights(w io.Writer, weights train.Weights) error {
	var bw = bufio.NewWriter(w)
	var arrays = []struct {
		name   string
		values []float64
	}{
		{"INPUT_LAYER_WEIGHTS", weights.HiddenWeights},
		{"INPUT_LAYER_BIASES", weights.HiddenBiases},
		{"HIDDEN_LAYER_WEIGHTS", weights.OutputWeights},
		{"HIDDEN_LAYER_BIASES", weights.OutputBiases},
	}
	for _, a := range arrays {
		var err = writeArray(bw, a.name, a.values)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeArray(w *bufio.Writer, name string, values []float64) error {
	fmt.Fprintf(w, "pub const %v: [f32; %v] = [", name, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("%v[%v] is not finite: %v", name, i, v)
		}
		if i > 0 {
			w.WriteString(", ")
		}
		w.WriteString(formatFloat(v))
	}
	_, err := w.WriteString("];\n")
	return err
}

// formatFloat returns the shortest float32 literal that always contains a dot.
func formatFloat(v float64) string {
	var s = strconv.FormatFloat(v, 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// SaveWeights writes the weights file atomically.
func SaveWeights(path string, weights train.Weights) error {
	var dir = filepath.Dir(path)
	err := os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	err = WriteWeights(tmp, weights)
	if err != nil {
		tmp.Close()
		return errors.Wrapf(err, "export weights %v", path)
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("Saved weights")
	return nil
}

// Rebuild runs the build command in dir and waits for it to finish.
func Rebuild(ctx context.Context, dir string, command []string) error {
	if len(command) == 0 {
		return nil
	}
	log.Info().Str("dir", dir).Strs("command", command).Msg("Rebuild started")
	defer log.Info().Msg("Rebuild finished")

	var cmd = exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	var err = cmd.Run()
	if err != nil {
		return errors.Wrapf(err, "%v: %s", strings.Join(command, " "), bytes.TrimSpace(out.Bytes()))
	}
	return nil
}
