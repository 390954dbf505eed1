package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/maxwellchess/selfplay/internal/domain"
)

var testSamples = []domain.Sample{
	{FEN: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", Label: 1},
	{FEN: "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2", Label: 0},
	{FEN: "8/8/8/4k3/8/8/8/4K2R w K - 0 1", Label: -1},
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testSamples[2:]); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "8/8/8/4k3/8/8/8/4K2R w K - 0 1,-1"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSaveLoad(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "data.txt")
	if err := Save(path, testSamples); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.HasSuffix(data, []byte("\n")) {
		t.Error("trailing newline")
	}

	samples, err := Load(context.Background(), path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != len(testSamples) {
		t.Fatalf("loaded %v samples", len(samples))
	}
	for i := range samples {
		if samples[i] != testSamples[i] {
			t.Errorf("got %+v, want %+v", samples[i], testSamples[i])
		}
	}

	samples, err = Load(context.Background(), path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 2 {
		t.Errorf("loaded %v samples, want 2", len(samples))
	}
}

func TestLoadMalformed(t *testing.T) {
	var tests = []string{
		"no label here",
		"8/8/8/4k3/8/8/8/4K2R w K - 0 1,abc",
		"8/8/8/4k3/8/8/8/4K2R w K - 0 1,2",
		",1",
	}
	for _, text := range tests {
		var path = filepath.Join(t.TempDir(), "bad.txt")
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(context.Background(), path, 0); err == nil {
			t.Errorf("expected error for %q", text)
		}
	}
}

func TestMerge(t *testing.T) {
	var merged = Merge(append([]domain.Sample(nil), testSamples[:2]...), []domain.Sample{
		{FEN: testSamples[0].FEN, Label: -1},
		testSamples[2],
	})
	if len(merged) != 3 {
		t.Fatalf("merged %v samples", len(merged))
	}
	if merged[0].Label != 1 {
		t.Error("first label must win")
	}
}
