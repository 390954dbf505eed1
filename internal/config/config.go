package config

import (
	"encoding/json"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/maxwellchess/selfplay/internal/selfplay"
	"github.com/maxwellchess/selfplay/internal/train"
	"github.com/pkg/errors"
)

// Config holds every knob of the self-play trainer.
type Config struct {
	Games        int     `json:"games"`
	Concurrency  int     `json:"concurrency"`
	Cycles       int     `json:"cycles"`
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`

	Depth           int           `json:"depth"`
	RandomMoveRate  float64       `json:"random_move_rate"`
	MaxMoves        int           `json:"max_moves"`
	OpeningMinMoves int           `json:"opening_min_moves"`
	OpeningMaxMoves int           `json:"opening_max_moves"`
	GameTimeout     time.Duration `json:"game_timeout"`

	Hidden  int `json:"hidden"`
	Outputs int `json:"outputs"`
	Buckets int `json:"buckets"`

	EnginePath   string   `json:"engine_path"`
	EngineArgs   []string `json:"engine_args"`
	BookPath     string   `json:"book_path"`
	WeightsPath  string   `json:"weights_path"`
	RebuildDir   string   `json:"rebuild_dir"`
	RebuildCmd   []string `json:"rebuild_cmd"`
	Checkpoint   string   `json:"checkpoint"`
	DatasetPath  string   `json:"dataset_path"`
	ArchiveDir   string   `json:"archive_dir"`
	MaxPositions int      `json:"max_positions"`
	Seed         int64    `json:"seed"`
}

func Default() Config {
	return Config{
		Games:           100,
		Concurrency:     min(4, runtime.NumCPU()),
		Cycles:          0,
		Epochs:          10,
		BatchSize:       12000,
		LearningRate:    0.0004,
		Depth:           14,
		RandomMoveRate:  0.05,
		MaxMoves:        300,
		OpeningMinMoves: 1,
		OpeningMaxMoves: 10,
		Hidden:          128,
		Outputs:         1,
		Buckets:         8,
		EnginePath:      "./target/release/maxwell",
		EngineArgs:      []string{"debug_output=false"},
		WeightsPath:     "./src/nnue_weights.rs",
		RebuildDir:      ".",
		RebuildCmd:      []string{"cargo", "build", "--release"},
		Checkpoint:      "selfplay.nn",
	}
}

// Load reads a JSON file over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	var config = Default()
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, errors.Wrapf(err, "parse config %v", path)
	}
	return config, nil
}

// RegisterFlags binds the knobs to fs so that command line flags override file values.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Games, "games", c.Games, "Self-play games per cycle")
	fs.IntVar(&c.Concurrency, "concurrency", c.Concurrency, "Number of games played at the same time")
	fs.IntVar(&c.Cycles, "cycles", c.Cycles, "Training cycles, 0 runs forever")
	fs.IntVar(&c.Epochs, "epochs", c.Epochs, "Epochs per training")
	fs.IntVar(&c.BatchSize, "batch", c.BatchSize, "Minibatch size")
	fs.Float64Var(&c.LearningRate, "lr", c.LearningRate, "Learning rate")
	fs.IntVar(&c.Depth, "depth", c.Depth, "Search depth per move")
	fs.Float64Var(&c.RandomMoveRate, "random", c.RandomMoveRate, "Probability of a random move")
	fs.IntVar(&c.MaxMoves, "maxmoves", c.MaxMoves, "Stop a game at this full move number")
	fs.IntVar(&c.OpeningMinMoves, "bookmin", c.OpeningMinMoves, "Minimum number of book moves")
	fs.IntVar(&c.OpeningMaxMoves, "bookmax", c.OpeningMaxMoves, "Maximum number of book moves")
	fs.DurationVar(&c.GameTimeout, "gametimeout", c.GameTimeout, "Time limit for one game, 0 disables it")
	fs.IntVar(&c.Hidden, "hidden", c.Hidden, "Hidden layer size")
	fs.IntVar(&c.Outputs, "outputs", c.Outputs, "Network outputs per bucket")
	fs.IntVar(&c.Buckets, "buckets", c.Buckets, "Number of output buckets")
	fs.StringVar(&c.EnginePath, "engine", c.EnginePath, "Path to UCI engine")
	fs.Var((*listValue)(&c.EngineArgs), "engineargs", "Space separated engine arguments")
	fs.StringVar(&c.BookPath, "book", c.BookPath, "Opening book file, empty uses the built-in book")
	fs.StringVar(&c.WeightsPath, "weights", c.WeightsPath, "Exported Rust weights file")
	fs.StringVar(&c.RebuildDir, "rebuilddir", c.RebuildDir, "Directory of the engine build")
	fs.Var((*listValue)(&c.RebuildCmd), "rebuild", "Space separated rebuild command, empty disables it")
	fs.StringVar(&c.Checkpoint, "checkpoint", c.Checkpoint, "Network checkpoint file")
	fs.StringVar(&c.DatasetPath, "dataset", c.DatasetPath, "fen,label dataset file")
	fs.StringVar(&c.ArchiveDir, "archive", c.ArchiveDir, "Position archive directory")
	fs.IntVar(&c.MaxPositions, "dms", c.MaxPositions, "Max size of dataset, 0 means no limit")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "Seed for weight initialization and shuffling")
}

func (c *Config) Validate() error {
	var checks = []struct {
		ok   bool
		name string
	}{
		{c.Games >= 1, "games"},
		{c.Concurrency >= 1, "concurrency"},
		{c.Cycles >= 0, "cycles"},
		{c.Epochs >= 0, "epochs"},
		{c.BatchSize >= 1, "batch"},
		{c.LearningRate > 0, "lr"},
		{c.Depth >= 1, "depth"},
		{0 <= c.RandomMoveRate && c.RandomMoveRate <= 1, "random"},
		{c.MaxMoves >= 0, "maxmoves"},
		{0 <= c.OpeningMinMoves && c.OpeningMinMoves <= c.OpeningMaxMoves, "bookmin/bookmax"},
		{c.GameTimeout >= 0, "gametimeout"},
		{c.Hidden >= 1, "hidden"},
		{c.Outputs >= 1, "outputs"},
		{c.Buckets >= 1, "buckets"},
		{c.EnginePath != "", "engine"},
		{c.MaxPositions >= 0, "dms"},
	}
	var bad []string
	for _, check := range checks {
		if !check.ok {
			bad = append(bad, check.name)
		}
	}
	if len(bad) != 0 {
		return errors.Errorf("invalid config: %v", strings.Join(bad, ", "))
	}
	return nil
}

func (c *Config) Topology() train.Topology {
	return train.Topology{
		Inputs:  train.FeatureSize,
		Hidden:  c.Hidden,
		Outputs: c.Outputs,
		Buckets: c.Buckets,
	}
}

func (c *Config) PlayerSettings() selfplay.Settings {
	return selfplay.Settings{
		Depth:           c.Depth,
		RandomMoveRate:  c.RandomMoveRate,
		MaxMoves:        c.MaxMoves,
		OpeningMinMoves: c.OpeningMinMoves,
		OpeningMaxMoves: c.OpeningMaxMoves,
		GameTimeout:     c.GameTimeout,
	}
}

// listValue is a flag.Value for space separated lists.
type listValue []string

func (l *listValue) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, " ")
}

func (l *listValue) Set(s string) error {
	*l = strings.Fields(s)
	return nil
}

// Parse loads the file named by the -config flag, then applies the remaining
// flags over it and validates the result.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	var config, err = Load(configPath(args))
	if err != nil {
		return config, err
	}
	config.RegisterFlags(fs)
	fs.String("config", "", "JSON config file")
	err = fs.Parse(args)
	if err != nil {
		return config, err
	}
	return config, config.Validate()
}

func configPath(args []string) string {
	for i, arg := range args {
		var name, value, hasValue = strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
