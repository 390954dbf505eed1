package selfplay

import (
	"context"

	"github.com/maxwellchess/selfplay/internal/uci"
)

// UCIEngineFactory starts a new engine process for every game.
func UCIEngineFactory(path string, args ...string) EngineFactory {
	return func(ctx context.Context) (Engine, error) {
		var engine, err = uci.Start(ctx, path, args...)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}
