package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoMove = errors.New("uci: engine returned no move")
	ErrExited = errors.New("uci: engine exited")
)

const quitTimeout = 2 * time.Second

// Engine is a UCI engine running as a child process.
// Methods must not be called concurrently.
type Engine struct {
	name     string
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	lines    chan string
	done     chan struct{}
	waitErr  chan error
	quitOnce sync.Once
	quitErr  error
}

// Start launches the engine and completes the uci/isready handshake.
func Start(ctx context.Context, path string, args ...string) (*Engine, error) {
	var cmd = exec.Command(path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	var stdout, stdoutWriter = io.Pipe()
	cmd.Stdout = stdoutWriter
	err = cmd.Start()
	if err != nil {
		return nil, errors.Wrapf(err, "start engine %v", path)
	}

	var e = &Engine{
		cmd:     cmd,
		stdin:   stdin,
		lines:   make(chan string, 64),
		done:    make(chan struct{}),
		waitErr: make(chan error, 1),
	}
	go e.readLines(stdout)
	go func() {
		var err = cmd.Wait()
		stdoutWriter.Close()
		e.waitErr <- err
	}()

	err = e.handshake(ctx)
	if err != nil {
		e.Quit()
		return nil, errors.WithMessagef(err, "engine %v", path)
	}
	log.Debug().Str("engine", e.name).Int("pid", cmd.Process.Pid).Msg("Engine started")
	return e, nil
}

func (e *Engine) handshake(ctx context.Context) error {
	if err := e.send("uci"); err != nil {
		return err
	}
	for {
		line, err := e.readLine(ctx)
		if err != nil {
			return err
		}
		if name, found := strings.CutPrefix(line, "id name "); found {
			e.name = name
		}
		if line == "uciok" {
			break
		}
	}
	if err := e.IsReady(ctx); err != nil {
		return err
	}
	return e.send("ucinewgame")
}

func (e *Engine) Name() string {
	return e.name
}

func (e *Engine) IsReady(ctx context.Context) error {
	if err := e.send("isready"); err != nil {
		return err
	}
	_, err := e.waitFor(ctx, "readyok")
	return err
}

// Play searches fen to the given depth and returns the best move in UCI notation.
func (e *Engine) Play(ctx context.Context, fen string, depth int) (string, error) {
	if err := e.send("position fen " + fen); err != nil {
		return "", err
	}
	if err := e.send(fmt.Sprintf("go depth %v", depth)); err != nil {
		return "", err
	}
	line, err := e.waitFor(ctx, "bestmove")
	if err != nil {
		return "", err
	}
	var fields = strings.Fields(line)
	if len(fields) < 2 || fields[1] == "(none)" || fields[1] == "0000" {
		return "", ErrNoMove
	}
	return fields[1], nil
}

// Quit asks the engine to exit and kills it if it is still running after a grace period.
// It is safe to call Quit more than once.
func (e *Engine) Quit() error {
	e.quitOnce.Do(func() {
		close(e.done)
		_ = e.send("quit")
		_ = e.stdin.Close()
		var timer = time.NewTimer(quitTimeout)
		defer timer.Stop()
		select {
		case err := <-e.waitErr:
			e.quitErr = err
		case <-timer.C:
			log.Warn().Str("engine", e.name).Msg("Engine did not quit, killing")
			_ = e.cmd.Process.Kill()
			<-e.waitErr
		}
	})
	return e.quitErr
}

func (e *Engine) kill() {
	_ = e.cmd.Process.Kill()
}

func (e *Engine) send(command string) error {
	_, err := io.WriteString(e.stdin, command+"\n")
	if err != nil {
		return errors.Wrapf(err, "send %q", command)
	}
	return nil
}

func (e *Engine) readLines(stdout io.Reader) {
	defer close(e.lines)
	var scanner = bufio.NewScanner(stdout)
	for scanner.Scan() {
		// After Quit the output is drained and dropped so the process can exit.
		select {
		case e.lines <- scanner.Text():
		case <-e.done:
		}
	}
}

func (e *Engine) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		e.kill()
		return "", ctx.Err()
	case line, ok := <-e.lines:
		if !ok {
			return "", ErrExited
		}
		return line, nil
	}
}

// waitFor skips output until a line starting with the given token.
func (e *Engine) waitFor(ctx context.Context, token string) (string, error) {
	for {
		line, err := e.readLine(ctx)
		if err != nil {
			return "", err
		}
		if line == token || strings.HasPrefix(line, token+" ") {
			return line, nil
		}
	}
}
