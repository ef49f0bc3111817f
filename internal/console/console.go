// Package console is the operator channel: lines typed at the prompt are
// sent to the world as chat by the live agent.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

// Prompt is shown before every operator line.
const Prompt = "[BOT] > "

// ErrInterrupted - the operator pressed Ctrl+C on an empty line.
var ErrInterrupted = errors.New("console interrupted")

// Options configures the console. Zero value reads the process stdin.
type Options struct {
	Stdin       io.Reader
	Stdout      io.Writer
	HistoryFile string
}

// Run reads operator lines until ctx is cancelled or input ends and passes
// every non-empty trimmed line to submit. End of input returns nil, the
// agent keeps running without an operator.
func Run(ctx context.Context, opts Options, submit func(line string)) error {
	var src io.Reader = os.Stdin
	if opts.Stdin != nil {
		src = opts.Stdin
	}
	stdin := readline.NewCancelableStdin(src)
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            Prompt,
		HistoryFile:       opts.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "",
		HistorySearchFold: true,
		Stdin:             stdin,
		Stdout:            stdout,
		Stderr:            stdout,
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	// Closing the input unblocks Readline; the instance itself is only
	// closed from this goroutine.
	stop := context.AfterFunc(ctx, func() { _ = stdin.Close() })
	defer stop()

	for {
		line, err := rl.Readline()
		if ctx.Err() != nil {
			return nil
		}
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return ErrInterrupted
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("reading operator input: %w", err)
		}

		if line = strings.TrimSpace(line); line != "" {
			submit(line)
		}
	}
}
