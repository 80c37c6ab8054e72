package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gadgetkb/gadgetkb/emitter"
	"github.com/gadgetkb/gadgetkb/script"
	"github.com/gadgetkb/gadgetkb/sink"
)

// Check runs scripts against an in-memory keyboard without waiting for
// delays, reporting every script that would fail.
type Check struct {
	Verbose bool     `short:"v" help:"Print every key with the modifier it is sent with" env:"GADGETKB_CHECK_VERBOSE"`
	Scripts []string `arg:"" name:"script" help:"Script files to check, - reads stdin"`

	stdin  io.Reader
	stdout io.Writer
}

// Run is called by Kong when the check command is executed.
func (c *Check) Run(logger *slog.Logger) error {
	out := c.stdout
	if out == nil {
		out = os.Stdout
	}

	var errs []error
	for _, path := range c.Scripts {
		rec := &sink.Recorder{}
		opts := []script.Option{
			script.WithLogger(logger),
			script.WithSleep(func(time.Duration) {}),
		}
		if c.Verbose {
			opts = append(opts, script.WithObserver(func(ev script.KeyEvent) {
				_, _ = fmt.Fprintf(out, "%s:%d:%d\t%-10s usage=0x%02x modifier=%s\n",
					path, ev.Line, ev.Col, ev.Key, ev.Code.Usage, ev.Modifier)
			}))
		}
		in := script.New(emitter.New(rec, emitter.DefaultConfig(), logger, nil), opts...)

		var err error
		if path == stdinArg {
			r := c.stdin
			if r == nil {
				r = os.Stdin
			}
			err = in.Run("<stdin>", r)
		} else {
			err = in.RunFile(path)
		}
		if err != nil {
			_, _ = fmt.Fprintf(out, "%s: FAIL %v\n", path, err)
			errs = append(errs, err)
			continue
		}
		st := in.State()
		_, _ = fmt.Fprintf(out, "%s: ok, %d keys on %d lines\n", path, len(rec.Reports())/2, st.Line)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d scripts failed: %w", len(errs), len(c.Scripts), errors.Join(errs...))
	}
	return nil
}
