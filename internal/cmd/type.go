package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gadgetkb/gadgetkb/emitter"
	"github.com/gadgetkb/gadgetkb/internal/log"
	"github.com/gadgetkb/gadgetkb/keyboard"
	"github.com/gadgetkb/gadgetkb/script"
	"github.com/gadgetkb/gadgetkb/sink"

	"golang.org/x/term"
)

const stdinArg = "-"

type Type struct {
	Sink           string         `help:"Keyboard endpoint: gadget:PATH, file:PATH, append:PATH, uinput:NAME, viiper://[pass@]host:port[/bus] or null:" default:"gadget:/dev/hidg0" env:"GADGETKB_SINK"`
	ViiperPassword string         `help:"VIIPER API password, used when the sink URI has none" env:"GADGETKB_VIIPER_PASSWORD"`
	Emitter        emitter.Config `embed:""`
	Delay          time.Duration  `help:"Delay after every key until the script sets one" default:"0s" env:"GADGETKB_DELAY"`
	Scripts        []string       `arg:"" optional:"" name:"script" help:"Script files to type, - reads stdin"`

	stdin       io.Reader
	stdout      io.Writer
	interactive func() bool
}

// Run is called by Kong when the type command is executed.
func (t *Type) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return t.TypeScripts(ctx, logger, rawLogger)
}

// TypeScripts types every script in order and stops at the first error.
func (t *Type) TypeScripts(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) (err error) {
	s, err := t.openSink(logger)
	if err != nil {
		return err
	}
	em := emitter.New(s, t.Emitter, logger, rawLogger)
	defer func() {
		if cerr := em.Close(); cerr != nil {
			logger.Warn("releasing sink", "sink", s.String(), "error", cerr)
		}
	}()

	in := script.New(ctxEmitter{ctx: ctx, em: em},
		script.WithLogger(logger),
		script.WithDelay(t.Delay))

	scripts := t.Scripts
	if len(scripts) == 0 {
		scripts = []string{stdinArg}
	}
	logger.Info("typing", "sink", s.String(), "scripts", len(scripts))

	for _, path := range scripts {
		start := time.Now()
		switch {
		case path != stdinArg:
			err = in.RunFile(path)
		case t.isInteractive():
			err = t.interactiveLoop(in, logger)
		default:
			err = in.Run("<stdin>", t.input())
		}
		if err != nil {
			return err
		}
		logger.Info("script done", "script", path, "took", time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// interactiveLoop types stdin line by line. Script errors are reported and
// the session continues; an unreachable sink ends it.
func (t *Type) interactiveLoop(in *script.Interpreter, logger *slog.Logger) error {
	out := t.output()
	in.Reset("")
	sc := script.NewLineScanner(t.input())
	for {
		_, _ = fmt.Fprint(out, "gadgetkb> ")
		if !sc.Scan() {
			_, _ = fmt.Fprintln(out)
			return sc.Err()
		}
		err := in.Exec(sc.Text())
		switch {
		case err == nil:
		case errors.Is(err, emitter.ErrConnect), errors.Is(err, context.Canceled):
			return err
		default:
			logger.Error("line skipped", "error", err)
		}
	}
}

func (t *Type) openSink(logger *slog.Logger) (sink.Sink, error) {
	s, err := sink.Parse(t.Sink)
	if err != nil {
		return nil, err
	}
	if v, ok := s.(*sink.Viiper); ok {
		if v.Password == "" {
			v.Password = t.ViiperPassword
		}
		v.Logger = logger
	}
	return s, nil
}

func (t *Type) isInteractive() bool {
	if t.interactive != nil {
		return t.interactive()
	}
	if t.stdin != nil {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func (t *Type) input() io.Reader {
	if t.stdin != nil {
		return t.stdin
	}
	return os.Stdin
}

func (t *Type) output() io.Writer {
	if t.stdout != nil {
		return t.stdout
	}
	return os.Stdout
}

// ctxEmitter refuses further keys once ctx is done, so an interrupt stops
// typing between keys and the sink is still released.
type ctxEmitter struct {
	ctx context.Context
	em  *emitter.Emitter
}

func (c ctxEmitter) Send(press keyboard.Report) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	return c.em.Send(press)
}
