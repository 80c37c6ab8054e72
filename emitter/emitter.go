// Package emitter writes key presses to a keyboard sink: a press report
// followed by the all-zero release report, retrying while the sink is
// unavailable.
package emitter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gadgetkb/gadgetkb/internal/log"
	"github.com/gadgetkb/gadgetkb/keyboard"
	"github.com/gadgetkb/gadgetkb/sink"
)

// ErrConnect is returned once the retry budget for a key is used up.
var ErrConnect = errors.New("could not connect to host")

// Config controls retries and sink lifetime.
type Config struct {
	Timeout       int           `help:"Attempts to write a key before giving up" default:"20" env:"GADGETKB_TIMEOUT"`
	RetryInterval time.Duration `help:"Wait between attempts" default:"1s" env:"GADGETKB_RETRY_INTERVAL"`
	HoldOpen      bool          `help:"Keep the sink open for the whole run instead of reopening it per key" env:"GADGETKB_HOLD_OPEN"`
}

// DefaultConfig mirrors the flag defaults.
func DefaultConfig() Config {
	return Config{Timeout: 20, RetryInterval: time.Second}
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithSleep replaces time.Sleep between attempts.
func WithSleep(f func(time.Duration)) Option {
	return func(e *Emitter) { e.sleep = f }
}

// Emitter sends key events to a sink. It is not safe for concurrent use.
type Emitter struct {
	sink   sink.Sink
	cfg    Config
	logger *slog.Logger
	raw    log.RawLogger
	sleep  func(time.Duration)

	held io.WriteCloser
}

// New returns an Emitter for s. A nil logger uses slog.Default and a nil
// raw logger discards frames.
func New(s sink.Sink, cfg Config, logger *slog.Logger, raw log.RawLogger, opts ...Option) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	if cfg.Timeout < 1 {
		cfg.Timeout = 1
	}
	e := &Emitter{
		sink:   s,
		cfg:    cfg,
		logger: logger.With("sink", s.String()),
		raw:    raw,
		sleep:  time.Sleep,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Send writes press and then the release report. A failed open or write
// is retried every RetryInterval until Timeout attempts were made. Once
// the press went out only the release is retried, so the endpoint never
// sees two presses in a row.
func (e *Emitter) Send(press keyboard.Report) error {
	frames := [2][]byte{press.BuildReport(), keyboard.Release.BuildReport()}
	next := 0

	for attempt := 1; ; attempt++ {
		err := e.write(frames[:], &next)
		if err == nil {
			return nil
		}
		e.logger.Warn("can't connect",
			"attempt", attempt,
			"of", e.cfg.Timeout,
			"host_down", sink.IsHostDown(err),
			"error", err)
		if attempt >= e.cfg.Timeout {
			e.logger.Error("giving up on key", "attempts", attempt, "usage", press.Usage())
			return fmt.Errorf("%w via %s after %d attempts: %w", ErrConnect, e.sink, attempt, err)
		}
		e.sleep(e.cfg.RetryInterval)
	}
}

// write sends frames[*next:] and advances *next past every frame written.
func (e *Emitter) write(frames [][]byte, next *int) error {
	w, err := e.acquire()
	if err != nil {
		return err
	}
	for *next < len(frames) {
		if _, err := w.Write(frames[*next]); err != nil {
			e.drop(w)
			return err
		}
		e.raw.Log(e.sink.String(), frames[*next])
		*next++
	}
	if !e.cfg.HoldOpen {
		if err := w.Close(); err != nil {
			e.logger.Warn("closing sink", "error", err)
		}
	}
	return nil
}

func (e *Emitter) acquire() (io.WriteCloser, error) {
	if e.held != nil {
		return e.held, nil
	}
	w, err := e.sink.Open()
	if err != nil {
		return nil, err
	}
	if e.cfg.HoldOpen {
		e.held = w
	}
	return w, nil
}

// drop closes a writer that failed; the next attempt reopens the sink.
func (e *Emitter) drop(w io.WriteCloser) {
	_ = w.Close()
	e.held = nil
}

// Close releases a held writer and the sink itself if it owns resources
// across opens (uinput device, VIIPER keyboard).
func (e *Emitter) Close() error {
	var errs []error
	if e.held != nil {
		errs = append(errs, e.held.Close())
		e.held = nil
	}
	if c, ok := e.sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
