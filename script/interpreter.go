// Package script implements the keystroke script language: a line based
// lexer and an interpreter that turns each line into HID key events.
//
// Script syntax:
//
//	# comment until end of line
//	DELAY = 0.1            seconds to wait after every key
//	"Hello world!"         type text, \" types a double quote
//	<F2> <ENTER>           special keys
//	<SHIFT_R> "abc" <SHIFT_R>
//	                       modifiers toggle on and off
package script

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gadgetkb/gadgetkb/keyboard"
)

const stdinName = "<stdin>"

// KeyEmitter sends one key press (and its release) to the keyboard endpoint.
type KeyEmitter interface {
	Send(press keyboard.Report) error
}

// State is the interpreter state of a single run.
type State struct {
	Modifier keyboard.Modifier // latched by a modifier toggle, ModNone if none
	Delay    time.Duration     // applied after every sent key
	Line     int               // last line read, 1-based
}

// KeyEvent describes a key that was sent.
type KeyEvent struct {
	Key      string
	Code     keyboard.KeyCode
	Modifier keyboard.Modifier // modifier actually sent with the key
	Line     int
	Col      int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger used for per-key debug output.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// WithSleep replaces time.Sleep for the inter-key delay.
func WithSleep(f func(time.Duration)) Option {
	return func(in *Interpreter) { in.sleep = f }
}

// WithObserver registers a callback invoked after every sent key.
func WithObserver(f func(KeyEvent)) Option {
	return func(in *Interpreter) { in.observer = f }
}

// WithDelay sets the inter-key delay a run starts with.
func WithDelay(d time.Duration) Option {
	return func(in *Interpreter) { in.initialDelay = d }
}

// Interpreter executes scripts against a KeyEmitter. One run executes at a
// time; concurrent calls are serialized.
type Interpreter struct {
	emitter      KeyEmitter
	logger       *slog.Logger
	sleep        func(time.Duration)
	observer     func(KeyEvent)
	initialDelay time.Duration

	mu    sync.Mutex
	file  string
	state State
}

// New returns an Interpreter sending keys through em.
func New(em KeyEmitter, opts ...Option) *Interpreter {
	in := &Interpreter{
		emitter: em,
		logger:  slog.Default(),
		sleep:   time.Sleep,
	}
	for _, o := range opts {
		o(in)
	}
	in.state.Delay = in.initialDelay
	return in
}

// State returns a copy of the current state.
func (in *Interpreter) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// Reset starts a new run for the named source with a fresh state.
func (in *Interpreter) Reset(file string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.reset(file)
}

func (in *Interpreter) reset(file string) {
	in.file = file
	in.state = State{Delay: in.initialDelay}
}

// Exec runs the next line of the current run, keeping the modifier and
// delay left by earlier lines.
func (in *Interpreter) Exec(line string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.exec(line)
}

// RunLines runs a whole script. file identifies the source in errors.
// The first error aborts the run.
func (in *Interpreter) RunLines(file string, lines iter.Seq[string]) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.reset(file)
	for line := range lines {
		if err := in.exec(line); err != nil {
			return err
		}
	}
	return nil
}

// Run runs the script read from r.
func (in *Interpreter) Run(file string, r io.Reader) error {
	sc := NewLineScanner(r)
	lines := func(yield func(string) bool) {
		for sc.Scan() {
			if !yield(sc.Text()) {
				return
			}
		}
	}
	if err := in.RunLines(file, lines); err != nil {
		return err
	}
	if err := sc.Err(); err != nil {
		return &FileError{File: file, Err: err}
	}
	return nil
}

// NewLineScanner returns a line scanner without a line length limit.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), math.MaxInt)
	return sc
}

// RunFile runs the script stored at path.
func (in *Interpreter) RunFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &FileError{File: path, Err: err}
	}
	defer f.Close()
	return in.Run(path, f)
}

func (in *Interpreter) exec(line string) error {
	in.state.Line++
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	for tok, err := range NewLexer(line, in.state.Line).Tokens() {
		if err != nil {
			var se *SyntaxError
			if errors.As(err, &se) {
				se.File = in.file
			}
			return err
		}
		switch tok.Kind {
		case Delay:
			in.state.Delay = tok.Delay
			in.logger.Debug("delay set", "line", tok.Line, "delay", tok.Delay)
		case SpecialKey:
			if mod, ok := keyboard.ModifierByName(tok.Text); ok {
				in.toggle(mod)
				continue
			}
			if err := in.key(tok.Text, tok); err != nil {
				return err
			}
		case Literal:
			if err := in.key(string(tok.Rune), tok); err != nil {
				return err
			}
		}
	}
	return nil
}

// toggle latches mod, or clears it if it is already latched. Only one
// modifier is latched at a time.
func (in *Interpreter) toggle(mod keyboard.Modifier) {
	if in.state.Modifier == mod {
		in.state.Modifier = keyboard.ModNone
	} else {
		in.state.Modifier = mod
	}
	in.logger.Debug("modifier toggled", "line", in.state.Line, "modifier", in.state.Modifier)
}

// key resolves and sends one key, then waits the inter-key delay. A
// modifier implied by the key itself wins over the latched one for this
// key only.
func (in *Interpreter) key(name string, tok Token) error {
	kc, err := keyboard.Resolve(name)
	if err != nil {
		return &TranslateError{File: in.file, Line: tok.Line, Col: tok.Col, Err: err}
	}
	mod := kc.Modifier
	if mod == keyboard.ModNone {
		mod = in.state.Modifier
	}

	if err := in.emitter.Send(keyboard.Press(kc.Usage, mod)); err != nil {
		return err
	}
	in.logger.Debug("key sent", "line", tok.Line, "key", name, "usage", kc.Usage, "modifier", mod)
	if in.observer != nil {
		in.observer(KeyEvent{Key: name, Code: kc, Modifier: mod, Line: tok.Line, Col: tok.Col})
	}
	if in.state.Delay > 0 {
		in.sleep(in.state.Delay)
	}
	return nil
}
