package script

import (
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"
	"time"
)

const delayDirective = "DELAY"

// maxDelaySeconds bounds the delays a time.Duration can hold.
var maxDelaySeconds = float64(math.MaxInt64) / float64(time.Second)

// Lexer splits one script line into tokens. It scans lazily: each call to
// Next consumes just enough input for one token, so a caller acting on
// tokens as they come sees the keys before a later error on the same line.
type Lexer struct {
	src     []rune
	cur     int
	line    int
	inQuote bool
	done    bool
}

// NewLexer returns a lexer for a single, already trimmed, line. lineNo is
// only used for positions and diagnostics.
func NewLexer(line string, lineNo int) *Lexer {
	return &Lexer{src: []rune(line), line: lineNo}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) tok(kind TokenKind, col int) Token {
	return Token{Kind: kind, Line: l.line, Col: col + 1}
}

func (l *Lexer) err(col int, format string, args ...any) error {
	l.done = true
	return &SyntaxError{Line: l.line, Col: col + 1, Msg: fmt.Sprintf(format, args...)}
}

// Next returns the next token. At the end of the line, after a comment or
// after an error it returns an EOF token.
func (l *Lexer) Next() (Token, error) {
	if l.done {
		return l.tok(EOF, l.cur), nil
	}
	if l.cur == 0 && !l.inQuote && strings.HasPrefix(string(l.src), delayDirective) {
		l.done = true
		return l.scanDelay()
	}
	if l.inQuote {
		return l.scanQuoted()
	}
	if l.isAtEnd() {
		l.done = true
		return l.tok(EOF, l.cur), nil
	}

	start := l.cur
	c := l.src[l.cur]
	switch {
	case c == '<':
		return l.scanSpecial()
	case c == '"':
		l.cur++
		l.inQuote = true
		return l.scanQuoted()
	case c == '#':
		l.done = true
		return l.tok(Comment, start), nil
	case c == ' ' || c == '\t':
		l.cur++
		return l.tok(Whitespace, start), nil
	default:
		l.cur++
		t := l.tok(Illegal, start)
		t.Rune = c
		return t, l.err(start, "found '%c' outside of <> and \"\"", c)
	}
}

// scanSpecial reads a <NAME> span.
func (l *Lexer) scanSpecial() (Token, error) {
	start := l.cur
	l.cur++
	for !l.isAtEnd() && l.src[l.cur] != '>' {
		l.cur++
	}
	if l.isAtEnd() {
		return Token{}, l.err(start, "missing closing '>'")
	}
	t := l.tok(SpecialKey, start)
	t.Text = string(l.src[start+1 : l.cur])
	l.cur++
	return t, nil
}

// scanQuoted returns the next character inside a "..." span. A backslash
// makes the following character literal, so \" types a double quote.
func (l *Lexer) scanQuoted() (Token, error) {
	if l.isAtEnd() {
		return Token{}, l.err(l.cur, "missing closing '\"'")
	}
	start := l.cur
	c := l.src[l.cur]
	l.cur++
	switch c {
	case '"':
		l.inQuote = false
		return l.Next()
	case '\\':
		if l.isAtEnd() {
			return Token{}, l.err(l.cur, "missing closing '\"'")
		}
		c = l.src[l.cur]
		l.cur++
	}
	t := l.tok(Literal, start)
	t.Rune = c
	return t, nil
}

// scanDelay parses a whole-line DELAY or DELAY=<seconds> directive.
func (l *Lexer) scanDelay() (Token, error) {
	rest := strings.TrimSpace(string(l.src[len(delayDirective):]))
	t := l.tok(Delay, 0)
	t.Text = rest
	l.cur = len(l.src)
	if rest == "" {
		return t, nil
	}
	if !strings.HasPrefix(rest, "=") {
		return Token{}, l.err(len(delayDirective), "expected '=' after DELAY, found '%s'", rest)
	}
	value := strings.TrimSpace(rest[1:])
	t.Text = value
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return Token{}, l.err(len(delayDirective), "'%s' not a number", value)
	}
	if secs < 0 {
		return Token{}, l.err(len(delayDirective), "'%s' must not be negative", value)
	}
	if secs >= maxDelaySeconds {
		return Token{}, l.err(len(delayDirective), "'%s' out of range", value)
	}
	t.Delay = time.Duration(secs * float64(time.Second))
	return t, nil
}

// Tokens iterates the remaining tokens, stopping after EOF, a comment or
// the first error.
func (l *Lexer) Tokens() iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for {
			t, err := l.Next()
			if err != nil {
				yield(t, err)
				return
			}
			if t.Kind == EOF {
				return
			}
			if !yield(t, nil) || t.Kind == Comment {
				return
			}
		}
	}
}

// Tokenize scans a whole line. On error the tokens scanned so far are
// returned together with it.
func Tokenize(line string, lineNo int) ([]Token, error) {
	var out []Token
	for t, err := range NewLexer(line, lineNo).Tokens() {
		if err != nil {
			if t.Kind == Illegal {
				out = append(out, t)
			}
			return out, err
		}
		out = append(out, t)
	}
	return out, nil
}
