package script

import (
	"fmt"
	"time"
)

// TokenKind is the kind of a script token.
type TokenKind int

const (
	EOF TokenKind = iota
	Literal
	SpecialKey
	Delay
	Comment
	Whitespace
	Illegal
)

var tokenKindNames = [...]string{
	EOF:        "EOF",
	Literal:    "Literal",
	SpecialKey: "SpecialKey",
	Delay:      "Delay",
	Comment:    "Comment",
	Whitespace: "Whitespace",
	Illegal:    "Illegal",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is one lexical unit of a script line.
type Token struct {
	Kind  TokenKind
	Text  string        // key name for SpecialKey, raw value for Delay
	Rune  rune          // character for Literal and Illegal
	Delay time.Duration // parsed value for Delay
	Line  int           // 1-based
	Col   int           // 1-based rune offset in the trimmed line
}

func (t Token) String() string {
	switch t.Kind {
	case Literal, Illegal:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Rune)
	case SpecialKey:
		return fmt.Sprintf("%s(<%s>)", t.Kind, t.Text)
	case Delay:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Delay)
	default:
		return t.Kind.String()
	}
}
