package script

import (
	"fmt"
	"path/filepath"
)

// SyntaxError is a malformed script line: an unterminated "..." or <...>
// span, a bare character outside of them, or an unparsable DELAY value.
type SyntaxError struct {
	File string
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return location(e.File, e.Line) + e.Msg
}

// TranslateError is a key the US table has no usage for.
type TranslateError struct {
	File string
	Line int
	Col  int
	Err  error
}

func (e *TranslateError) Error() string {
	return location(e.File, e.Line) + e.Err.Error()
}

func (e *TranslateError) Unwrap() error { return e.Err }

// FileError is a script source that could not be opened or read.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func location(file string, line int) string {
	if file == "" {
		return fmt.Sprintf("error on line %d: ", line)
	}
	if abs, err := filepath.Abs(file); err == nil && file != stdinName {
		file = abs
	}
	return fmt.Sprintf("error in file %s on line %d: ", file, line)
}
