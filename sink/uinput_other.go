//go:build !linux

package sink

import (
	"errors"
	"io"
)

var errNoUinput = errors.New("uinput sinks are only available on linux")

// Uinput is a Linux uinput virtual keyboard; unavailable on this platform.
type Uinput struct {
	Name string
}

func (u *Uinput) Open() (io.WriteCloser, error) { return nil, errNoUinput }
func (u *Uinput) String() string                { return "uinput:" + u.Name }
func (u *Uinput) Close() error                  { return nil }
