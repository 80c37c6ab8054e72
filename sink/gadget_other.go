//go:build !linux

package sink

import (
	"io"
	"os"
)

// Gadget writes reports to a HID device node. USB gadgets only exist on
// Linux; elsewhere this is a plain write-only open.
type Gadget struct {
	Path string
}

func (g *Gadget) Open() (io.WriteCloser, error) {
	return os.OpenFile(g.Path, os.O_WRONLY, 0)
}

func (g *Gadget) String() string { return "gadget:" + g.Path }

// IsHostDown is always false off Linux.
func IsHostDown(err error) bool { return false }
