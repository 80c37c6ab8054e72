package sink

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Gadget writes reports to a USB gadget HID function (/dev/hidgN). Each
// report is a single write(2) so the kernel queues it as one interrupt
// transfer.
type Gadget struct {
	Path string
}

func (g *Gadget) Open() (io.WriteCloser, error) {
	fd, err := unix.Open(g.Path, unix.O_WRONLY|unix.O_CLOEXEC|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: g.Path, Err: err}
	}
	return &fdWriter{fd: fd, path: g.Path}, nil
}

func (g *Gadget) String() string { return "gadget:" + g.Path }

type fdWriter struct {
	fd   int
	path string
}

func (w *fdWriter) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(w.fd, p)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, &os.PathError{Op: "write", Path: w.path, Err: err}
		}
		if n < len(p) {
			return n, io.ErrShortWrite
		}
		return n, nil
	}
}

func (w *fdWriter) Close() error {
	if err := unix.Close(w.fd); err != nil {
		return &os.PathError{Op: "close", Path: w.path, Err: err}
	}
	return nil
}

// IsHostDown reports whether err means the gadget is not connected to, or
// not yet configured by, a USB host.
func IsHostDown(err error) bool {
	return errors.Is(err, unix.ESHUTDOWN) || errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ENODEV)
}
