package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// RawLogger records every frame written to a keyboard endpoint.
type RawLogger interface {
	Log(sink string, data []byte)
}

// rawLogger implements RawLogger with thread-safe output.
type rawLogger struct {
	w   io.Writer
	mu  sync.Mutex
	now func() time.Time
}

// NewRaw creates a new RawLogger. If w is nil, the logger discards everything.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w, now: time.Now}
}

// Log emits a single line with timestamp, endpoint, frame kind and hex dump.
func (r *rawLogger) Log(sink string, data []byte) {
	if len(data) == 0 || r.w == nil {
		return
	}

	kind := "press"
	if isZero(data) {
		kind = "release"
	}

	var hexbuf strings.Builder
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			hexbuf.WriteByte(' ')
		}
		hexbuf.WriteByte(hexdigits[b>>4])
		hexbuf.WriteByte(hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s %s %-7s %d bytes, hex: %s\n",
		r.now().Format("2006/01/02 15:04:05.000"),
		sink,
		kind,
		len(data),
		hexbuf.String())

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}

func isZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
