package sink

import (
	"bytes"
	"io"
	"sync"

	"github.com/gadgetkb/gadgetkb/keyboard"
)

// Recorder keeps every frame in memory. It backs dry runs.
type Recorder struct {
	mu     sync.Mutex
	frames [][]byte
	opens  int
}

func (r *Recorder) Open() (io.WriteCloser, error) {
	r.mu.Lock()
	r.opens++
	r.mu.Unlock()
	return nopCloser{recorderWriter{r}}, nil
}

func (r *Recorder) String() string { return "recorder:" }

// Frames returns copies of all written frames in order.
func (r *Recorder) Frames() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.frames))
	for i, f := range r.frames {
		out[i] = bytes.Clone(f)
	}
	return out
}

// Reports returns the frames that are exactly one report long.
func (r *Recorder) Reports() []keyboard.Report {
	var out []keyboard.Report
	for _, f := range r.Frames() {
		if len(f) == keyboard.ReportSize {
			out = append(out, keyboard.Report(f))
		}
	}
	return out
}

// Opens returns how often the recorder was opened.
func (r *Recorder) Opens() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens
}

type recorderWriter struct{ r *Recorder }

func (w recorderWriter) Write(p []byte) (int, error) {
	w.r.mu.Lock()
	defer w.r.mu.Unlock()
	w.r.frames = append(w.r.frames, bytes.Clone(p))
	return len(p), nil
}
