package sink

import (
	"io"
	"os"
)

// File writes reports to a regular file. Without Append the file is
// truncated on every Open, like reopening a device node in "w" mode;
// Append keeps every report, which is what report dumps and tests want.
type File struct {
	Path   string
	Append bool
}

func (f *File) Open() (io.WriteCloser, error) {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if f.Append {
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	return os.OpenFile(f.Path, flag, 0o644)
}

func (f *File) String() string {
	if f.Append {
		return "append:" + f.Path
	}
	return "file:" + f.Path
}
