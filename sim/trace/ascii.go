package trace

import (
	"bufio"
	"fmt"
	"os"
)

// AsciiWriter writes one line per PHY event to a single text file.
type AsciiWriter struct {
	path string
	file *os.File
	buf  *bufio.Writer
	err  error
}

// NewAsciiWriter creates path.
func NewAsciiWriter(path string) (*AsciiWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error creating ascii trace: %w", err)
	}
	return &AsciiWriter{path: path, file: f, buf: bufio.NewWriter(f)}, nil
}

// Path returns the file being written.
func (a *AsciiWriter) Path() string { return a.path }

// Write appends r. The first error sticks and is returned by Close.
func (a *AsciiWriter) Write(r FrameRecord) {
	if a.err != nil {
		return
	}
	if _, err := a.buf.WriteString(r.Line() + "\n"); err != nil {
		a.err = fmt.Errorf("error writing to %s: %w", a.path, err)
	}
}

// Close flushes buffered lines and closes the file.
func (a *AsciiWriter) Close() error {
	if a.err == nil {
		if err := a.buf.Flush(); err != nil {
			a.err = fmt.Errorf("error flushing %s: %w", a.path, err)
		}
	}
	cerr := a.file.Close()
	if a.err != nil {
		return a.err
	}
	return cerr
}
