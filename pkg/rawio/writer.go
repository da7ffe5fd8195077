// Package rawio implements the output path of mshell: complete,
// interruption-safe writes to raw file descriptors.
//
// Output is either fully delivered or fatal. A failed write other than an
// interrupted one terminates the process with status.Write, since the shell
// cannot reconcile a torn write with what it has already printed.
package rawio

import (
	"os"

	"golang.org/x/sys/unix"

	"src.elv.sh/mshell/pkg/logutil"
	"src.elv.sh/mshell/pkg/status"
)

var logger = logutil.GetLogger("[rawio] ")

// Writer writes to a file descriptor. The zero value is not usable; use
// NewWriter or NewFileWriter.
type Writer struct {
	fd   int
	exit func(int)
}

// NewWriter returns a Writer for the file descriptor. The exit function is
// called with status.Write when a write fails; if it is nil, os.Exit is used.
func NewWriter(fd int, exit func(int)) *Writer {
	if exit == nil {
		exit = os.Exit
	}
	return &Writer{fd, exit}
}

// NewFileWriter returns a Writer for the file descriptor of f. It puts the
// descriptor into blocking mode.
func NewFileWriter(f *os.File, exit func(int)) *Writer {
	return NewWriter(int(f.Fd()), exit)
}

// Fd returns the underlying file descriptor.
func (w *Writer) Fd() int { return w.fd }

// WriteAll writes all of p, retrying when the write is interrupted by a
// signal.
func (w *Writer) WriteAll(p []byte) {
	for len(p) > 0 {
		n, err := unix.Write(w.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil || n <= 0 {
			logger.Printf("write to fd %d failed: n=%d err=%v", w.fd, n, err)
			w.exit(status.Write)
			return
		}
		p = p[n:]
	}
}

// WriteString is like WriteAll, but takes a string.
func (w *Writer) WriteString(s string) (int, error) {
	w.WriteAll([]byte(s))
	return len(s), nil
}

// Write implements io.Writer. It never returns an error: when the underlying
// write fails, the exit function is called instead.
func (w *Writer) Write(p []byte) (int, error) {
	w.WriteAll(p)
	return len(p), nil
}
