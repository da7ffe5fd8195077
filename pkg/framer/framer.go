// Package framer splits a raw byte stream into newline-terminated command
// lines.
//
// A Framer survives short reads, reads interrupted by signals and lines that
// are too long: an over-length line is reported as soon as it is detected,
// and the rest of it is discarded up to and including the next newline, so
// the following lines are framed correctly and the buffer stays bounded.
package framer

import (
	"bytes"
	"errors"
	"io"
	"syscall"

	"src.elv.sh/mshell/pkg/logutil"
)

// MaxLineLength is the maximum number of bytes in a line, not counting the
// terminating newline.
const MaxLineLength = 2048

// Size of each read. A full over-length line and one more read always fit in
// twice this much.
const readSize = MaxLineLength + 1

var logger = logutil.GetLogger("[framer] ")

// Framer reads lines from an io.Reader. Successive calls to Scan step through
// the lines; the sequence ends at the end of input or on a read error. It is
// used like bufio.Scanner.
type Framer struct {
	r         io.Reader
	onTooLong func()

	// buf[start:] is not consumed yet; buf[start:pos] has been scanned and
	// contains no newline.
	buf   []byte
	start int
	pos   int
	eof   bool

	line []byte
	err  error
}

// New creates a Framer reading from r. The onTooLong callback, if not nil, is
// called once for each line exceeding MaxLineLength, as soon as it is
// detected.
func New(r io.Reader, onTooLong func()) *Framer {
	return &Framer{r: r, onTooLong: onTooLong, buf: make([]byte, 0, 2*readSize)}
}

// Scan advances to the next line, which is then available through Text. It
// returns false when there are no more lines; Err then returns the read error
// that stopped the scan, if any.
//
// When the input ends with a partial line, a newline is assumed and the
// partial line is the last line.
func (f *Framer) Scan() bool {
	if f.err != nil {
		return false
	}
	for {
		for f.pos < len(f.buf) {
			if f.pos-f.start > MaxLineLength {
				logger.Printf("line longer than %d bytes", MaxLineLength)
				if f.onTooLong != nil {
					f.onTooLong()
				}
				if !f.discardLine() {
					return false
				}
				continue
			}
			if f.buf[f.pos] == '\n' {
				f.line = f.buf[f.start:f.pos]
				f.pos++
				f.start = f.pos
				return true
			}
			f.pos++
		}
		if f.eof {
			if f.start == len(f.buf) {
				return false
			}
			f.buf = append(f.buf, '\n')
			continue
		}
		if !f.fill() {
			return false
		}
	}
}

// Text returns the most recent line found by Scan, without the newline. The
// string is a copy and stays valid after further calls to Scan.
func (f *Framer) Text() string { return string(f.line) }

// Err returns the first read error encountered, or nil if the input simply
// ended.
func (f *Framer) Err() error { return f.err }

// Discards input up to and including the next newline. It returns false if
// the input ends or a read fails before a newline is found.
func (f *Framer) discardLine() bool {
	for {
		if i := bytes.IndexByte(f.buf[f.pos:], '\n'); i >= 0 {
			f.pos += i + 1
			f.start = f.pos
			return true
		}
		// Nothing buffered is worth keeping.
		f.buf = f.buf[:0]
		f.start, f.pos = 0, 0
		if f.eof || !f.fill() {
			return false
		}
		if f.eof && len(f.buf) == 0 {
			return false
		}
	}
}

// Compacts the buffer and reads once more, appending to the buffer. It
// returns false on a read error. Interrupted reads are retried.
func (f *Framer) fill() bool {
	if f.start > 0 {
		n := copy(f.buf, f.buf[f.start:])
		f.buf = f.buf[:n]
		f.pos -= f.start
		f.start = 0
	}
	if cap(f.buf)-len(f.buf) < readSize {
		newBuf := make([]byte, len(f.buf), len(f.buf)+2*readSize)
		copy(newBuf, f.buf)
		f.buf = newBuf
	}
	for {
		n, err := f.r.Read(f.buf[len(f.buf) : len(f.buf)+readSize])
		f.buf = f.buf[:len(f.buf)+n]
		switch {
		case err == nil:
			return true
		case errors.Is(err, syscall.EINTR):
			if n > 0 {
				return true
			}
			continue
		case err == io.EOF:
			f.eof = true
			return true
		default:
			f.err = err
			return false
		}
	}
}
