// Package progtest provides a framework for testing subprograms.
//
// The entry point is Setup, which creates a temporary directory and pipes for
// the standard files of the program. The test feeds the program's stdin with
// FeedIn, runs the program with the files from Fds, and checks what it
// printed with TestOut or TestOutSnippet.
package progtest

import (
	"io"
	"os"
	"strings"
	"testing"

	"src.elv.sh/mshell/pkg/prog"
	"src.elv.sh/mshell/pkg/testutil"
)

// Fixture is a test fixture.
type Fixture struct {
	pipes [3]*pipe
	// Set when stdin is a terminal.
	tty bool
}

// Setup sets up a test fixture. The working directory is changed to a
// temporary directory for the duration of the test.
func Setup(t *testing.T) *Fixture {
	testutil.InTempDir(t)
	f := &Fixture{pipes: [3]*pipe{makePipe(), makePipe().drain(), makePipe().drain()}}
	t.Cleanup(f.cleanup)
	return f
}

// Fds returns the file descriptors in the fixture.
func (f *Fixture) Fds() [3]*os.File {
	return [3]*os.File{f.pipes[0].r, f.pipes[1].w, f.pipes[2].w}
}

// FeedIn feeds input to the standard input and ends it, so that the program
// sees the end of input after consuming it. On a terminal the input is ended
// by typing ^D, which only works at the beginning of a line.
func (f *Fixture) FeedIn(s string) {
	if f.tty {
		s += "\x04"
	}
	_, err := f.pipes[0].w.WriteString(s)
	if err != nil {
		panic(err)
	}
	if !f.tty {
		f.pipes[0].w.Close()
		f.pipes[0].wClosed = true
	}
}

// TestOut tests that the output on the given FD matches the given text.
func (f *Fixture) TestOut(t *testing.T, fd int, wantOut string) {
	t.Helper()
	if out := f.pipes[fd].get(); out != wantOut {
		t.Errorf("got out %q, want %q", out, wantOut)
	}
}

// TestOutSnippet tests that the output on the given FD contains the given
// text.
func (f *Fixture) TestOutSnippet(t *testing.T, fd int, wantOutSnippet string) {
	t.Helper()
	if err := f.pipes[fd].get(); !strings.Contains(err, wantOutSnippet) {
		t.Errorf("got err %q, want string containing %q", err, wantOutSnippet)
	}
}

func (f *Fixture) cleanup() {
	for _, p := range f.pipes {
		p.close()
	}
}

type pipe struct {
	r, w             *os.File
	rClosed, wClosed bool
	saved            *string
	done             chan string
}

func makePipe() *pipe {
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	return &pipe{r: r, w: w}
}

// Starts draining the read end. Output pipes are drained as soon as they are
// created, so that a program writing a lot never blocks.
func (p *pipe) drain() *pipe {
	p.done = make(chan string, 1)
	go func() {
		b, _ := io.ReadAll(p.r)
		p.done <- string(b)
	}()
	return p
}

func (p *pipe) get() string {
	if p.saved != nil {
		return *p.saved
	}
	if !p.wClosed {
		p.w.Close()
		p.wClosed = true
	}
	var s string
	if p.done != nil {
		s = <-p.done
	} else {
		b, err := io.ReadAll(p.r)
		if err != nil {
			panic(err)
		}
		s = string(b)
	}
	p.saved = &s
	return s
}

func (p *pipe) close() {
	if !p.wClosed {
		p.w.Close()
		p.wClosed = true
	}
	if !p.rClosed {
		p.r.Close()
		p.rClosed = true
	}
}

// Run is a shorthand for calling prog.Run with the files of the fixture.
func (f *Fixture) Run(p prog.Program, args ...string) int {
	return prog.Run(f.Fds(), append([]string{"mshell"}, args...), p)
}
