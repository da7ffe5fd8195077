package testutil

import (
	"io"
	"os"
)

// Pipe is an os.Pipe whose read end is drained in the background, so that
// writers never block.
type Pipe struct {
	R, W *os.File
	done chan []byte
}

// NewPipe creates a Pipe and starts draining it. Both ends are closed when the
// test finishes.
func NewPipe(c Cleanuper) *Pipe {
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	p := &Pipe{r, w, make(chan []byte, 1)}
	go func() {
		bs, _ := io.ReadAll(r)
		p.done <- bs
	}()
	c.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return p
}

// CloseAndRead closes the write end and returns everything that was written.
func (p *Pipe) CloseAndRead() string {
	p.W.Close()
	return string(<-p.done)
}
