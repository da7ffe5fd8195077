package jobs

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// StartReaper starts a goroutine that calls Reap every time a SIGCHLD is
// received, and reaps once right away. It returns a function that stops the
// goroutine and waits for it to finish.
func (t *Table) StartReaper() func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGCHLD)
	stopRelay := t.relay(sigCh)
	return func() {
		stopRelay()
		signal.Stop(sigCh)
	}
}

// Calls Reap for each value received from the channel until stopped.
func (t *Table) relay(sigCh <-chan os.Signal) func() {
	// Closed in the stop function to request the relaying goroutine to stop.
	stop := make(chan struct{})
	// Closed in the relaying goroutine to signal that it has stopped.
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		t.Reap()
		for {
			select {
			case <-sigCh:
				t.Reap()
			case <-stop:
				return
			}
		}
	}()

	return func() {
		close(stop)
		<-stopped
	}
}
