//go:build unix

package shell

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"src.elv.sh/mshell/pkg/sys"
)

// Starts relaying signals the shell handles itself, and returns a function to
// stop it. SIGINT is caught and dropped: the shell survives ^C, while its
// children, which start with the default disposition, are interrupted.
func handleSignals(stderr io.Writer) func() {
	sigCh := sys.NotifySignals(syscall.SIGINT, syscall.SIGUSR1)
	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case sig := <-sigCh:
				logger.Println("signal", sys.SignalName(sig.(syscall.Signal)))
				handleSignal(sig, stderr)
			case <-stop:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(stop)
		<-stopped
	}
}

func handleSignal(sig os.Signal, stderr io.Writer) {
	if sig == syscall.SIGUSR1 {
		io.WriteString(stderr, sys.DumpStack())
	}
}
