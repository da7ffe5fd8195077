// Package sys provides system utilities used by mshell.
package sys

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

const (
	sigsChanBufferSize   = 32
	dumpStackBufSizeInit = 8192
)

// IsATTY determines whether the given file is a terminal.
func IsATTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NotifySignals returns a buffered channel on which the given signals are
// delivered.
//
// Signals relayed this way are caught rather than ignored, so processes
// started afterwards begin with the default disposition for them.
func NotifySignals(sigs ...os.Signal) chan os.Signal {
	sigCh := make(chan os.Signal, sigsChanBufferSize)
	signal.Notify(sigCh, sigs...)
	return sigCh
}

// SignalName returns the name of a signal, like "SIGTERM", or the empty string
// if the signal number is unknown.
func SignalName(sig syscall.Signal) string {
	return unix.SignalName(sig)
}

// DumpStack returns the stacks of all goroutines.
func DumpStack() string {
	buf := make([]byte, dumpStackBufSizeInit)
	for {
		n := runtime.Stack(buf, true)
		if n < cap(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, cap(buf)*2)
	}
}
