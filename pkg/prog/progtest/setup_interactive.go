//go:build unix

package progtest

import (
	"testing"

	"github.com/creack/pty"

	"src.elv.sh/mshell/pkg/testutil"
)

// SetupInteractive is like Setup, but the standard input is the terminal side
// of a pseudo-terminal, as it is when mshell is run interactively. FeedIn
// types into the other side.
func SetupInteractive(t *testing.T) *Fixture {
	testutil.InTempDir(t)
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skip("pty not available:", err)
	}
	in := &pipe{r: tty, w: ptmx}
	f := &Fixture{pipes: [3]*pipe{in, makePipe().drain(), makePipe().drain()}, tty: true}
	t.Cleanup(f.cleanup)
	return f
}
