package prog_test

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	. "src.elv.sh/mshell/pkg/prog"
	"src.elv.sh/mshell/pkg/prog/progtest"
)

func TestBadFlag(t *testing.T) {
	f := progtest.Setup(t)
	exit := f.Run(&testProgram{}, "-bad-flag")
	if exit != 2 {
		t.Errorf("exit %d, want 2", exit)
	}
	f.TestOutSnippet(t, 2, "flag provided but not defined: -bad-flag\nUsage:")
}

func TestHIsBadFlag(t *testing.T) {
	f := progtest.Setup(t)
	exit := f.Run(&testProgram{}, "-h")
	if exit != 2 {
		t.Errorf("exit %d, want 2", exit)
	}
	f.TestOutSnippet(t, 2, "flag provided but not defined: -h\nUsage:")
}

func TestHelp(t *testing.T) {
	f := progtest.Setup(t)
	p := &testProgram{}
	exit := f.Run(p, "-help")
	if exit != 0 {
		t.Errorf("exit %d, want 0", exit)
	}
	if p.ran {
		t.Errorf("program ran with -help")
	}
	f.TestOutSnippet(t, 1, "Usage: mshell [flags]")
}

func TestFlagsPassedToProgram(t *testing.T) {
	f := progtest.Setup(t)
	p := &testProgram{}
	f.Run(p, "-c", "-i", "-norc", "-rc", "my.yaml", "echo hi")

	wantFlags := &Flags{CodeInArg: true, Interactive: true, NoRc: true, RC: "my.yaml"}
	if diff := cmp.Diff(wantFlags, p.flags); diff != "" {
		t.Errorf("flags (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"echo hi"}, p.args); diff != "" {
		t.Errorf("args (-want +got):\n%s", diff)
	}
}

func TestLogFlag(t *testing.T) {
	f := progtest.Setup(t)
	f.Run(&testProgram{}, "-log", "log")
	if _, err := os.Stat("log"); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestBadUsageError(t *testing.T) {
	f := progtest.Setup(t)
	exit := f.Run(&testProgram{returnErr: BadUsage("lorem ipsum")})
	if exit != 2 {
		t.Errorf("exit %d, want 2", exit)
	}
	f.TestOutSnippet(t, 2, "lorem ipsum\nUsage:")
}

func TestExitError(t *testing.T) {
	f := progtest.Setup(t)
	if exit := f.Run(&testProgram{returnErr: Exit(3)}); exit != 3 {
		t.Errorf("exit %d, want 3", exit)
	}
	f.TestOut(t, 2, "")
}

func TestExitError_0(t *testing.T) {
	f := progtest.Setup(t)
	p := &testProgram{returnErr: Exit(0), writeOut: "out"}
	if exit := f.Run(p); exit != 0 {
		t.Errorf("exit %d, want 0", exit)
	}
	f.TestOut(t, 1, "out")
}

type testProgram struct {
	writeOut  string
	returnErr error

	ran   bool
	flags *Flags
	args  []string
}

func (p *testProgram) Run(fds [3]*os.File, f *Flags, args []string) error {
	p.ran, p.flags, p.args = true, f, args
	fds[1].WriteString(p.writeOut)
	return p.returnErr
}
