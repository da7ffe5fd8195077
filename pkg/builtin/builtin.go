// Package builtin implements the commands that run inside the shell process
// itself, either because they change the state of the shell or because they
// are too simple to warrant a process.
package builtin

import (
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"src.elv.sh/mshell/pkg/env"
	"src.elv.sh/mshell/pkg/logutil"
)

// ErrorStatus is the status of a builtin that failed.
const ErrorStatus = -1

var logger = logutil.GetLogger("[builtin] ")

// Func is the type of builtins. The first element of argv is the name the
// builtin was invoked with.
type Func func(ctx *Context, argv []string) int

// Context is the part of the shell that builtins can access.
type Context struct {
	Stdout io.Writer
	Stderr io.Writer
	// Terminates the shell.
	Exit func(int)
	// Sends a signal to a process.
	Kill func(pid int, sig syscall.Signal) error
}

// NewContext returns a Context that writes to the given writers, exits with
// os.Exit and sends signals with kill(2).
func NewContext(stdout, stderr io.Writer) *Context {
	return &Context{stdout, stderr, os.Exit, unix.Kill}
}

// Table maps names to builtins.
type Table map[string]Func

// Default returns a table of all the builtins of mshell.
func Default() Table {
	return Table{
		"exit":  exit,
		"lcd":   lcd,
		"lkill": lkill,
		"lls":   lls,
	}
}

// Lookup finds the builtin with the exact name.
func (t Table) Lookup(name string) (Func, bool) {
	f, ok := t[name]
	return f, ok
}

// Writes the error message shared by all builtins and returns ErrorStatus.
func fail(ctx *Context, argv []string, err error) int {
	if err != nil {
		logger.Printf("%s: %v", argv[0], err)
	}
	io.WriteString(ctx.Stderr, "Builtin "+argv[0]+" error.\n")
	return ErrorStatus
}

func exit(ctx *Context, argv []string) int {
	ctx.Exit(0)
	return 0
}

// lcd [dir]: changes the working directory to dir, or to $HOME when dir is
// not given.
func lcd(ctx *Context, argv []string) int {
	var dir string
	switch len(argv) {
	case 1:
		dir = os.Getenv(env.HOME)
	case 2:
		dir = argv[1]
	default:
		return fail(ctx, argv, nil)
	}
	if err := os.Chdir(dir); err != nil {
		return fail(ctx, argv, err)
	}
	return 0
}

// lkill [-signum] pid: sends a signal to a process; SIGTERM when no signal is
// given.
//
// The signal is written like an option, as in "lkill -9 1234". The argument
// is parsed as a number and negated, so "-9" means signal 9; a signal given
// without the dash therefore comes out negative and is refused by kill(2).
func lkill(ctx *Context, argv []string) int {
	if len(argv) != 2 && len(argv) != 3 {
		return fail(ctx, argv, nil)
	}
	sig := syscall.SIGTERM
	if len(argv) == 3 {
		n, err := strconv.Atoi(argv[1])
		if err != nil {
			return fail(ctx, argv, err)
		}
		sig = syscall.Signal(-n)
	}
	pid, err := strconv.Atoi(argv[len(argv)-1])
	if err != nil {
		return fail(ctx, argv, err)
	}
	if err := ctx.Kill(pid, sig); err != nil {
		return fail(ctx, argv, err)
	}
	return 0
}

// lls: lists the current directory, skipping names that start with a dot.
func lls(ctx *Context, argv []string) int {
	if len(argv) != 1 {
		return fail(ctx, argv, nil)
	}
	entries, err := os.ReadDir(".")
	if err != nil {
		return fail(ctx, argv, err)
	}
	var sb strings.Builder
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		sb.WriteString(entry.Name())
		sb.WriteByte('\n')
	}
	io.WriteString(ctx.Stdout, sb.String())
	return 0
}
