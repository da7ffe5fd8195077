// Package executor runs pipelines: it spawns one process per stage, connects
// adjacent stages with pipes, applies redirections and registers the children
// with a jobs.Table.
package executor

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"syscall"

	"src.elv.sh/mshell/pkg/builtin"
	"src.elv.sh/mshell/pkg/errutil"
	"src.elv.sh/mshell/pkg/jobs"
	"src.elv.sh/mshell/pkg/logutil"
	"src.elv.sh/mshell/pkg/parse"
	"src.elv.sh/mshell/pkg/status"
)

var logger = logutil.GetLogger("[executor] ")

// Executor runs commands on behalf of the shell.
type Executor struct {
	jobs     *jobs.Table
	builtins builtin.Table
	bctx     *builtin.Context
	// Standard files inherited by children.
	files [3]*os.File
	// Error output of the shell itself.
	stderr io.Writer
	exit   func(int)

	// Hooks for tests.
	pipe     func() (*os.File, *os.File, error)
	lookPath func(string) (string, error)
	forkExec func(string, []string, *syscall.ProcAttr) (int, error)
}

// New creates an Executor. Children inherit files as their stdin, stdout and
// stderr; builtins write to stdout and stderr, and so does the shell when a
// command cannot be run. The exit function is called with one of the fatal
// statuses of the status package when a pipe or a process cannot be created;
// if it is nil, os.Exit is used.
func New(t *jobs.Table, files [3]*os.File, stdout, stderr io.Writer, exit func(int)) *Executor {
	if exit == nil {
		exit = os.Exit
	}
	bctx := builtin.NewContext(stdout, stderr)
	bctx.Exit = exit
	return &Executor{
		jobs: t, builtins: builtin.Default(), bctx: bctx,
		files: files, stderr: stderr, exit: exit,
		pipe: os.Pipe, lookPath: lookPath, forkExec: syscall.ForkExec,
	}
}

// Pipeline runs a pipeline. Children of a background pipeline are started in
// new sessions and are not tracked as foreground children.
//
// The caller must hold the lock of the jobs.Table, and usually waits for the
// foreground children with WaitForeground before releasing it.
//
// A pipeline of one command runs builtins in the shell process and does
// nothing if the command is empty. In a longer pipeline every stage is an
// external program, and an empty command is a syntax error that stops the
// whole pipeline from running.
func (ex *Executor) Pipeline(p parse.Pipeline, bg bool) {
	switch len(p) {
	case 0:
		return
	case 1:
		ex.single(p[0], bg)
		return
	}
	for _, c := range p {
		if len(c.Argv) == 0 {
			io.WriteString(ex.stderr, status.SyntaxError)
			return
		}
	}

	// Read end of the pipe from the previous stage.
	var prevRead *os.File
	defer func() { closeLogged(prevRead) }()
	for i, c := range p {
		stdin, stdout := ex.files[0], ex.files[1]
		if prevRead != nil {
			stdin = prevRead
		}
		var nextRead, write *os.File
		if i < len(p)-1 {
			var err error
			nextRead, write, err = ex.pipe()
			if err != nil {
				logger.Println("pipe:", err)
				io.WriteString(ex.stderr, status.PipeError)
				ex.exit(status.Pipe)
				return
			}
			stdout = write
		}
		fatal := !ex.spawn(c, stdin, stdout, bg)
		// The child has its own copies now. Closing the shell's copies as soon
		// as possible lets the readers see EOF when the writers exit.
		closeLogged(prevRead, write)
		prevRead = nextRead
		if fatal {
			return
		}
	}
}

func (ex *Executor) single(c *parse.Command, bg bool) {
	if len(c.Argv) == 0 {
		return
	}
	if fn, ok := ex.builtins.Lookup(c.Argv[0]); ok {
		st := fn(ex.bctx, c.Argv)
		logger.Printf("builtin %q returned %d", c.Argv[0], st)
		return
	}
	ex.spawn(c, ex.files[0], ex.files[1], bg)
}

// Spawns one external command. Failures to open redirections or to execute
// the program are reported and only affect this command. It returns false
// after a failure that is fatal to the shell.
func (ex *Executor) spawn(c *parse.Command, stdin, stdout *os.File, bg bool) bool {
	files := []*os.File{stdin, stdout, ex.files[2]}
	opened, ok := ex.openRedirs(c.Redirs, files)
	defer func() { closeLogged(opened...) }()
	if !ok {
		return true
	}

	path, err := ex.lookPath(c.Argv[0])
	if err != nil {
		logger.Println("search:", err)
		ex.reportFileError(c.Argv[0], err)
		return true
	}

	fds := make([]uintptr, len(files))
	for i, f := range files {
		fds[i] = f.Fd()
	}
	attr := &syscall.ProcAttr{
		Env:   os.Environ(),
		Files: fds,
		Sys:   &syscall.SysProcAttr{Setsid: bg},
	}
	pid, err := ex.forkExec(path, c.Argv, attr)
	if err == syscall.ENOEXEC {
		// An executable file without an interpreter line is a script.
		argv := append([]string{"sh", path}, c.Argv[1:]...)
		pid, err = ex.forkExec(fallbackShell, argv, attr)
	}
	if err != nil {
		logger.Printf("fork/exec %s: %v", path, err)
		switch {
		case isForkError(err):
			io.WriteString(ex.stderr, status.ForkError)
			ex.exit(status.Fork)
			return false
		case bg && err == syscall.EPERM:
			// EPERM is how setsid(2) fails. Only this stage is lost.
			io.WriteString(ex.stderr, status.SetsidError)
		default:
			ex.reportFileError(c.Argv[0], err)
		}
		return true
	}
	logger.Printf("spawned %d: %q, background %v", pid, c.Argv, bg)
	if !bg {
		ex.jobs.AddForeground(pid)
	}
	return true
}

// Opens the targets of redirections in order and puts them in place of the
// standard files they redirect; a later redirection of the same file wins. It
// returns the files it opened, and false if some target could not be opened.
func (ex *Executor) openRedirs(redirs []parse.Redir, files []*os.File) ([]*os.File, bool) {
	var opened []*os.File
	for _, r := range redirs {
		var (
			flag int
			dst  int
		)
		switch r.Kind {
		case parse.RedirInput:
			flag, dst = os.O_RDONLY, 0
		case parse.RedirOutput:
			flag, dst = os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 1
		case parse.RedirAppend:
			flag, dst = os.O_WRONLY|os.O_CREATE|os.O_APPEND, 1
		default:
			logger.Println("unknown redirection kind", r.Kind)
			continue
		}
		f, err := os.OpenFile(r.Path, flag, 0666)
		if err != nil {
			logger.Println("redirection:", err)
			ex.reportFileError(r.Path, err)
			return opened, false
		}
		opened = append(opened, f)
		files[dst] = f
	}
	return opened, true
}

// Writes a message like "name: no such file or directory".
func (ex *Executor) reportFileError(name string, err error) {
	var msg string
	switch {
	case errors.Is(err, fs.ErrNotExist):
		msg = status.NoSuchFile
	case errors.Is(err, fs.ErrPermission):
		msg = status.PermDenied
	default:
		msg = status.ExecError
	}
	io.WriteString(ex.stderr, name+msg)
}

// Reports whether an error from ForkExec means that no process could be
// created at all.
func isForkError(err error) bool {
	return err == syscall.EAGAIN || err == syscall.ENOMEM || err == syscall.ENOSYS
}

func closeLogged(files ...*os.File) {
	if err := errutil.CloseFiles(files...); err != nil {
		logger.Println("close:", err)
	}
}
