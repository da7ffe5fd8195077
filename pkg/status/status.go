// Package status keeps the exit statuses of mshell and the messages printed
// right before the shell or one of its children dies.
//
// Each internally fatal condition has its own exit status, so that the
// cause can be read off the exit status of the process alone.
package status

// Exit statuses.
const (
	OK = 0
	// BadUsage is returned when the command-line flags are invalid.
	BadUsage = 2

	// Write is used when writing user-visible output fails.
	Write = 40
	// Setsid is used when a background child cannot start a new session.
	Setsid = 41
	// Wait is used when reaping children fails for a reason other than
	// there being no children.
	Wait = 42
	// Read is used when reading commands fails.
	Read = 43
	// Open is the status of a pipeline stage whose redirection target
	// cannot be opened.
	Open = 44
	// Fork is used when a child process cannot be created.
	Fork = 46
	// Fstat is used when stdin cannot be inspected at startup.
	Fstat = 47
	// Pipe is used when a pipe cannot be created.
	Pipe = 48

	// ExecFailure is the status of a command that cannot be executed.
	ExecFailure = 127
)

// Messages written to stderr.
const (
	SyntaxError   = "Syntax error.\n"
	ForkError     = "fork() FAILED. Exiting...\n"
	PipeError     = "pipe() FAILED. Exiting...\n"
	FstatError    = "fstat() FAILED. Exiting...\n"
	SetsidError   = "setsid() FAILED.\n"
	NoSuchFile    = ": no such file or directory\n"
	PermDenied    = ": permission denied\n"
	ExecError     = ": exec error\n"
	DefaultPrompt = "$ "
)
