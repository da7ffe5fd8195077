// Package shell is the entry point for the command loop of mshell: it reads
// lines, parses them and runs their pipelines, printing a prompt when the
// input is a terminal.
package shell

import (
	"io"
	"os"
	"strings"

	"src.elv.sh/mshell/pkg/executor"
	"src.elv.sh/mshell/pkg/framer"
	"src.elv.sh/mshell/pkg/jobs"
	"src.elv.sh/mshell/pkg/logutil"
	"src.elv.sh/mshell/pkg/parse"
	"src.elv.sh/mshell/pkg/prog"
	"src.elv.sh/mshell/pkg/rawio"
	"src.elv.sh/mshell/pkg/status"
	"src.elv.sh/mshell/pkg/sys"
)

var logger = logutil.GetLogger("[shell] ")

// Program is the shell subprogram.
type Program struct{}

// Run implements prog.Program.
func (Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	rc := &RC{}
	if !f.NoRc {
		path := f.RC
		if path == "" {
			var err error
			path, err = RCPath()
			if err != nil {
				io.WriteString(fds[2], "Warning: "+err.Error()+"\n")
			}
		}
		if path != "" {
			loaded, err := LoadRC(path)
			if err != nil {
				io.WriteString(fds[2], "Warning: "+err.Error()+"\n")
			} else {
				rc = loaded
			}
		}
	}
	if f.Log == "" && rc.Log != "" {
		if err := logutil.SetOutputFile(rc.Log); err != nil {
			io.WriteString(fds[2], "Warning: "+err.Error()+"\n")
		}
	}

	cfg := &Config{Prompt: rc.Prompt, Interactive: f.Interactive}
	if f.CodeInArg {
		if len(args) != 1 {
			return prog.BadUsage("-c requires exactly one argument")
		}
		cfg.Input = strings.NewReader(args[0])
		cfg.Interactive = false
	} else if len(args) > 0 {
		return prog.BadUsage("mshell does not run scripts; feed them on stdin")
	}
	return prog.Exit(Run(fds, cfg))
}

// Config keeps configuration for Run.
type Config struct {
	// The prompt; status.DefaultPrompt if empty.
	Prompt string
	// Whether to print prompts even if stdin is not a terminal.
	Interactive bool
	// Where to read lines from instead of stdin. Prompts are only printed when
	// Interactive is set.
	Input io.Reader
	// Called with a fatal exit status; os.Exit if nil.
	Exit func(int)
}

func (cfg *Config) prompt() string {
	if cfg.Prompt == "" {
		return status.DefaultPrompt
	}
	return cfg.Prompt
}

// Run runs the command loop until the input is exhausted and returns the exit
// status of the shell. Errors that the shell cannot recover from call the exit
// function of the Config instead.
func Run(fds [3]*os.File, cfg *Config) int {
	exit := cfg.Exit
	if exit == nil {
		exit = os.Exit
	}
	stdout := rawio.NewFileWriter(fds[1], exit)
	stderr := rawio.NewFileWriter(fds[2], exit)

	interactive := cfg.Interactive
	in := cfg.Input
	if in == nil {
		if _, err := fds[0].Stat(); err != nil {
			logger.Println("stat stdin:", err)
			stderr.WriteString(status.FstatError)
			return status.Fstat
		}
		in = fds[0]
		interactive = interactive || sys.IsATTY(fds[0].Fd())
	}
	logger.Println("interactive:", interactive)

	t := jobs.NewTable(nil, exit)
	stopReaper := t.StartReaper()
	defer stopReaper()
	stopSignals := handleSignals(stderr)
	defer stopSignals()

	ex := executor.New(t, fds, stdout, stderr, exit)
	fr := framer.New(in, func() { stderr.WriteString(status.SyntaxError) })
	for {
		if interactive {
			t.ReportCompletions(stdout)
			stdout.WriteString(cfg.prompt())
		}
		if !fr.Scan() {
			if err := fr.Err(); err != nil {
				logger.Println("read:", err)
				return status.Read
			}
			return status.OK
		}
		line, err := parse.Parse(fr.Text())
		if err != nil {
			logger.Println(err)
			stderr.WriteString(status.SyntaxError)
			continue
		}
		runLine(t, ex, line)
	}
}

// Runs the pipelines of a line one after another, waiting for the foreground
// children of each.
func runLine(t *jobs.Table, ex *executor.Executor, line *parse.Line) {
	for _, p := range line.Pipelines {
		runPipeline(t, ex, p, line.Background)
	}
}

// The lock is released even when the exit function does not return.
func runPipeline(t *jobs.Table, ex *executor.Executor, p parse.Pipeline, bg bool) {
	t.Lock()
	defer t.Unlock()
	ex.Pipeline(p, bg)
	t.WaitForeground()
}
