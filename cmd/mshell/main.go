// Command mshell is a minimal Unix command shell. It reads command lines from
// stdin and runs them as pipelines of external programs.
package main

import (
	"os"

	"src.elv.sh/mshell/pkg/prog"
	"src.elv.sh/mshell/pkg/shell"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args, shell.Program{}))
}
