package executor

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"src.elv.sh/mshell/pkg/env"
)

// Search path used when $PATH is not set.
const defaultPath = "/bin:/usr/bin"

// Runs executable files that the kernel refuses with ENOEXEC.
const fallbackShell = "/bin/sh"

// Finds the program to run the way execvp(3) does. A name containing a slash
// is used as is. Other names are searched in the directories of $PATH, where
// an empty element stands for the working directory. When no match is
// executable but some match exists, the error is EACCES rather than ENOENT.
func lookPath(name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}
	pathEnv, ok := os.LookupEnv(env.PATH)
	if !ok {
		pathEnv = defaultPath
	}
	denied := false
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			dir = "."
		}
		path := dir + "/" + name
		switch err := unix.Access(path, unix.X_OK); err {
		case nil:
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path, nil
			}
			// execve(2) refuses directories with EACCES.
			denied = true
		case unix.EACCES:
			denied = true
		}
	}
	if denied {
		return "", &fs.PathError{Op: "search", Path: name, Err: syscall.EACCES}
	}
	return "", &fs.PathError{Op: "search", Path: name, Err: syscall.ENOENT}
}
