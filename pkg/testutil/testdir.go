package testutil

import (
	"os"
	"path/filepath"
)

// TempDir creates a temporary directory for testing that will be removed
// after the test finishes. Symlinks in the path are resolved, so that the
// path can be compared with os.Getwd.
func TempDir(c Cleanuper) string {
	dir, err := os.MkdirTemp("", "mshelltest")
	if err != nil {
		panic(err)
	}
	dir, err = filepath.EvalSymlinks(dir)
	if err != nil {
		panic(err)
	}
	c.Cleanup(func() {
		err := os.RemoveAll(dir)
		if err != nil {
			println("failed to remove temp dir", dir)
		}
	})
	return dir
}

// InTempDir is like TempDir, but also changes into the directory, and
// restores the working directory when the test finishes. It returns the path
// of the directory.
func InTempDir(c Cleanuper) string {
	dir := TempDir(c)
	Chdir(c, dir)
	return dir
}

// Chdir changes into a directory, and restores the original working directory
// when a test finishes.
func Chdir(c Cleanuper, dir string) {
	oldWd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	if err := os.Chdir(dir); err != nil {
		panic(err)
	}
	c.Cleanup(func() {
		if err := os.Chdir(oldWd); err != nil {
			panic(err)
		}
	})
}

// ApplyDir creates the files in the map, relative to the working directory.
// Keys are paths and values are file contents; a key ending in "/" creates a
// directory.
func ApplyDir(files map[string]string) {
	for name, content := range files {
		if name[len(name)-1] == '/' {
			must(os.MkdirAll(name, 0700))
			continue
		}
		must(os.MkdirAll(filepath.Dir(name), 0700))
		must(os.WriteFile(name, []byte(content), 0600))
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
