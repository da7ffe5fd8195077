package executor

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"src.elv.sh/mshell/pkg/env"
	"src.elv.sh/mshell/pkg/testutil"
)

func TestLookPath(t *testing.T) {
	testutil.InTempDir(t)
	testutil.ApplyDir(map[string]string{
		"a/exe":   "",
		"a/plain": "",
		"b/plain": "",
		"b/sub/":  "",
		"c/plain": "",
		"here":    "",
		"a/both":  "",
		"b/both":  "",
	})
	for _, name := range []string{"a/exe", "c/plain", "here", "b/both"} {
		if err := os.Chmod(name, 0755); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name     string
		pathEnv  string
		wantPath string
		wantErr  error
	}{
		{"./anything", "a", "./anything", nil},
		{"exe", "a:b", "a/exe", nil},
		{"plain", "a:b:c", "c/plain", nil},
		{"both", "a:b", "b/both", nil},
		// An empty element is the working directory.
		{"here", "a::b", "./here", nil},
		{"missing", "a:b", "", fs.ErrNotExist},
		{"plain", "a:b", "", fs.ErrPermission},
		// Directories are not programs.
		{"sub", "b", "", fs.ErrPermission},
	}
	for _, test := range tests {
		testutil.Setenv(t, env.PATH, test.pathEnv)
		path, err := lookPath(test.name)
		if path != test.wantPath {
			t.Errorf("lookPath(%q) with PATH=%q -> %q, want %q",
				test.name, test.pathEnv, path, test.wantPath)
		}
		if test.wantErr == nil && err != nil || test.wantErr != nil && !errors.Is(err, test.wantErr) {
			t.Errorf("lookPath(%q) with PATH=%q -> error %v, want %v",
				test.name, test.pathEnv, err, test.wantErr)
		}
	}
}
