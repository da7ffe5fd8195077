package shell

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.elv.sh/mshell/pkg/env"
	"src.elv.sh/mshell/pkg/testutil"
)

func TestLoadRC(t *testing.T) {
	testutil.InTempDir(t)
	testutil.ApplyDir(map[string]string{
		"full.yaml":    "prompt: 'mshell> '\nlog: /tmp/mshell.log\n",
		"empty.yaml":   "",
		"unknown.yaml": "prompt: x\ncolor: red\n",
		"bad.yaml":     "prompt: [\n",
	})

	tests := []struct {
		name    string
		path    string
		want    *RC
		wantErr bool
	}{
		{"full", "full.yaml", &RC{Prompt: "mshell> ", Log: "/tmp/mshell.log"}, false},
		{"empty", "empty.yaml", &RC{}, false},
		{"missing", "missing.yaml", &RC{}, false},
		{"unknown key", "unknown.yaml", nil, true},
		{"malformed", "bad.yaml", nil, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rc, err := LoadRC(test.path)
			if (err != nil) != test.wantErr {
				t.Fatalf("got error %v, want error %v", err, test.wantErr)
			}
			if diff := cmp.Diff(test.want, rc); diff != "" {
				t.Errorf("rc (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRCPath(t *testing.T) {
	testutil.Setenv(t, env.XDG_CONFIG_HOME, "/xdg")
	if path, err := RCPath(); path != "/xdg/mshell/rc.yaml" || err != nil {
		t.Errorf("RCPath() -> (%q, %v)", path, err)
	}

	home := testutil.TempDir(t)
	testutil.Setenv(t, env.XDG_CONFIG_HOME, "")
	testutil.Setenv(t, env.HOME, home)
	want := filepath.Join(home, ".config", "mshell", "rc.yaml")
	if path, err := RCPath(); path != want || err != nil {
		t.Errorf("RCPath() -> (%q, %v), want %q", path, err, want)
	}
}
