package shell

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"src.elv.sh/mshell/pkg/env"
)

// RC is the content of the rc file.
type RC struct {
	// Prompt printed before each line in interactive mode.
	Prompt string `yaml:"prompt"`
	// Path of the debug log, used unless -log is given.
	Log string `yaml:"log"`
}

// RCPath returns the default path of the rc file,
// $XDG_CONFIG_HOME/mshell/rc.yaml or ~/.config/mshell/rc.yaml.
func RCPath() (string, error) {
	if dir := os.Getenv(env.XDG_CONFIG_HOME); dir != "" {
		return filepath.Join(dir, "mshell", "rc.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mshell", "rc.yaml"), nil
}

// LoadRC reads an rc file. A missing or empty file yields the zero RC; unknown
// keys are errors.
func LoadRC(path string) (*RC, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &RC{}, nil
	} else if err != nil {
		return nil, err
	}
	defer file.Close()

	var rc RC
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&rc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Printf("loaded %s: %+v", path, rc)
	return &rc, nil
}
