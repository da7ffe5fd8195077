// Package env keeps names of environment variables with special significance to
// mshell.
package env

// Environment variables with special significance to mshell.
//
// Note that some of these env vars may be significant only in special
// circumstances, such as when running unit tests.
const (
	HOME                   = "HOME"
	MSHELL_TEST_TIME_SCALE = "MSHELL_TEST_TIME_SCALE"
	PATH                   = "PATH"
	XDG_CONFIG_HOME        = "XDG_CONFIG_HOME"
)
