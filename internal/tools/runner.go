package tools

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
)

// CommandRunner abstracts local command execution so callers can be tested
// against fakes. Run captures output; RunStreaming forwards it live, which
// is what long-running build invocations want.
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, []byte, int32, error)
	RunStreaming(name string, args []string, stdout, stderr io.Writer) error
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

func (r ExecRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	cmd := exec.Command(name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}
	return stdout.Bytes(), stderr.Bytes(), exitCode(err), err
}

func (r ExecRunner) RunStreaming(name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.Command(name, args...)
	if stdout != nil {
		cmd.Stdout = stdout
	}
	if stderr != nil {
		cmd.Stderr = stderr
	}
	return cmd.Run()
}

func exitCode(err error) int32 {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return int32(exitErr.ExitCode())
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		// command not found
		return 127
	}
	return 1
}
