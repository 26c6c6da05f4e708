package remote

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

// Exec runs a shell command string on the remote host with local stdio
// attached, requesting a PTY when stdin is a terminal. It returns the
// remote exit status.
func (c *Client) Exec(command string) (int, error) {
	session, err := c.ssh.NewSession()
	if err != nil {
		return 1, fmt.Errorf("%w: new session: %v", ErrSessionFailed, err)
	}
	defer session.Close()

	session.Stdin = os.Stdin
	session.Stdout = os.Stdout
	session.Stderr = os.Stderr

	fd := int(os.Stdin.Fd())
	if isatty.IsTerminal(os.Stdin.Fd()) {
		width, height, err := term.GetSize(fd)
		if err != nil {
			width, height = 80, 24
		}
		termName := os.Getenv("TERM")
		if termName == "" {
			termName = "xterm"
		}
		modes := ssh.TerminalModes{
			ssh.ECHO:          1,
			ssh.TTY_OP_ISPEED: 14400,
			ssh.TTY_OP_OSPEED: 14400,
		}
		if err := session.RequestPty(termName, height, width, modes); err != nil {
			return 1, fmt.Errorf("%w: request pty: %v", ErrSessionFailed, err)
		}
		state, err := term.MakeRaw(fd)
		if err == nil {
			defer term.Restore(fd, state)
		}
	}

	err = session.Run(command)
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return 1, fmt.Errorf("%w: %v", ErrSessionFailed, err)
}
