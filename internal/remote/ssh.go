package remote

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

var ErrSessionFailed = errors.New("remote: session failed")

// Config describes one SSH destination.
type Config struct {
	Host                        string
	Port                        string
	User                        string
	KeyPath                     string
	Passphrase                  []byte
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
}

// ParseDestination splits an optional user@ prefix off a destination string
// and applies it to the config. Host and user given explicitly elsewhere are
// not overwritten by the destination.
func (c *Config) ParseDestination(dest string) error {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return fmt.Errorf("%w: empty destination", ErrSessionFailed)
	}
	if at := strings.LastIndex(dest, "@"); at >= 0 {
		if c.User == "" {
			c.User = dest[:at]
		}
		dest = dest[at+1:]
	}
	if dest == "" {
		return fmt.Errorf("%w: destination has no host", ErrSessionFailed)
	}
	c.Host = dest
	return nil
}

// Client is an established SSH connection. One client serves the whole run;
// each Run call opens its own session on it.
type Client struct {
	ssh *ssh.Client
}

// Dial connects and authenticates against the configured destination.
func Dial(cfg Config) (*Client, error) {
	address, err := cfg.address()
	if err != nil {
		return nil, err
	}

	clientConfig, err := cfg.clientConfig()
	if err != nil {
		return nil, err
	}

	if cfg.Timeout <= 0 {
		c, err := ssh.Dial("tcp", address, clientConfig)
		if err != nil {
			return nil, fmt.Errorf("%w: dial %s: %v", ErrSessionFailed, address, err)
		}
		return &Client{ssh: c}, nil
	}

	conn, err := net.DialTimeout("tcp", address, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrSessionFailed, address, err)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, address, clientConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: handshake %s: %v", ErrSessionFailed, address, err)
	}
	return &Client{ssh: ssh.NewClient(clientConn, chans, reqs)}, nil
}

func (c *Client) Close() error {
	return c.ssh.Close()
}

// Run executes argv on the remote host through a fresh session and returns
// captured stdout, stderr, and the remote exit code.
func (c *Client) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	session, err := c.ssh.NewSession()
	if err != nil {
		return nil, nil, 1, fmt.Errorf("%w: new session: %v", ErrSessionFailed, err)
	}
	defer session.Close()

	var stdout strings.Builder
	var stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	err = session.Run(joinCommand(name, args))
	if err == nil {
		return []byte(stdout.String()), []byte(stderr.String()), 0, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return []byte(stdout.String()), []byte(stderr.String()), int32(exitErr.ExitStatus()), err
	}
	return []byte(stdout.String()), []byte(stderr.String()), 1, err
}

func (cfg Config) address() (string, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return "", fmt.Errorf("%w: host is required", ErrSessionFailed)
	}

	if cfg.Port != "" {
		return net.JoinHostPort(host, cfg.Port), nil
	}

	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}

	return net.JoinHostPort(host, "22"), nil
}

func (cfg Config) clientConfig() (*ssh.ClientConfig, error) {
	username := strings.TrimSpace(cfg.User)
	if username == "" {
		current, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("%w: user not set and local user unavailable", ErrSessionFailed)
		}
		username = current.Username
	}

	auth, err := cfg.authMethods()
	if err != nil {
		return nil, err
	}

	var hostKeyCallback ssh.HostKeyCallback
	if cfg.InsecureSkipHostKeyChecking {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		callback, err := cfg.knownHostsCallback()
		if err != nil {
			return nil, err
		}
		hostKeyCallback = callback
	}

	return &ssh.ClientConfig{
		User:            username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.Timeout,
	}, nil
}

// authMethods prefers an explicit key file, falling back to a running
// ssh-agent. At least one source must be available.
func (cfg Config) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if cfg.KeyPath != "" {
		signer, err := cfg.signer()
		if err != nil {
			return nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: no ssh key configured and no agent available", ErrSessionFailed)
	}
	return methods, nil
}

func (cfg Config) signer() (ssh.Signer, error) {
	privateKey, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read key: %v", ErrSessionFailed, err)
	}

	if len(cfg.Passphrase) > 0 {
		signer, err := ssh.ParsePrivateKeyWithPassphrase(privateKey, cfg.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: parse key: %v", ErrSessionFailed, err)
		}
		return signer, nil
	}

	signer, err := ssh.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: parse key: %v", ErrSessionFailed, err)
	}
	return signer, nil
}

func (cfg Config) knownHostsCallback() (ssh.HostKeyCallback, error) {
	path := strings.TrimSpace(cfg.KnownHostsPath)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: known hosts path not set and home dir unavailable", ErrSessionFailed)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: known hosts: %v", ErrSessionFailed, err)
	}
	return callback, nil
}

func joinCommand(cmd string, args []string) string {
	if len(args) == 0 {
		return shellEscape(cmd)
	}

	var builder strings.Builder
	builder.WriteString(shellEscape(cmd))
	for _, arg := range args {
		builder.WriteByte(' ')
		builder.WriteString(shellEscape(arg))
	}

	return builder.String()
}

func shellEscape(value string) string {
	if value == "" {
		return "''"
	}

	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
