// Package remote owns the SSH and SFTP sessions against the target host.
//
// Ownership boundary:
// - SSH dialing, auth (key file, ssh-agent), host key verification
// - one-shot remote command execution with shell-escaped argv
// - SFTP file session primitives (mkdir, exclusive create, readdir, stat)
// - interactive command launch over a PTY
package remote
