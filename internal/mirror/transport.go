package mirror

import "io"

// Commands executes argv on the remote host. Used for operations the file
// session cannot express: forced removal, permission changes, and symlink
// creation (dangling links included).
type Commands interface {
	Run(name string, args ...string) ([]byte, []byte, int32, error)
}

// Files is the file-transfer session against the remote filesystem.
type Files interface {
	Mkdir(path string) error
	ReadDir(path string) ([]string, error)
	Exists(path string) (bool, error)
	Create(path string) (io.WriteCloser, error)
	WriteFile(path string, data []byte) error
}
