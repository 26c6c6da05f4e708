package remote

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/pkg/sftp"
)

// Files is an SFTP session scoped to the mirror. Callers issue operations
// strictly sequentially; the session is a single shared channel.
type Files struct {
	client *sftp.Client
}

// SFTP opens the sftp subsystem on the established connection.
func (c *Client) SFTP() (*Files, error) {
	client, err := sftp.NewClient(c.ssh)
	if err != nil {
		return nil, fmt.Errorf("%w: sftp subsystem: %v", ErrSessionFailed, err)
	}
	return &Files{client: client}, nil
}

func (f *Files) Close() error {
	return f.client.Close()
}

// Mkdir creates one remote directory. Parents must already exist.
func (f *Files) Mkdir(path string) error {
	return f.client.Mkdir(path)
}

// ReadDir lists the entry names of a remote directory.
func (f *Files) ReadDir(path string) ([]string, error) {
	infos, err := f.client.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

// Exists probes a remote path. Symlinks count even when dangling.
func (f *Files) Exists(path string) (bool, error) {
	_, err := f.client.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Create opens a remote file exclusively for writing. A pre-existing file
// is an error, which is how partial prior installs get detected.
func (f *Files) Create(path string) (io.WriteCloser, error) {
	return f.client.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
}

// WriteFile writes data to a remote path, truncating any existing file.
// Used for zero-length marker records.
func (f *Files) WriteFile(path string, data []byte) error {
	file, err := f.client.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := file.Write(data); err != nil {
			file.Close()
			return err
		}
	}
	return file.Close()
}
