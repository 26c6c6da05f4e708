package mirror

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/nixrm/internal/store"
)

var (
	ErrMkdirFailed    = errors.New("mirror: mkdir failed")
	ErrCreateConflict = errors.New("mirror: exclusive create failed")
	ErrWriteFailed    = errors.New("mirror: write failed")
	ErrChmodFailed    = errors.New("mirror: chmod failed")
	ErrSymlinkFailed  = errors.New("mirror: symlink failed")
	ErrRemoveFailed   = errors.New("mirror: forced removal failed")
	ErrNonUTF8Path    = errors.New("mirror: non-utf8 path")
)

// deferredMode is a (remote path, mode) pair applied after the full tree
// walk. Directories must stay writable while they are being populated, so
// final modes land only once every descendant exists.
type deferredMode struct {
	path string
	mode fs.FileMode
}

// Replicator copies one artifact's local file tree onto the remote mirror,
// rewriting embedded store-path references in every regular file.
type Replicator struct {
	files Files
	cmds  Commands
	remap *store.Remapper
	rw    *store.Rewriter
}

func NewReplicator(files Files, cmds Commands, remap *store.Remapper, rw *store.Rewriter) *Replicator {
	return &Replicator{files: files, cmds: cmds, remap: remap, rw: rw}
}

// Replicate mirrors the artifact named by its relative component. A remote
// object already present at the artifact's path is the residue of a prior
// non-atomic partial install: it is removed recursively before anything is
// written.
func (r *Replicator) Replicate(rel string) error {
	localRoot := r.remap.StorePath(rel)
	remoteRoot := r.remap.MirrorPath(rel)

	exists, err := r.files.Exists(remoteRoot)
	if err != nil {
		return fmt.Errorf("mirror: probe %s: %w", remoteRoot, err)
	}
	if exists {
		log.Warn().Str("path", remoteRoot).Msg("path exists, that is unexpected, removing")
		if err := r.runRemote("rm", "-rf", remoteRoot); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrRemoveFailed, remoteRoot, err)
		}
	}

	var deferred []deferredMode
	err = filepath.WalkDir(localRoot, func(local string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		remotePath, err := r.remap.Remap(local)
		if err != nil {
			return err
		}
		if !utf8.ValidString(remotePath) {
			return fmt.Errorf("%w: %q", ErrNonUTF8Path, remotePath)
		}
		log.Debug().Str("path", remotePath).Msg("processing")

		switch {
		case d.IsDir():
			return r.replicateDir(remotePath, d, &deferred)
		case d.Type()&fs.ModeSymlink != 0:
			return r.replicateSymlink(local, remotePath)
		case d.Type().IsRegular():
			return r.replicateFile(local, remotePath, d, &deferred)
		default:
			return fmt.Errorf("%w: unsupported file type %s at %s", ErrWriteFailed, d.Type(), local)
		}
	})
	if err != nil {
		return err
	}

	return r.finalize(deferred)
}

func (r *Replicator) replicateDir(remotePath string, d fs.DirEntry, deferred *[]deferredMode) error {
	if err := r.files.Mkdir(remotePath); err != nil {
		// tolerate a directory that is already there; anything else is fatal
		exists, probeErr := r.files.Exists(remotePath)
		if probeErr != nil || !exists {
			return fmt.Errorf("%w: %s: %v", ErrMkdirFailed, remotePath, err)
		}
	}
	info, err := d.Info()
	if err != nil {
		return err
	}
	*deferred = append(*deferred, deferredMode{path: remotePath, mode: info.Mode()})
	return nil
}

func (r *Replicator) replicateFile(local string, remotePath string, d fs.DirEntry, deferred *[]deferredMode) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	w, err := r.files.Create(remotePath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCreateConflict, remotePath, err)
	}

	if info.Size() > 0 {
		data, err := os.ReadFile(local)
		if err != nil {
			w.Close()
			return fmt.Errorf("%w: read %s: %v", ErrWriteFailed, local, err)
		}
		if err := r.rw.Rewrite(w, data); err != nil {
			w.Close()
			return fmt.Errorf("%w: %s: %v", ErrWriteFailed, remotePath, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrWriteFailed, remotePath, err)
	}

	if err := r.chmod(remotePath, info.Mode()); err != nil {
		return err
	}
	// re-asserted once more after the walk, alongside the directory modes
	*deferred = append(*deferred, deferredMode{path: remotePath, mode: info.Mode()})
	return nil
}

func (r *Replicator) replicateSymlink(local string, remotePath string) error {
	target, err := os.Readlink(local)
	if err != nil {
		return fmt.Errorf("%w: readlink %s: %v", ErrSymlinkFailed, local, err)
	}
	if !utf8.ValidString(target) {
		return fmt.Errorf("%w: %q", ErrNonUTF8Path, target)
	}
	if filepath.IsAbs(target) {
		remapped, err := r.remap.Remap(target)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrSymlinkFailed, local, err)
		}
		target = remapped
	}
	// the file session refuses dangling link targets, so links go through
	// the command channel
	if err := r.runRemote("ln", "-s", target, remotePath); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSymlinkFailed, remotePath, err)
	}
	return nil
}

// finalize re-applies every deferred mode in recorded order, parents before
// children, so directories only lose write permission after their contents
// exist.
func (r *Replicator) finalize(deferred []deferredMode) error {
	for _, dm := range deferred {
		if err := r.chmod(dm.path, dm.mode); err != nil {
			return err
		}
	}
	return nil
}

func (r *Replicator) chmod(remotePath string, mode fs.FileMode) error {
	octal := fmt.Sprintf("%03o", mode.Perm())
	if err := r.runRemote("chmod", octal, remotePath); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrChmodFailed, remotePath, err)
	}
	return nil
}

func (r *Replicator) runRemote(name string, args ...string) error {
	_, stderr, code, err := r.cmds.Run(name, args...)
	if err == nil {
		return nil
	}
	return fmt.Errorf(
		"remote command failed cmd=%s args=%q exit=%d stderr=%q: %v",
		name,
		strings.Join(args, " "),
		code,
		strings.TrimSpace(string(stderr)),
		err,
	)
}
