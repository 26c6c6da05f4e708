package mirror

import (
	"fmt"
	"path"
	"sort"
)

// installedDirName is the marker container under the mirror root.
const installedDirName = "installed"

// Ledger tracks which artifacts have been fully mirrored, one zero-length
// marker file per relative component under <mirror>/installed. A marker is
// written only after replication and finalization both succeed; there is no
// unmark, artifacts are immutable and never uninstalled by this tool.
type Ledger struct {
	files Files
	dir   string
}

func NewLedger(files Files, mirrorRoot string) *Ledger {
	return &Ledger{
		files: files,
		dir:   path.Join(mirrorRoot, installedDirName),
	}
}

// Init ensures the marker container exists. An already-present directory is
// fine; this runs on every invocation.
func (l *Ledger) Init() error {
	exists, err := l.files.Exists(l.dir)
	if err != nil {
		return fmt.Errorf("mirror: probe %s: %w", l.dir, err)
	}
	if exists {
		return nil
	}
	if err := l.files.Mkdir(l.dir); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMkdirFailed, l.dir, err)
	}
	return nil
}

// Query returns the sorted relative components that carry a marker. The
// container's own name is excluded.
func (l *Ledger) Query() ([]string, error) {
	names, err := l.files.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("mirror: read %s: %w", l.dir, err)
	}
	installed := make([]string, 0, len(names))
	for _, name := range names {
		if name == installedDirName {
			continue
		}
		installed = append(installed, name)
	}
	sort.Strings(installed)
	return installed, nil
}

// Mark records an artifact as fully mirrored. Must be the last step for the
// artifact. The write is not atomic: a crash mid-write can leave a corrupt
// marker that a later run treats as installed.
func (l *Ledger) Mark(rel string) error {
	marker := path.Join(l.dir, rel)
	if err := l.files.WriteFile(marker, nil); err != nil {
		return fmt.Errorf("%w: marker %s: %v", ErrWriteFailed, marker, err)
	}
	return nil
}
