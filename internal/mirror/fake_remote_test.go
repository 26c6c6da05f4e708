package mirror

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// fakeRemote emulates the remote host for tests: an in-memory filesystem
// reachable both through the Files session and through the command channel
// (chmod, ln, rm, mkdir).
type fakeRemote struct {
	dirs     map[string]bool
	fileData map[string][]byte
	symlinks map[string]string
	chmods   map[string][]string
	commands [][]string
	writes   int

	failCreate map[string]error
	failRun    map[string]error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		dirs:       map[string]bool{},
		fileData:   map[string][]byte{},
		symlinks:   map[string]string{},
		chmods:     map[string][]string{},
		failCreate: map[string]error{},
		failRun:    map[string]error{},
	}
}

func (f *fakeRemote) entryExists(p string) bool {
	p = path.Clean(p)
	if f.dirs[p] {
		return true
	}
	if _, ok := f.fileData[p]; ok {
		return true
	}
	_, ok := f.symlinks[p]
	return ok
}

func (f *fakeRemote) parentExists(p string) bool {
	return f.dirs[path.Dir(path.Clean(p))]
}

func (f *fakeRemote) Mkdir(p string) error {
	p = path.Clean(p)
	if f.entryExists(p) {
		return fs.ErrExist
	}
	if !f.parentExists(p) {
		return fmt.Errorf("no such parent: %s", p)
	}
	f.dirs[p] = true
	f.writes++
	return nil
}

func (f *fakeRemote) ReadDir(p string) ([]string, error) {
	p = path.Clean(p)
	if !f.dirs[p] {
		return nil, fs.ErrNotExist
	}
	seen := map[string]struct{}{}
	collect := func(entry string) {
		rest, ok := strings.CutPrefix(entry, p+"/")
		if !ok {
			return
		}
		name, _, _ := strings.Cut(rest, "/")
		seen[name] = struct{}{}
	}
	for d := range f.dirs {
		collect(d)
	}
	for file := range f.fileData {
		collect(file)
	}
	for link := range f.symlinks {
		collect(link)
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeRemote) Exists(p string) (bool, error) {
	return f.entryExists(p), nil
}

type fakeRemoteFile struct {
	fs   *fakeRemote
	path string
	buf  bytes.Buffer
}

func (w *fakeRemoteFile) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *fakeRemoteFile) Close() error {
	w.fs.fileData[w.path] = append([]byte{}, w.buf.Bytes()...)
	w.fs.writes++
	return nil
}

func (f *fakeRemote) Create(p string) (io.WriteCloser, error) {
	p = path.Clean(p)
	if err, ok := f.failCreate[p]; ok {
		return nil, err
	}
	if f.entryExists(p) {
		return nil, fs.ErrExist
	}
	if !f.parentExists(p) {
		return nil, fmt.Errorf("no such parent: %s", p)
	}
	return &fakeRemoteFile{fs: f, path: p}, nil
}

func (f *fakeRemote) WriteFile(p string, data []byte) error {
	p = path.Clean(p)
	if !f.parentExists(p) {
		return fmt.Errorf("no such parent: %s", p)
	}
	f.fileData[p] = append([]byte{}, data...)
	f.writes++
	return nil
}

func (f *fakeRemote) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	f.commands = append(f.commands, append([]string{name}, args...))
	if err, ok := f.failRun[name]; ok {
		return nil, []byte("injected failure"), 1, err
	}

	switch name {
	case "mkdir":
		// only -p is used
		p := path.Clean(args[len(args)-1])
		f.dirs[p] = true
		f.writes++
	case "rm":
		// only rm -rf <path> is used
		p := path.Clean(args[len(args)-1])
		f.removeTree(p)
		f.writes++
	case "chmod":
		p := path.Clean(args[1])
		if !f.entryExists(p) {
			return nil, []byte("chmod: no such file"), 1, errors.New("exit status 1")
		}
		f.chmods[p] = append(f.chmods[p], args[0])
		f.writes++
	case "ln":
		// only ln -s <target> <link> is used
		link := path.Clean(args[2])
		if f.entryExists(link) {
			return nil, []byte("ln: file exists"), 1, errors.New("exit status 1")
		}
		f.symlinks[link] = args[1]
		f.writes++
	default:
		return nil, []byte("unknown command"), 127, errors.New("exit status 127")
	}
	return nil, nil, 0, nil
}

func (f *fakeRemote) removeTree(p string) {
	match := func(entry string) bool {
		return entry == p || strings.HasPrefix(entry, p+"/")
	}
	for d := range f.dirs {
		if match(d) {
			delete(f.dirs, d)
		}
	}
	for file := range f.fileData {
		if match(file) {
			delete(f.fileData, file)
		}
	}
	for link := range f.symlinks {
		if match(link) {
			delete(f.symlinks, link)
		}
	}
}

func (f *fakeRemote) commandLog() []string {
	out := make([]string, len(f.commands))
	for i, cmd := range f.commands {
		out[i] = strings.Join(cmd, " ")
	}
	return out
}
