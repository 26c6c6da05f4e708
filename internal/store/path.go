package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	ErrBadRoot      = errors.New("store: root must be an absolute path")
	ErrOutsideStore = errors.New("store: path outside store root")
	ErrBadPath      = errors.New("store: malformed store path")
)

// Remapper translates store paths into their mirror-root equivalents. Roots
// are injected so tests and non-default deployments can use isolated
// directories. Both roots are normalized to carry a trailing slash, which
// keeps remapping a plain prefix swap.
type Remapper struct {
	storeRoot  string
	mirrorRoot string
}

// NewRemapper validates both roots and returns a remapper over them.
func NewRemapper(storeRoot string, mirrorRoot string) (*Remapper, error) {
	store, err := normalizeRoot(storeRoot)
	if err != nil {
		return nil, err
	}
	mirror, err := normalizeRoot(mirrorRoot)
	if err != nil {
		return nil, err
	}
	return &Remapper{storeRoot: store, mirrorRoot: mirror}, nil
}

func normalizeRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if !strings.HasPrefix(root, "/") {
		return "", fmt.Errorf("%w: %q", ErrBadRoot, root)
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root, nil
}

// StoreRoot returns the local store prefix, trailing slash included.
func (r *Remapper) StoreRoot() string { return r.storeRoot }

// MirrorRoot returns the remote mirror prefix, trailing slash included.
func (r *Remapper) MirrorRoot() string { return r.mirrorRoot }

// Remap swaps the store-root prefix for the mirror root. It is total over
// paths rooted at the store and errors on everything else.
func (r *Remapper) Remap(path string) (string, error) {
	rel, ok := strings.CutPrefix(path, r.storeRoot)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrOutsideStore, path)
	}
	return r.mirrorRoot + rel, nil
}

// Rel strips the store-root prefix, returning the relative component.
func (r *Remapper) Rel(path string) (string, error) {
	rel, ok := strings.CutPrefix(path, r.storeRoot)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrOutsideStore, path)
	}
	if rel == "" {
		return "", fmt.Errorf("%w: %q", ErrBadPath, path)
	}
	return rel, nil
}

// StorePath joins a relative component back under the store root.
func (r *Remapper) StorePath(rel string) string { return r.storeRoot + rel }

// MirrorPath joins a relative component under the mirror root.
func (r *Remapper) MirrorPath(rel string) string { return r.mirrorRoot + rel }

// Closure is the immutable set of store paths a build target depends on.
// It is computed once per run and only read afterward.
type Closure struct {
	remap *Remapper
	rels  []string
}

// NewClosure validates every path against the remapper's store root and
// returns the deduplicated closure. Relative components are kept sorted so
// iteration order is reproducible across runs.
func NewClosure(remap *Remapper, paths []string) (*Closure, error) {
	seen := make(map[string]struct{}, len(paths))
	rels := make([]string, 0, len(paths))
	for _, p := range paths {
		if !utf8.ValidString(p) {
			return nil, fmt.Errorf("%w: not valid utf-8: %q", ErrBadPath, p)
		}
		rel, err := remap.Rel(p)
		if err != nil {
			return nil, err
		}
		if strings.Contains(rel, "/") {
			return nil, fmt.Errorf("%w: %q is not a top-level store entry", ErrBadPath, p)
		}
		if _, ok := seen[rel]; ok {
			continue
		}
		seen[rel] = struct{}{}
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	return &Closure{remap: remap, rels: rels}, nil
}

// Len reports the number of distinct paths in the closure.
func (c *Closure) Len() int { return len(c.rels) }

// Relatives returns the sorted relative components.
func (c *Closure) Relatives() []string {
	out := make([]string, len(c.rels))
	copy(out, c.rels)
	return out
}

// FullPaths returns the sorted full store paths.
func (c *Closure) FullPaths() []string {
	out := make([]string, len(c.rels))
	for i, rel := range c.rels {
		out[i] = c.remap.StorePath(rel)
	}
	return out
}
