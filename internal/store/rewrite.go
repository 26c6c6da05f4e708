package store

import (
	"bytes"
	"io"
	"regexp"
	"sort"
	"strings"
)

// Rewriter replaces every embedded occurrence of a closure store path with
// its mirror equivalent. The alternation is compiled once per run; the
// closure is invariant for the whole operation, so one matcher serves every
// file. Matching is byte-level substring matching with no reference-boundary
// semantics: the alternation only ever matches strings that are themselves
// valid closure member paths, which is what bounds false positives.
type Rewriter struct {
	remap *Remapper
	re    *regexp.Regexp
}

// NewRewriter compiles the alternation over the closure's full store paths.
// Alternatives are ordered longest-first so a path whose name prefixes a
// sibling's never shadows the longer match.
func NewRewriter(remap *Remapper, closure *Closure) *Rewriter {
	full := closure.FullPaths()
	if len(full) == 0 {
		return &Rewriter{remap: remap}
	}
	sort.Slice(full, func(i, j int) bool { return len(full[i]) > len(full[j]) })
	alts := make([]string, len(full))
	for i, p := range full {
		alts[i] = regexp.QuoteMeta(p)
	}
	return &Rewriter{
		remap: remap,
		re:    regexp.MustCompile(strings.Join(alts, "|")),
	}
}

// Rewrite streams data to dst, substituting each maximal non-overlapping
// store-path occurrence with its remapped form. Unmatched spans are written
// through verbatim; scanning resumes immediately after each match, so
// matches never overlap. Zero-length input writes zero bytes.
func (rw *Rewriter) Rewrite(dst io.Writer, data []byte) error {
	if len(data) > 0 && rw.re == nil {
		_, err := dst.Write(data)
		return err
	}
	for len(data) > 0 {
		loc := rw.re.FindIndex(data)
		if loc == nil {
			_, err := dst.Write(data)
			return err
		}
		if loc[0] > 0 {
			if _, err := dst.Write(data[:loc[0]]); err != nil {
				return err
			}
		}
		remapped, err := rw.remap.Remap(string(data[loc[0]:loc[1]]))
		if err != nil {
			return err
		}
		if _, err := io.WriteString(dst, remapped); err != nil {
			return err
		}
		data = data[loc[1]:]
	}
	return nil
}

// RewriteBytes is Rewrite into a fresh buffer.
func (rw *Rewriter) RewriteBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data))
	if err := rw.Rewrite(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Matches reports whether data still contains any original store path.
func (rw *Rewriter) Matches(data []byte) bool {
	return rw.re != nil && rw.re.Match(data)
}
