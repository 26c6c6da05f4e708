package nix

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/nixrm/internal/tools"
)

var (
	ErrBuildFailed      = errors.New("nix: build failed")
	ErrClosureQuery     = errors.New("nix: closure query failed")
	ErrPathQuery        = errors.New("nix: path query failed")
	ErrAmbiguousPrimary = errors.New("nix: installable resolves to more than one path")
)

// Resolver drives the nix CLI to materialize an installable and enumerate
// its closure. All process execution goes through the runner so tests can
// substitute fakes.
type Resolver struct {
	runner      tools.CommandRunner
	buildStdout io.Writer
	buildStderr io.Writer
}

func NewResolver(runner tools.CommandRunner) *Resolver {
	return &Resolver{
		runner:      runner,
		buildStdout: os.Stdout,
		buildStderr: os.Stderr,
	}
}

// Build materializes the installable without creating a result link. Build
// output streams through so the user sees progress.
func (r *Resolver) Build(installable string) error {
	log.Info().Str("installable", installable).Msg("building")
	if err := r.runner.RunStreaming("nix", []string{"build", "--no-link", installable}, r.buildStdout, r.buildStderr); err != nil {
		return fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}
	return nil
}

// Closure returns the full transitive set of store paths the installable
// depends on.
func (r *Resolver) Closure(installable string) ([]string, error) {
	log.Info().Msg("loading closure")
	stdout, stderr, code, err := r.runner.Run("nix", "path-info", "--json", "-r", installable)
	if err != nil {
		return nil, fmt.Errorf("%w: exit=%d stderr=%q: %v", ErrClosureQuery, code, strings.TrimSpace(string(stderr)), err)
	}
	paths, err := parsePathInfo(stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClosureQuery, err)
	}
	return paths, nil
}

// Primary returns the single direct build output path of the installable.
func (r *Resolver) Primary(installable string) (string, error) {
	stdout, stderr, code, err := r.runner.Run("nix", "path-info", "--json", installable)
	if err != nil {
		return "", fmt.Errorf("%w: exit=%d stderr=%q: %v", ErrPathQuery, code, strings.TrimSpace(string(stderr)), err)
	}
	paths, err := parsePathInfo(stdout)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathQuery, err)
	}
	if len(paths) != 1 {
		return "", fmt.Errorf("%w: got %d paths", ErrAmbiguousPrimary, len(paths))
	}
	return paths[0], nil
}

// parsePathInfo accepts both `nix path-info --json` output shapes: the
// legacy array of {"path": ...} objects and the newer object keyed by store
// path.
func parsePathInfo(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty path-info output")
	}
	if trimmed[0] == '{' {
		var byPath map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &byPath); err != nil {
			return nil, fmt.Errorf("parse path-info object: %w", err)
		}
		paths := make([]string, 0, len(byPath))
		for p := range byPath {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		return paths, nil
	}

	var entries []struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("parse path-info array: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Path == "" {
			return nil, fmt.Errorf("path-info entry missing path")
		}
		paths = append(paths, e.Path)
	}
	return paths, nil
}
