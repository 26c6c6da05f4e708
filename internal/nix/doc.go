// Package nix owns the build/closure resolver boundary around the nix CLI.
//
// Ownership boundary:
// - nix build invocation
// - closure and primary-path queries via `nix path-info --json`
package nix
