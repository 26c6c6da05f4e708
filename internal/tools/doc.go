// Package tools provides local command execution helpers.
//
// Ownership boundary:
// - command-runner interface consumed by the nix resolver
// - os/exec backed implementation
package tools
