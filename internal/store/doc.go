// Package store owns the content-addressed path model.
//
// Ownership boundary:
// - store path / mirror path remapping
// - closure set construction and validation
// - required-minus-installed set difference
// - embedded store-path reference rewriting
package store
