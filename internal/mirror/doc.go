// Package mirror owns the remote store mirroring engine.
//
// Ownership boundary:
// - installation ledger (remote marker records)
// - per-artifact tree replication with reference rewriting
// - orchestration across missing artifacts
//
// All remote operations are issued strictly sequentially: the transport is
// one shared channel, and nothing here overlaps work between entries or
// between artifacts. Concurrent runs against the same mirror root are
// unsupported; there is no locking.
package mirror
