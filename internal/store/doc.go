// Package store provides SQLite-backed storage for decomposed chains.
//
// The plan cache has five tables:
//   - ops: interned operators keyed by their content hash
//   - chains: one row per chain hash with its source and terminal
//   - chain_ops: the operator sequence of each chain
//   - plans: one row per stored decomposition, keyed by chain hash and
//     leading fold
//   - pieces: each decomposition, as ranges over chain_ops
//
// Decompose is a pure function of the chain and the leading fold option, so
// (chain hash, leading fold) names a decomposition exactly. SavePlan is
// idempotent on that key: a decomposition saved twice keeps its first rows
// and run ID.
//
// Reads are ordered deterministically: plans by chain name, hash and
// leading fold; ops and pieces by position.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
