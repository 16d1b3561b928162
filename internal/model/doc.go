// Package model defines the core data structures used throughout addrcluster.
//
// This package contains the following main types:
//   - TransactionRecord: One flat input or output row of a transaction
//   - ClusterView: The read-only UserMap/KeyMap pair derived from a partition
//   - Edge: One money flow between two clusters
//   - Run: The accumulated result of processing one record file
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The parser, cluster, txgraph, export, analysis and report
// packages all exchange these types, so centralizing them prevents import cycles.
//
// Run and its summary types are serializable to JSON for report output and
// database storage. Records, views and edges are excluded from JSON because
// they are persisted in their own line formats.
package model
