// Package export serializes clustering results to their text formats.
//
// Three artifacts are written per run:
//   - UserMap: one line per cluster, "<clusterId> <address1> ... <addressK>"
//   - KeyMap: one line per address, "<address> <clusterId>"
//   - Graph: one line per edge, "<inputClusterId>,<outputClusterId>,<amount>"
//
// The analysis step can additionally write per-cluster value files
// ("<value> <clusterId>") for receipt counts and received amounts.
//
// The writers only read the ClusterView and edge slice they are given.
// Output is deterministic: clusters are written in ascending id order and
// addresses in the order the cluster builder recorded them.
package export
