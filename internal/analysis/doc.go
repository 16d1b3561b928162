// Package analysis computes reports over a finalized clustering run.
//
// Every function here reads the ClusterView, the record slice and the edge
// slice without modifying them. Results are attached to the run as a
// model.Analysis and never feed back into clustering or graph construction.
//
// Available analyses:
//   - per-cluster receipt counts and received amounts, with top-N rankings
//   - the paying clusters of a target cluster
//   - PageRank over the aggregated cluster flow graph
//   - address kinds decoded with btcutil
//   - the cluster size distribution
package analysis
