// Package txgraph reconstructs the de-anonymized transaction graph between
// clusters.
//
// The builder makes two passes over the record stream and reads nothing but
// the finalized cluster view:
//   - pass 1 maps every transaction to the cluster of its first input
//   - pass 2 emits one edge per output record, from the transaction's input
//     cluster to the cluster of the output address
//
// Edges are neither deduplicated nor aggregated.
package txgraph
