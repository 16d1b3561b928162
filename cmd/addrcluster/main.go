// Package main provides the entry point for the addrcluster CLI.
//
// addrcluster groups Bitcoin addresses into clusters that are likely
// controlled by one owner, using the common-input-ownership heuristic, and
// builds the cluster-to-cluster transaction graph.
//
// Usage:
//
//	addrcluster cluster <records-file>...
//	addrcluster history [records-file]
//
// See --help for all available options.
package main

// main is the entry point for addrcluster.
func main() {
	Execute()
}
