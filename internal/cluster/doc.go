// Package cluster applies the common-input-ownership heuristic to a record
// stream and builds the resulting UserMap/KeyMap view.
//
// The work is split into the phases the heuristic requires:
//  1. AddressIndex assigns every distinct address a dense handle
//  2. GroupInputs collects the distinct input addresses of each transaction
//  3. Merge unions the addresses of every multi-input transaction
//  4. BuildView enumerates the finalized forest into a model.ClusterView
//
// Grouping is read-only and may run on several goroutines. Merging mutates
// the shared forest and always runs on the calling goroutine.
package cluster
