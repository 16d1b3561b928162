// Package database provides the SQLite run history of addrcluster.
//
// RunDB stores, per processed record file:
//   - the run summary and the full JSON run report
//   - the KeyMap of the run (address to cluster id, in UserMap order)
//
// The history answers which cluster an address belonged to in a past run,
// lists the members of a stored cluster, and compares two runs of the same
// file (same input digest, identical membership, cluster count delta).
//
// SQLite via modernc.org/sqlite keeps the store a single CGO-free file.
// Writes are serialized over one connection; WAL mode keeps readers
// unblocked.
package database
