package model

import "strconv"

// Edge is one money flow from the cluster that supplied a transaction's inputs
// to the cluster owning one of its outputs. Edges are never deduplicated or
// aggregated: every output record produces exactly one edge.
type Edge struct {
	// From is the input cluster of the transaction.
	From ClusterID `json:"from"`
	// To is the cluster owning the output address.
	To ClusterID `json:"to"`
	// Amount is the output value in the smallest currency unit.
	Amount uint64 `json:"amount"`
}

// String formats the edge as a graph-file line without the newline.
func (e Edge) String() string {
	return strconv.FormatInt(int64(e.From), 10) + "," +
		strconv.FormatInt(int64(e.To), 10) + "," +
		strconv.FormatUint(e.Amount, 10)
}
