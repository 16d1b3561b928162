package cluster

import (
	"fmt"

	"github.com/nao1215/addrcluster/internal/unionfind"
)

// MergeStats counts what a merge pass did.
type MergeStats struct {
	// Groups is the number of transactions with at least one input.
	Groups int
	// MultiInputGroups is the number of transactions with two or more
	// distinct input addresses.
	MultiInputGroups int
	// Unions is the number of unions that joined two distinct sets.
	Unions int
}

// Merge applies the common-input-ownership heuristic: the first address of
// every group is unioned with each other address of the group. Groups with a
// single address contribute nothing.
//
// Merge must run on one goroutine. It panics if a group references an address
// missing from index, since both are built from the same records.
func Merge(forest *unionfind.Forest, index *AddressIndex, groups []InputGroup) MergeStats {
	stats := MergeStats{Groups: len(groups)}

	for _, grp := range groups {
		if len(grp.Addresses) < 2 {
			continue
		}
		stats.MultiInputGroups++

		first := mustHandle(index, grp.Addresses[0])
		for _, addr := range grp.Addresses[1:] {
			if forest.Union(first, mustHandle(index, addr)) {
				stats.Unions++
			}
		}
	}
	return stats
}

// mustHandle resolves an address that is known to be indexed.
func mustHandle(index *AddressIndex, address string) int {
	h, ok := index.Handle(address)
	if !ok {
		panic(fmt.Sprintf("cluster: address %q missing from index", address))
	}
	return h
}
