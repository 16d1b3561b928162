package cluster

import (
	"github.com/nao1215/addrcluster/internal/model"
	"github.com/nao1215/addrcluster/internal/unionfind"
)

// BuildView enumerates every handle of a finalized forest and groups the
// addresses by root. Cluster ids are assigned densely from 0 in the order
// roots are first met, and addresses keep handle order within a cluster.
func BuildView(forest *unionfind.Forest, index *AddressIndex) *model.ClusterView {
	n := forest.Len()
	ids := make([]int, n)
	for i := range ids {
		ids[i] = -1
	}

	users := make([][]string, 0, forest.NumSets())
	for h := range n {
		root := forest.Find(h)
		if ids[root] < 0 {
			ids[root] = len(users)
			users = append(users, make([]string, 0, forest.SetSize(root)))
		}
		id := ids[root]
		users[id] = append(users[id], index.Address(h))
	}

	return model.NewClusterView(users)
}
