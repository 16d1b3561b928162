package model

// ClusterID is the dense identifier of a finalized cluster.
// It is unrelated to the internal forest root handles.
type ClusterID int64

// ClusterView is the read-only UserMap/KeyMap pair produced by the cluster
// builder. UserMap maps a cluster id to its addresses; KeyMap maps an
// address to its cluster id and is the exact inverse of UserMap.
//
// Design decision: We hand this view to every downstream consumer (graph
// builder, writers, analysis, reports) instead of sharing mutable maps.
// Accessors return copies or scalars so that callers cannot modify it.
type ClusterView struct {
	// users[id] holds the addresses of cluster id in insertion order.
	users [][]string

	// keys maps every address to its cluster id.
	keys map[string]ClusterID

	// largest is the size of the largest cluster.
	largest int
}

// NewClusterView builds a view from per-cluster address lists, where the
// slice index is the cluster id. The slices are owned by the view afterwards.
// Every address must appear in exactly one list.
func NewClusterView(users [][]string) *ClusterView {
	total := 0
	for _, addrs := range users {
		total += len(addrs)
	}

	v := &ClusterView{
		users: users,
		keys:  make(map[string]ClusterID, total),
	}
	for id, addrs := range users {
		for _, addr := range addrs {
			v.keys[addr] = ClusterID(id)
		}
		if len(addrs) > v.largest {
			v.largest = len(addrs)
		}
	}
	return v
}

// NumClusters returns the number of clusters.
func (v *ClusterView) NumClusters() int {
	return len(v.users)
}

// NumAddresses returns the number of distinct addresses.
func (v *ClusterView) NumAddresses() int {
	return len(v.keys)
}

// LargestClusterSize returns the number of addresses in the largest cluster.
func (v *ClusterView) LargestClusterSize() int {
	return v.largest
}

// ClusterOf returns the cluster id of an address (the KeyMap lookup).
func (v *ClusterView) ClusterOf(address string) (ClusterID, bool) {
	id, ok := v.keys[address]
	return id, ok
}

// Addresses returns a copy of the addresses of a cluster (the UserMap lookup).
// It returns nil for an id outside [0, NumClusters).
func (v *ClusterView) Addresses(id ClusterID) []string {
	if id < 0 || int(id) >= len(v.users) {
		return nil
	}
	out := make([]string, len(v.users[id]))
	copy(out, v.users[id])
	return out
}

// Size returns the number of addresses in a cluster, or 0 for an unknown id.
func (v *ClusterView) Size(id ClusterID) int {
	if id < 0 || int(id) >= len(v.users) {
		return 0
	}
	return len(v.users[id])
}

// Each calls fn for every cluster in ascending id order until fn returns false.
// The addresses slice must not be modified.
func (v *ClusterView) Each(fn func(id ClusterID, addresses []string) bool) {
	for id, addrs := range v.users {
		if !fn(ClusterID(id), addrs) {
			return
		}
	}
}
