package database

import (
	"context"
	"fmt"
)

// Comparison describes how two runs of a record file differ.
type Comparison struct {
	Base  RunMetadata
	Other RunMetadata

	// SameInput is true when both runs read a file with the same digest.
	SameInput bool

	// IdenticalMembership is true when both runs group the same addresses
	// into the same clusters, regardless of cluster ids.
	IdenticalMembership bool

	// ClusterDelta is Other's cluster count minus Base's.
	ClusterDelta int

	// AddedAddresses are in Other but not in Base.
	AddedAddresses int

	// RemovedAddresses are in Base but not in Other.
	RemovedAddresses int

	// MergedClusters counts Base clusters whose addresses ended up in a
	// cluster of Other that also holds addresses of another Base cluster.
	MergedClusters int
}

// CompareRuns compares the stored runs base and other.
func (rdb *RunDB) CompareRuns(ctx context.Context, baseID, otherID string) (*Comparison, error) {
	base, err := rdb.GetRunMetadata(ctx, baseID)
	if err != nil {
		return nil, err
	}
	other, err := rdb.GetRunMetadata(ctx, otherID)
	if err != nil {
		return nil, err
	}

	baseKeys, err := rdb.keyMap(ctx, baseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", baseID, err)
	}
	otherKeys, err := rdb.keyMap(ctx, otherID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", otherID, err)
	}

	c := &Comparison{
		Base:         *base,
		Other:        *other,
		SameInput:    base.InputDigest != "" && base.InputDigest == other.InputDigest,
		ClusterDelta: other.Summary.Clusters - base.Summary.Clusters,
	}

	for addr := range baseKeys {
		if _, ok := otherKeys[addr]; !ok {
			c.RemovedAddresses++
		}
	}
	for addr := range otherKeys {
		if _, ok := baseKeys[addr]; !ok {
			c.AddedAddresses++
		}
	}

	// Two partitions are identical when the cluster id correspondence
	// over shared addresses is a bijection.
	forward := make(map[int64]int64)
	backward := make(map[int64]int64)
	consistent := true
	for addr, b := range baseKeys {
		o, ok := otherKeys[addr]
		if !ok {
			continue
		}
		if prev, seen := forward[b]; seen && prev != o {
			consistent = false
		}
		if prev, seen := backward[o]; seen && prev != b {
			consistent = false
		}
		forward[b] = o
		backward[o] = b
	}

	// Other clusters fed by more than one base cluster.
	sources := make(map[int64]map[int64]struct{})
	for addr, b := range baseKeys {
		o, ok := otherKeys[addr]
		if !ok {
			continue
		}
		if sources[o] == nil {
			sources[o] = make(map[int64]struct{})
		}
		sources[o][b] = struct{}{}
	}
	for _, s := range sources {
		if len(s) > 1 {
			c.MergedClusters += len(s)
		}
	}

	c.IdenticalMembership = consistent && c.AddedAddresses == 0 && c.RemovedAddresses == 0
	return c, nil
}
