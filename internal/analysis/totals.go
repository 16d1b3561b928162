package analysis

import (
	"cmp"
	"slices"

	"github.com/nao1215/addrcluster/internal/model"
)

// Totals returns, indexed by cluster id, the number of output records each
// cluster received and the sum of their amounts. Outputs to addresses that
// are not in the view are ignored.
func Totals(view *model.ClusterView, records []model.TransactionRecord) (receipts, received []uint64) {
	receipts = make([]uint64, view.NumClusters())
	received = make([]uint64, view.NumClusters())

	for _, r := range records {
		if !r.IsOutput() {
			continue
		}
		id, ok := view.ClusterOf(r.Address)
		if !ok {
			continue
		}
		receipts[id]++
		received[id] += r.Amount
	}
	return receipts, received
}

// TopN returns the n clusters with the largest non-zero values, highest
// first. Ties are broken by the lower cluster id. n <= 0 returns nil.
func TopN(view *model.ClusterView, values []uint64, n int) []model.ClusterStat {
	if n <= 0 {
		return nil
	}

	stats := make([]model.ClusterStat, 0, len(values))
	for id, v := range values {
		if v == 0 {
			continue
		}
		cid := model.ClusterID(id)
		stats = append(stats, model.ClusterStat{Cluster: cid, Size: view.Size(cid), Value: v})
	}

	slices.SortFunc(stats, func(a, b model.ClusterStat) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Cluster, b.Cluster)
	})

	if len(stats) > n {
		stats = stats[:n]
	}
	return stats
}
