package analysis

import "github.com/nao1215/addrcluster/internal/model"

// sizeBuckets are the cluster size ranges of the distribution.
// Max 0 is unbounded.
var sizeBuckets = []model.SizeBucket{
	{Label: "1", Min: 1, Max: 1},
	{Label: "2-10", Min: 2, Max: 10},
	{Label: "11-100", Min: 11, Max: 100},
	{Label: "101-1000", Min: 101, Max: 1000},
	{Label: ">1000", Min: 1001, Max: 0},
}

// SizeDistribution counts clusters per size bucket. All buckets are
// returned, including empty ones.
func SizeDistribution(view *model.ClusterView) []model.SizeBucket {
	buckets := make([]model.SizeBucket, len(sizeBuckets))
	copy(buckets, sizeBuckets)

	view.Each(func(_ model.ClusterID, addresses []string) bool {
		size := len(addresses)
		for i := range buckets {
			if size >= buckets[i].Min && (buckets[i].Max == 0 || size <= buckets[i].Max) {
				buckets[i].Clusters++
				break
			}
		}
		return true
	})
	return buckets
}
