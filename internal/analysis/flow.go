package analysis

import (
	"cmp"
	"math"
	"slices"

	"github.com/nao1215/addrcluster/internal/model"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

const (
	// pageRankDamping is the damping factor of the flow ranking.
	pageRankDamping = 0.85
	// pageRankTolerance is the convergence tolerance of the flow ranking.
	pageRankTolerance = 1e-6
)

// FlowGraph aggregates edges into a weighted directed graph between
// clusters. Parallel edges are summed into one weight. Self-loops (change
// paid back to the spending cluster) carry no flow between clusters and
// are left out.
func FlowGraph(edges []model.Edge) *simple.WeightedDirectedGraph {
	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))

	type pair struct{ from, to model.ClusterID }
	weights := make(map[pair]float64)
	order := make([]pair, 0)

	for _, e := range edges {
		if e.From == e.To {
			continue
		}
		p := pair{from: e.From, to: e.To}
		if _, ok := weights[p]; !ok {
			order = append(order, p)
		}
		weights[p] += float64(e.Amount)
	}

	for _, p := range order {
		for _, id := range []model.ClusterID{p.from, p.to} {
			if g.Node(int64(id)) == nil {
				g.AddNode(simple.Node(int64(id)))
			}
		}
		g.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(int64(p.from)),
			T: simple.Node(int64(p.to)),
			W: weights[p],
		})
	}
	return g
}

// FlowRank ranks the clusters of the flow graph by edge-weighted PageRank
// and returns the n highest scores. Ties are broken by the lower cluster id.
func FlowRank(view *model.ClusterView, edges []model.Edge, n int) []model.ClusterScore {
	if n <= 0 {
		return nil
	}

	g := FlowGraph(edges)
	if g.Nodes().Len() == 0 {
		return nil
	}

	scores := network.PageRank(g, pageRankDamping, pageRankTolerance)

	ranked := make([]model.ClusterScore, 0, len(scores))
	for id, score := range scores {
		cid := model.ClusterID(id)
		ranked = append(ranked, model.ClusterScore{Cluster: cid, Size: view.Size(cid), Score: score})
	}

	slices.SortFunc(ranked, func(a, b model.ClusterScore) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Cluster, b.Cluster)
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
