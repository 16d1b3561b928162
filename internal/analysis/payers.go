package analysis

import (
	"fmt"
	"slices"

	"github.com/nao1215/addrcluster/internal/model"
)

// Payers finds every transaction that paid an address of target and returns
// the clusters that supplied the inputs of those transactions, in ascending
// id order. The target itself is listed if it paid itself.
func Payers(view *model.ClusterView, records []model.TransactionRecord, target model.ClusterID) (*model.PayerReport, error) {
	if target < 0 || int(target) >= view.NumClusters() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCluster, target)
	}

	paying := make(map[string]struct{})
	for _, r := range records {
		if !r.IsOutput() {
			continue
		}
		if id, ok := view.ClusterOf(r.Address); ok && id == target {
			paying[r.TransactionID] = struct{}{}
		}
	}

	seen := make(map[model.ClusterID]struct{})
	for _, r := range records {
		if !r.IsInput() {
			continue
		}
		if _, ok := paying[r.TransactionID]; !ok {
			continue
		}
		if id, ok := view.ClusterOf(r.Address); ok {
			seen[id] = struct{}{}
		}
	}

	ids := make([]model.ClusterID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	report := &model.PayerReport{
		Target: target,
		Payers: make([]model.PayerDetail, 0, len(ids)),
	}
	for _, id := range ids {
		report.Payers = append(report.Payers, model.PayerDetail{
			Cluster:   id,
			Addresses: view.Addresses(id),
		})
	}
	return report, nil
}
