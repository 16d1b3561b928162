package model

// Analysis holds reporting results computed over a finalized run.
// It never feeds back into clustering or graph construction.
type Analysis struct {
	// TopReceipts ranks clusters by number of output records received.
	TopReceipts []ClusterStat `json:"top_receipts,omitempty"`

	// TopReceived ranks clusters by total amount received.
	TopReceived []ClusterStat `json:"top_received,omitempty"`

	// FlowRank ranks clusters by PageRank over the aggregated flow graph.
	FlowRank []ClusterScore `json:"flow_rank,omitempty"`

	// Payers lists the clusters that paid a target cluster, if one was requested.
	Payers *PayerReport `json:"payers,omitempty"`

	// AddressKinds counts addresses per script kind (p2pkh, p2sh, ...).
	AddressKinds map[string]int `json:"address_kinds,omitempty"`

	// SizeDistribution buckets clusters by number of addresses.
	SizeDistribution []SizeBucket `json:"size_distribution,omitempty"`

	// Receipts and Received are the full per-cluster totals, indexed by
	// cluster id. They are written to files rather than serialized.
	Receipts []uint64 `json:"-"`
	Received []uint64 `json:"-"`
}

// ClusterStat is a cluster with an integer metric.
type ClusterStat struct {
	Cluster ClusterID `json:"cluster"`
	Size    int       `json:"size"`
	Value   uint64    `json:"value"`
}

// ClusterScore is a cluster with a real-valued score.
type ClusterScore struct {
	Cluster ClusterID `json:"cluster"`
	Size    int       `json:"size"`
	Score   float64   `json:"score"`
}

// PayerReport lists the input clusters of every transaction that paid
// an address of the target cluster.
type PayerReport struct {
	Target ClusterID     `json:"target"`
	Payers []PayerDetail `json:"payers"`
}

// PayerDetail is one paying cluster with its addresses.
type PayerDetail struct {
	Cluster   ClusterID `json:"cluster"`
	Addresses []string  `json:"addresses"`
}

// SizeBucket counts the clusters whose size lies in [Min, Max].
// Max == 0 means unbounded.
type SizeBucket struct {
	Label    string `json:"label"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Clusters int    `json:"clusters"`
}
