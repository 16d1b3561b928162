package analysis

import (
	"context"
	"log/slog"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/nao1215/addrcluster/internal/model"
)

// DefaultTop is the default length of the rankings.
const DefaultTop = 10

// Analyzer runs every analysis over one finalized run.
type Analyzer struct {
	top       int
	target    model.ClusterID
	hasTarget bool
	params    *chaincfg.Params
	logger    *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTop sets the length of the rankings.
func WithTop(n int) Option {
	return func(a *Analyzer) {
		a.top = n
	}
}

// WithTargetCluster enables the payer report for the given cluster.
func WithTargetCluster(id model.ClusterID) Option {
	return func(a *Analyzer) {
		a.target = id
		a.hasTarget = true
	}
}

// WithNetParams sets the network used to decode addresses.
func WithNetParams(params *chaincfg.Params) Option {
	return func(a *Analyzer) {
		a.params = params
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// NewAnalyzer creates an Analyzer. Rankings default to DefaultTop entries
// and addresses are decoded as main-net addresses.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		top:    DefaultTop,
		params: &chaincfg.MainNetParams,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze computes the analysis of a run. It checks ctx between analyses.
func (a *Analyzer) Analyze(ctx context.Context, view *model.ClusterView, records []model.TransactionRecord, edges []model.Edge) (*model.Analysis, error) {
	result := &model.Analysis{}

	result.Receipts, result.Received = Totals(view, records)
	result.TopReceipts = TopN(view, result.Receipts, a.top)
	result.TopReceived = TopN(view, result.Received, a.top)
	result.SizeDistribution = SizeDistribution(view)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.hasTarget {
		payers, err := Payers(view, records, a.target)
		if err != nil {
			return nil, err
		}
		result.Payers = payers
		a.logger.Debug("payers resolved", "target", a.target, "payers", len(payers.Payers))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.FlowRank = FlowRank(view, edges, a.top)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.AddressKinds = AddressKinds(view, a.params)

	a.logger.Debug("analysis complete",
		"top_receipts", len(result.TopReceipts),
		"flow_ranked", len(result.FlowRank),
		"address_kinds", len(result.AddressKinds),
	)
	return result, nil
}
