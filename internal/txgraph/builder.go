package txgraph

import (
	"fmt"
	"log/slog"

	"github.com/nao1215/addrcluster/internal/model"
)

// Policy decides what happens to a record that cannot be resolved.
type Policy int

const (
	// PolicyFail aborts graph construction with the error.
	PolicyFail Policy = iota
	// PolicySkip drops the record and records a warning.
	PolicySkip
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyFail:
		return "fail"
	case PolicySkip:
		return "skip"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a configuration name into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "fail":
		return PolicyFail, nil
	case "skip":
		return PolicySkip, nil
	default:
		return PolicyFail, fmt.Errorf("unknown policy %q: expected fail or skip", s)
	}
}

// Result is the outcome of a graph build.
type Result struct {
	// Edges holds one edge per resolved output record, in record order.
	Edges []model.Edge

	// Warnings lists skipped records and inconsistent input clusters.
	Warnings []model.Warning

	// Skipped is the number of records dropped under a skip policy.
	Skipped int
}

// Builder builds the cluster graph from a finalized view.
type Builder struct {
	view *model.ClusterView

	// unknownAddress applies to addresses absent from the key map.
	unknownAddress Policy

	// missingInput applies to outputs of transactions without inputs.
	missingInput Policy

	// checkConsistency enables the warning for transactions whose inputs
	// resolve to more than one cluster.
	checkConsistency bool

	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithUnknownAddressPolicy sets the policy for addresses absent from the key map.
func WithUnknownAddressPolicy(p Policy) Option {
	return func(b *Builder) {
		b.unknownAddress = p
	}
}

// WithMissingInputPolicy sets the policy for outputs without an input cluster.
func WithMissingInputPolicy(p Policy) Option {
	return func(b *Builder) {
		b.missingInput = p
	}
}

// WithConsistencyCheck enables or disables the inconsistent-inputs warning.
func WithConsistencyCheck(enabled bool) Option {
	return func(b *Builder) {
		b.checkConsistency = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a Builder over view. Both policies default to PolicyFail
// and the consistency check is enabled.
func NewBuilder(view *model.ClusterView, opts ...Option) *Builder {
	b := &Builder{
		view:             view,
		unknownAddress:   PolicyFail,
		missingInput:     PolicyFail,
		checkConsistency: true,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs both passes over records.
func (b *Builder) Build(records []model.TransactionRecord) (*Result, error) {
	result := &Result{
		Edges:    make([]model.Edge, 0),
		Warnings: make([]model.Warning, 0),
	}

	inputClusters, err := b.resolveInputs(records, result)
	if err != nil {
		return nil, err
	}

	if err := b.emitEdges(records, inputClusters, result); err != nil {
		return nil, err
	}

	b.logger.Debug("graph built",
		"edges", len(result.Edges),
		"transactions", len(inputClusters),
		"skipped", result.Skipped,
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// resolveInputs is pass 1: transaction id to the cluster of its first input.
// An existing mapping is never overwritten.
func (b *Builder) resolveInputs(records []model.TransactionRecord, result *Result) (map[string]model.ClusterID, error) {
	inputClusters := make(map[string]model.ClusterID)
	warned := make(map[string]bool)

	for i, r := range records {
		if !r.IsInput() {
			continue
		}

		id, ok := b.view.ClusterOf(r.Address)
		if !ok {
			err := &model.UnknownAddressError{Address: r.Address, TransactionID: r.TransactionID, Record: i + 1}
			if b.unknownAddress == PolicyFail {
				return nil, err
			}
			b.skip(result, model.WarningUnknownAddress, r.TransactionID, err)
			continue
		}

		existing, seen := inputClusters[r.TransactionID]
		if !seen {
			inputClusters[r.TransactionID] = id
			continue
		}

		if b.checkConsistency && existing != id && !warned[r.TransactionID] {
			warned[r.TransactionID] = true
			w := model.Warning{
				Kind:          model.WarningInconsistentInputs,
				TransactionID: r.TransactionID,
				Message: fmt.Sprintf("inputs resolve to clusters %d and %d; outputs are attributed to cluster %d",
					existing, id, existing),
			}
			result.Warnings = append(result.Warnings, w)
			b.logger.Warn("inconsistent input clusters",
				"transaction", r.TransactionID,
				"first", existing,
				"other", id,
			)
		}
	}
	return inputClusters, nil
}

// emitEdges is pass 2: one edge per output record.
func (b *Builder) emitEdges(records []model.TransactionRecord, inputClusters map[string]model.ClusterID, result *Result) error {
	for i, r := range records {
		if !r.IsOutput() {
			continue
		}

		from, ok := inputClusters[r.TransactionID]
		if !ok {
			err := &model.MissingInputClusterError{TransactionID: r.TransactionID, Record: i + 1}
			if b.missingInput == PolicyFail {
				return err
			}
			b.skip(result, model.WarningMissingInputCluster, r.TransactionID, err)
			continue
		}

		to, ok := b.view.ClusterOf(r.Address)
		if !ok {
			err := &model.UnknownAddressError{Address: r.Address, TransactionID: r.TransactionID, Record: i + 1}
			if b.unknownAddress == PolicyFail {
				return err
			}
			b.skip(result, model.WarningUnknownAddress, r.TransactionID, err)
			continue
		}

		result.Edges = append(result.Edges, model.Edge{From: from, To: to, Amount: r.Amount})
	}
	return nil
}

// skip records a dropped record.
func (b *Builder) skip(result *Result, kind, txID string, err error) {
	result.Skipped++
	result.Warnings = append(result.Warnings, model.Warning{
		Kind:          kind,
		TransactionID: txID,
		Message:       err.Error(),
	})
	b.logger.Debug("record skipped", "kind", kind, "transaction", txID, "error", err)
}
