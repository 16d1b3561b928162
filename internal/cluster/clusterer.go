package cluster

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/nao1215/addrcluster/internal/model"
	"github.com/nao1215/addrcluster/internal/unionfind"
)

// Result is the outcome of clustering one record stream.
type Result struct {
	// Index is the address index the forest was built over.
	Index *AddressIndex

	// View is the finalized UserMap/KeyMap view.
	View *model.ClusterView

	// Stats describes the merge pass.
	Stats MergeStats

	// NumSets is the number of clusters reported by the forest.
	NumSets int

	// LargestSize is the largest cluster size tracked during merging.
	LargestSize int

	// LargestRoot is an address of the largest cluster.
	LargestRoot string
}

// Clusterer runs the index, group, merge and build phases in order.
type Clusterer struct {
	// workers is the number of goroutines used for grouping.
	workers int

	// logger for structured logging.
	logger *slog.Logger
}

// Option configures a Clusterer.
type Option func(*Clusterer)

// WithWorkers sets the number of goroutines used to group input records.
// Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(c *Clusterer) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Clusterer) {
		c.logger = logger
	}
}

// New creates a Clusterer. By default it groups with one worker per CPU.
func New(opts ...Option) *Clusterer {
	c := &Clusterer{
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run clusters the addresses of records.
// The context is only consulted while grouping; the merge itself is not interruptible.
func (c *Clusterer) Run(ctx context.Context, records []model.TransactionRecord) (*Result, error) {
	index := NewAddressIndex(records)
	c.logger.Debug("addresses indexed", "addresses", index.Len())

	groups, err := GroupInputs(ctx, records, c.workers)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("input records grouped", "transactions", len(groups), "workers", c.workers)

	forest := unionfind.New(index.Len())
	stats := Merge(forest, index, groups)
	c.logger.Debug("addresses merged",
		"multi_input_transactions", stats.MultiInputGroups,
		"unions", stats.Unions,
		"clusters", forest.NumSets(),
	)

	result := &Result{
		Index:       index,
		View:        BuildView(forest, index),
		Stats:       stats,
		NumSets:     forest.NumSets(),
		LargestSize: forest.MaxSize(),
	}
	if index.Len() > 0 {
		result.LargestRoot = index.Address(forest.MaxRoot())
	}
	return result, nil
}
