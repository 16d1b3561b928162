package model

import (
	"time"

	"github.com/google/uuid"
)

// Run is the accumulated result of processing one record file.
// Pipeline steps receive the same *Run in order and fill it in.
//
// Design decision: We use a single accumulator rather than passing results
// between steps explicitly. It mirrors the phase ordering (parse, index,
// merge, build maps, build graph, write) and gives reports and the run
// database one value to serialize.
type Run struct {
	// ID uniquely identifies the run in the history database.
	ID string `json:"id"`

	// Source is the path of the record file.
	Source string `json:"source"`

	// InputDigest is the hex SHA3-256 digest of the record file.
	InputDigest string `json:"input_digest,omitempty"`

	// StartedAt is when processing began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last step completed.
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// Summary holds the counters reported for the run.
	Summary Summary `json:"summary"`

	// Artifacts lists the files written by the run.
	Artifacts Artifacts `json:"artifacts"`

	// Warnings lists data-integrity observations that did not abort the run.
	Warnings []Warning `json:"warnings,omitempty"`

	// Analysis is filled by the optional analysis step.
	Analysis *Analysis `json:"analysis,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Records is the parsed record stream, retained for the graph passes.
	Records []TransactionRecord `json:"-"`

	// Clusters is the finalized UserMap/KeyMap view.
	Clusters *ClusterView `json:"-"`

	// Edges is the de-anonymized transaction graph.
	Edges []Edge `json:"-"`

	// Error is the error that stopped the run, if any.
	Error error `json:"-"`

	// ErrorMessage is the text of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`

	// Cancelled is true if the run was stopped by context cancellation.
	Cancelled bool `json:"cancelled,omitempty"`

	seenWarnings map[Warning]struct{}
}

// Summary contains the counters of a run.
type Summary struct {
	Records        int `json:"records"`
	InputRecords   int `json:"input_records"`
	OutputRecords  int `json:"output_records"`
	Transactions   int `json:"transactions"`
	Addresses      int `json:"addresses"`
	Clusters       int `json:"clusters"`
	LargestCluster int `json:"largest_cluster"`

	// MultiInputTransactions is the number of transactions with two or more
	// distinct input addresses, the only ones that merge clusters.
	MultiInputTransactions int `json:"multi_input_transactions"`

	// Unions is the number of unions that actually merged two sets.
	Unions int `json:"unions"`

	Edges int `json:"edges"`

	// SkippedRecords counts graph records dropped under a skip policy.
	SkippedRecords int `json:"skipped_records,omitempty"`

	// TotalOutputAmount is the sum of all output amounts.
	TotalOutputAmount uint64 `json:"total_output_amount"`
}

// Artifacts lists the paths of the files written by a run.
type Artifacts struct {
	UserMap string `json:"user_map,omitempty"`
	KeyMap  string `json:"key_map,omitempty"`
	Graph   string `json:"graph,omitempty"`

	// Receipts and Received are written by the analysis step.
	Receipts string `json:"receipts,omitempty"`
	Received string `json:"received,omitempty"`
}

// Warning kinds.
const (
	// WarningInconsistentInputs is raised when the inputs of one transaction
	// resolve to different clusters. The first input's cluster is used.
	WarningInconsistentInputs = "inconsistent_inputs"
	// WarningUnknownAddress is raised when an unknown address is skipped.
	WarningUnknownAddress = "unknown_address"
	// WarningMissingInputCluster is raised when an output without inputs is skipped.
	WarningMissingInputCluster = "missing_input_cluster"
)

// Warning is a data-integrity observation that did not abort the run.
type Warning struct {
	Kind          string `json:"kind"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

// NewRun creates a new run for the given record file.
func NewRun(source string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Source:    source,
		StartedAt: time.Now(),
		Warnings:  make([]Warning, 0),
	}
}

// AddWarning records a warning, ignoring exact duplicates.
func (r *Run) AddWarning(w Warning) {
	if r.seenWarnings == nil {
		r.seenWarnings = make(map[Warning]struct{}, len(r.Warnings)+1)
		for _, existing := range r.Warnings {
			r.seenWarnings[existing] = struct{}{}
		}
	}
	if _, ok := r.seenWarnings[w]; ok {
		return
	}
	r.seenWarnings[w] = struct{}{}
	r.Warnings = append(r.Warnings, w)
}

// Failed reports whether the run stopped with an error.
func (r *Run) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}
