package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/crypto/sha3"

	"github.com/nao1215/addrcluster/internal/analysis"
	"github.com/nao1215/addrcluster/internal/cluster"
	"github.com/nao1215/addrcluster/internal/config"
	"github.com/nao1215/addrcluster/internal/export"
	"github.com/nao1215/addrcluster/internal/model"
	"github.com/nao1215/addrcluster/internal/parser"
	"github.com/nao1215/addrcluster/internal/txgraph"
)

// ErrMissingClusters is returned by steps that need a cluster view when an
// earlier step did not produce one.
var ErrMissingClusters = errors.New("run has no cluster view")

// ParseStep reads the record file named by the run's source.
// The file is hashed while it is parsed so that stored runs can be
// matched by content.
type ParseStep struct {
	logger *slog.Logger
}

// ParseStepOption configures a ParseStep.
type ParseStepOption func(*ParseStep)

// WithParseLogger sets a custom logger for the parse step.
func WithParseLogger(logger *slog.Logger) ParseStepOption {
	return func(s *ParseStep) {
		s.logger = logger
	}
}

// NewParseStep creates a new parse step.
func NewParseStep(opts ...ParseStepOption) *ParseStep {
	s := &ParseStep{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ParseStep) Name() string {
	return "parse"
}

// Do executes the parse step.
func (s *ParseStep) Do(_ context.Context, run *model.Run) error {
	hasher := sha3.New256()
	records, err := parser.ParseFile(run.Source, hasher)
	if err != nil {
		return err
	}

	run.Records = records
	run.InputDigest = hex.EncodeToString(hasher.Sum(nil))
	countRecords(run)

	s.logger.Debug("records parsed",
		"source", run.Source,
		"records", run.Summary.Records,
		"transactions", run.Summary.Transactions,
	)
	return nil
}

// countRecords fills the record counters of the run summary.
func countRecords(run *model.Run) {
	txs := make(map[string]struct{})
	run.Summary.Records = len(run.Records)
	run.Summary.InputRecords = 0
	run.Summary.OutputRecords = 0
	run.Summary.TotalOutputAmount = 0
	for _, r := range run.Records {
		txs[r.TransactionID] = struct{}{}
		if r.IsInput() {
			run.Summary.InputRecords++
		} else {
			run.Summary.OutputRecords++
			run.Summary.TotalOutputAmount += r.Amount
		}
	}
	run.Summary.Transactions = len(txs)
}

// ClusterStep indexes addresses, merges joint inputs and builds the
// cluster view.
type ClusterStep struct {
	workers int
	logger  *slog.Logger
}

// ClusterStepOption configures a ClusterStep.
type ClusterStepOption func(*ClusterStep)

// WithClusterWorkers sets the number of goroutines used to group inputs.
func WithClusterWorkers(n int) ClusterStepOption {
	return func(s *ClusterStep) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithClusterLogger sets a custom logger for the cluster step.
func WithClusterLogger(logger *slog.Logger) ClusterStepOption {
	return func(s *ClusterStep) {
		s.logger = logger
	}
}

// NewClusterStep creates a new cluster step.
func NewClusterStep(opts ...ClusterStepOption) *ClusterStep {
	s := &ClusterStep{
		workers: config.DefaultWorkers(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ClusterStep) Name() string {
	return "cluster"
}

// Do executes the cluster step.
func (s *ClusterStep) Do(ctx context.Context, run *model.Run) error {
	result, err := cluster.New(
		cluster.WithWorkers(s.workers),
		cluster.WithLogger(s.logger),
	).Run(ctx, run.Records)
	if err != nil {
		return err
	}

	run.Clusters = result.View
	run.Summary.Addresses = result.View.NumAddresses()
	run.Summary.Clusters = result.NumSets
	run.Summary.LargestCluster = result.LargestSize
	run.Summary.MultiInputTransactions = result.Stats.MultiInputGroups
	run.Summary.Unions = result.Stats.Unions

	s.logger.Info("addresses clustered",
		"source", run.Source,
		"addresses", run.Summary.Addresses,
		"clusters", run.Summary.Clusters,
		"largest", run.Summary.LargestCluster,
		"largest_root", result.LargestRoot,
	)
	return nil
}

// ExportMapsStep writes the UserMap and KeyMap files.
type ExportMapsStep struct {
	exporter *export.Exporter
}

// NewExportMapsStep creates a step writing through exporter.
func NewExportMapsStep(exporter *export.Exporter) *ExportMapsStep {
	return &ExportMapsStep{exporter: exporter}
}

// Name returns the step name.
func (s *ExportMapsStep) Name() string {
	return "export-maps"
}

// Do executes the export step.
func (s *ExportMapsStep) Do(_ context.Context, run *model.Run) error {
	if run.Clusters == nil {
		return ErrMissingClusters
	}

	userMap, keyMap, err := s.exporter.ExportMaps(run.Clusters)
	if err != nil {
		return err
	}
	run.Artifacts.UserMap = userMap
	run.Artifacts.KeyMap = keyMap
	return nil
}

// GraphStep builds the cluster-to-cluster transaction graph.
type GraphStep struct {
	unknownAddress   txgraph.Policy
	missingInput     txgraph.Policy
	checkConsistency bool
	logger           *slog.Logger
}

// GraphStepOption configures a GraphStep.
type GraphStepOption func(*GraphStep)

// WithGraphPolicies sets the unknown-address and missing-input policies.
func WithGraphPolicies(unknownAddress, missingInput txgraph.Policy) GraphStepOption {
	return func(s *GraphStep) {
		s.unknownAddress = unknownAddress
		s.missingInput = missingInput
	}
}

// WithGraphConsistencyCheck enables or disables the inconsistent-inputs warning.
func WithGraphConsistencyCheck(enabled bool) GraphStepOption {
	return func(s *GraphStep) {
		s.checkConsistency = enabled
	}
}

// WithGraphLogger sets a custom logger for the graph step.
func WithGraphLogger(logger *slog.Logger) GraphStepOption {
	return func(s *GraphStep) {
		s.logger = logger
	}
}

// NewGraphStep creates a new graph step. Both policies default to fail.
func NewGraphStep(opts ...GraphStepOption) *GraphStep {
	s := &GraphStep{
		unknownAddress:   txgraph.PolicyFail,
		missingInput:     txgraph.PolicyFail,
		checkConsistency: true,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *GraphStep) Name() string {
	return "graph"
}

// Do executes the graph step.
func (s *GraphStep) Do(_ context.Context, run *model.Run) error {
	if run.Clusters == nil {
		return ErrMissingClusters
	}

	result, err := txgraph.NewBuilder(run.Clusters,
		txgraph.WithUnknownAddressPolicy(s.unknownAddress),
		txgraph.WithMissingInputPolicy(s.missingInput),
		txgraph.WithConsistencyCheck(s.checkConsistency),
		txgraph.WithLogger(s.logger),
	).Build(run.Records)
	if err != nil {
		return err
	}

	run.Edges = result.Edges
	run.Summary.Edges = len(result.Edges)
	run.Summary.SkippedRecords = result.Skipped
	for _, w := range result.Warnings {
		run.AddWarning(w)
	}
	return nil
}

// ExportGraphStep writes the graph file.
type ExportGraphStep struct {
	exporter *export.Exporter
}

// NewExportGraphStep creates a step writing through exporter.
func NewExportGraphStep(exporter *export.Exporter) *ExportGraphStep {
	return &ExportGraphStep{exporter: exporter}
}

// Name returns the step name.
func (s *ExportGraphStep) Name() string {
	return "export-graph"
}

// Do executes the export step.
func (s *ExportGraphStep) Do(_ context.Context, run *model.Run) error {
	path, err := s.exporter.ExportGraph(run.Edges)
	if err != nil {
		return err
	}
	run.Artifacts.Graph = path
	return nil
}

// AnalyzeStep computes the reporting analyses of a finished run and, when
// an exporter is set, writes the per-cluster receipt totals.
type AnalyzeStep struct {
	analyzer *analysis.Analyzer
	exporter *export.Exporter
}

// AnalyzeStepOption configures an AnalyzeStep.
type AnalyzeStepOption func(*AnalyzeStep)

// WithAnalyzeExporter writes the receipts and received files through exporter.
func WithAnalyzeExporter(exporter *export.Exporter) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.exporter = exporter
	}
}

// NewAnalyzeStep creates a new analysis step.
func NewAnalyzeStep(analyzer *analysis.Analyzer, opts ...AnalyzeStepOption) *AnalyzeStep {
	s := &AnalyzeStep{analyzer: analyzer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return "analyze"
}

// Do executes the analysis step.
func (s *AnalyzeStep) Do(ctx context.Context, run *model.Run) error {
	if run.Clusters == nil {
		return ErrMissingClusters
	}

	result, err := s.analyzer.Analyze(ctx, run.Clusters, run.Records, run.Edges)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	run.Analysis = result

	if s.exporter == nil {
		return nil
	}
	receipts, received, err := s.exporter.ExportTotals(result.Receipts, result.Received)
	if err != nil {
		return err
	}
	run.Artifacts.Receipts = receipts
	run.Artifacts.Received = received
	return nil
}

// DefaultPipelineConfig holds the settings of DefaultPipeline.
type DefaultPipelineConfig struct {
	// Workers is the number of goroutines grouping input records.
	Workers int

	// OutputDir is where artifacts are written.
	OutputDir string

	// UserMapFile, KeyMapFile and GraphFile override artifact file names.
	UserMapFile string
	KeyMapFile  string
	GraphFile   string

	// UnknownAddress and MissingInput are the graph policies.
	UnknownAddress txgraph.Policy
	MissingInput   txgraph.Policy

	// CheckConsistency enables the inconsistent-inputs warning.
	CheckConsistency bool

	// Analyze appends the analysis step.
	Analyze bool

	// Top is the length of the analysis rankings.
	Top int

	// TargetCluster enables the payer report when not negative.
	TargetCluster int64

	// NetParams is the network used to classify addresses.
	NetParams *chaincfg.Params

	// Logger is passed to every step.
	Logger *slog.Logger
}

// DefaultPipelineOption configures DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineWorkers sets the number of grouping goroutines.
func WithPipelineWorkers(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		if n > 0 {
			c.Workers = n
		}
	}
}

// WithPipelineOutputDir sets the artifact directory.
func WithPipelineOutputDir(dir string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.OutputDir = dir
	}
}

// WithPipelineFileNames overrides artifact file names. Empty names keep
// the defaults.
func WithPipelineFileNames(userMap, keyMap, graph string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UserMapFile = userMap
		c.KeyMapFile = keyMap
		c.GraphFile = graph
	}
}

// WithPipelinePolicies sets the graph policies.
func WithPipelinePolicies(unknownAddress, missingInput txgraph.Policy) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UnknownAddress = unknownAddress
		c.MissingInput = missingInput
	}
}

// WithPipelineConsistencyCheck enables or disables the consistency check.
func WithPipelineConsistencyCheck(enabled bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.CheckConsistency = enabled
	}
}

// WithPipelineAnalysis appends the analysis step with the given ranking
// length and payer target. A negative target disables the payer report.
func WithPipelineAnalysis(top int, target int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Analyze = true
		c.Top = top
		c.TargetCluster = target
	}
}

// WithPipelineNetParams sets the network used to classify addresses.
func WithPipelineNetParams(params *chaincfg.Params) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		if params != nil {
			c.NetParams = params
		}
	}
}

// WithPipelineLogger sets the logger passed to every step.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// SettingsOptions converts resolved per-input settings into pipeline options.
func SettingsOptions(s config.InputSettings) ([]DefaultPipelineOption, error) {
	unknownAddress, err := txgraph.ParsePolicy(s.UnknownAddress)
	if err != nil {
		return nil, fmt.Errorf("unknown address policy: %w", err)
	}
	missingInput, err := txgraph.ParsePolicy(s.MissingInput)
	if err != nil {
		return nil, fmt.Errorf("missing input policy: %w", err)
	}
	network := s.Network
	if network == "" {
		network = config.DefaultNetwork
	}
	params, err := analysis.NetParams(network)
	if err != nil {
		return nil, err
	}

	return []DefaultPipelineOption{
		WithPipelineOutputDir(s.OutputDir),
		WithPipelineFileNames(s.UserMapFile, s.KeyMapFile, s.GraphFile),
		WithPipelinePolicies(unknownAddress, missingInput),
		WithPipelineConsistencyCheck(s.CheckConsistency),
		WithPipelineNetParams(params),
	}, nil
}

// DefaultPipeline creates a pipeline with the standard steps:
// parse, cluster, export-maps, graph, export-graph and, if enabled, analyze.
func DefaultPipeline(pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	cfg := &DefaultPipelineConfig{
		Workers:          config.DefaultWorkers(),
		OutputDir:        config.DefaultOutputDir,
		UnknownAddress:   txgraph.PolicyFail,
		MissingInput:     txgraph.PolicyFail,
		CheckConsistency: true,
		Top:              config.DefaultTop,
		TargetCluster:    config.NoTargetCluster,
		NetParams:        &chaincfg.MainNetParams,
		Logger:           slog.Default(),
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p := New(append([]Option{WithLogger(cfg.Logger)}, pipelineOpts...)...)

	exporter := export.NewExporter(cfg.OutputDir,
		export.WithUserMapName(cfg.UserMapFile),
		export.WithKeyMapName(cfg.KeyMapFile),
		export.WithGraphName(cfg.GraphFile),
		export.WithLogger(cfg.Logger),
	)

	p.AddSteps(
		NewParseStep(WithParseLogger(cfg.Logger)),
		NewClusterStep(
			WithClusterWorkers(cfg.Workers),
			WithClusterLogger(cfg.Logger),
		),
		NewExportMapsStep(exporter),
		NewGraphStep(
			WithGraphPolicies(cfg.UnknownAddress, cfg.MissingInput),
			WithGraphConsistencyCheck(cfg.CheckConsistency),
			WithGraphLogger(cfg.Logger),
		),
		NewExportGraphStep(exporter),
	)

	if cfg.Analyze {
		analyzerOpts := []analysis.Option{
			analysis.WithTop(cfg.Top),
			analysis.WithNetParams(cfg.NetParams),
			analysis.WithLogger(cfg.Logger),
		}
		if cfg.TargetCluster >= 0 {
			analyzerOpts = append(analyzerOpts, analysis.WithTargetCluster(model.ClusterID(cfg.TargetCluster)))
		}
		p.AddStep(NewAnalyzeStep(
			analysis.NewAnalyzer(analyzerOpts...),
			WithAnalyzeExporter(exporter),
		))
	}
	return p
}
