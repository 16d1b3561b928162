package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/addrcluster/internal/config"
	"github.com/nao1215/addrcluster/internal/database"
	"github.com/nao1215/addrcluster/internal/model"
	"github.com/nao1215/addrcluster/internal/pipeline"
	"github.com/nao1215/addrcluster/internal/report"
)

// errRunsFailed is returned when at least one record file could not be processed.
var errRunsFailed = errors.New("one or more record files failed")

// NewClusterCmd creates the cluster command.
func NewClusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster <records-file>...",
		Short: "Cluster the addresses of one or more record files",
		Long: `Cluster reads a record file and groups every address into a cluster. Addresses
that were spent together as inputs of one transaction share a cluster.

Each record file line holds five whitespace-separated fields:

  <txid> <tx-hash> <address> <amount> <in|out>

The following files are written to the output directory:
- usermap.txt: one line per cluster, "id address..."
- keymap.txt:  one line per address, "address id"
- graph.txt:   one line per output record, "from,to,amount"

With --analyze, receipts.txt and received.txt hold per-cluster totals.

Examples:
  # Cluster one record file into the current directory
  addrcluster cluster records.txt

  # Write the artifacts to out/ and print a JSON report
  addrcluster cluster -o out --json records.txt

  # Process several files, two at a time, each into out/<file name>/
  addrcluster cluster -o out -b 2 2012.txt 2013.txt 2014.txt

  # Drop records that reference unknown addresses instead of failing
  addrcluster cluster --skip-unknown --skip-missing-input records.txt

  # Rank clusters and list the payers of cluster 42
  addrcluster cluster --analyze --target-cluster 42 records.txt

  # Classify testnet addresses in the analysis
  addrcluster cluster --analyze --network testnet testnet.txt

Configuration file (.addrcluster) example:
  defaults:
    onMissingInput: skip
  inputs:
    records.txt:
      outputDir: out/records`,
		Args: cobra.ArbitraryArgs,
		RunE: runClusterCmd,
	}

	// Output flags
	cmd.Flags().StringP("output-dir", "o", "",
		"Directory for the UserMap, KeyMap and graph files (default: config file or current directory)")

	// Processing flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers(),
		"Number of goroutines grouping input records")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of record files processed at once")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .addrcluster in current or home directory, then the XDG config directory)")

	// Graph policy flags
	cmd.Flags().Bool("skip-unknown", false,
		"Skip output records whose address has no cluster instead of failing")
	cmd.Flags().Bool("skip-missing-input", false,
		"Skip output records whose transaction has no input records instead of failing")
	cmd.Flags().Bool("no-consistency-check", false,
		"Do not warn about transactions whose inputs span several clusters")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report", "r", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-db", false,
		"Do not store the run in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	// Analysis flags
	cmd.Flags().BoolP("analyze", "a", false,
		"Rank clusters and write per-cluster totals")
	cmd.Flags().IntP("top", "n", config.DefaultTop,
		"Number of clusters listed in each ranking")
	cmd.Flags().Int64P("target-cluster", "t", config.NoTargetCluster,
		"List the clusters that paid this cluster (implies --analyze)")
	cmd.Flags().String("network", "",
		"Network used to classify addresses: mainnet, testnet, regtest or signet (default: config file or mainnet)")

	return cmd
}

// runClusterCmd executes the cluster command.
func runClusterCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose, cfg.LogJSON)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCluster(ctx, cmd, cfg, logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.InputConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.InputConfigs = &config.File{
			Inputs: make(map[string]config.InputConfig),
		}
	}

	if cfg.SkipUnknown, err = cmd.Flags().GetBool("skip-unknown"); err != nil {
		return nil, err
	}
	if cfg.SkipMissingInput, err = cmd.Flags().GetBool("skip-missing-input"); err != nil {
		return nil, err
	}
	if cfg.NoConsistencyCheck, err = cmd.Flags().GetBool("no-consistency-check"); err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("report")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	if cfg.Analyze, err = cmd.Flags().GetBool("analyze"); err != nil {
		return nil, err
	}
	if cfg.Top, err = cmd.Flags().GetInt("top"); err != nil {
		return nil, err
	}
	if cfg.TargetCluster, err = cmd.Flags().GetInt64("target-cluster"); err != nil {
		return nil, err
	}
	if cfg.Network, err = cmd.Flags().GetString("network"); err != nil {
		return nil, err
	}

	cfg.Verbose = getPersistentBool(cmd, "verbose")
	cfg.LogJSON = getPersistentBool(cmd, "log-json")

	// Positional arguments are record files
	cfg.Inputs = args

	return cfg, nil
}

// newPipelineFactory returns a factory that builds the pipeline of one record file.
func newPipelineFactory(cfg *config.Config, logger *slog.Logger) func(source string) (*pipeline.Pipeline, error) {
	return func(source string) (*pipeline.Pipeline, error) {
		configOpts, err := pipeline.SettingsOptions(cfg.ForInput(source))
		if err != nil {
			return nil, err
		}
		configOpts = append(configOpts,
			pipeline.WithPipelineWorkers(cfg.Workers),
			pipeline.WithPipelineLogger(logger),
		)
		if cfg.AnalysisEnabled() {
			configOpts = append(configOpts, pipeline.WithPipelineAnalysis(cfg.Top, cfg.TargetCluster))
		}

		pipelineOpts := []pipeline.Option{
			pipeline.WithLogger(logger),
		}
		return pipeline.DefaultPipeline(pipelineOpts, configOpts...), nil
	}
}

// runCluster processes every record file and reports the runs.
func runCluster(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting clustering",
		"inputs", len(cfg.Inputs),
		"workers", cfg.Workers,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.RunDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	output, closeOutput, err := openReportOutput(cmd.OutOrStdout(), cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOutput()

	writer := newReportWriter(cfg, output)

	bp := pipeline.NewBatchProcessor(
		newPipelineFactory(cfg, logger),
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	runs := make([]*model.Run, len(cfg.Inputs))

	// Process with callback for streaming output
	var mu sync.Mutex
	batchErr := bp.ProcessBatchWithCallback(ctx, cfg.Inputs, func(run *model.Run, index int) {
		mu.Lock()
		defer mu.Unlock()

		runs[index] = run
		if _, err := writer.Write(run); err != nil {
			logger.Error("report failed", "source", run.Source, "error", err)
		}

		if err := saveRun(ctx, db, run, logger); err != nil {
			logger.Error("failed to save run", "source", run.Source, "error", err)
		}
	})

	if len(cfg.Inputs) > 1 {
		if _, err := writer.WriteSummary(runs); err != nil {
			logger.Error("summary report failed", "error", err)
		}
	}

	logger.Info("clustering complete",
		"inputs", len(cfg.Inputs),
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	if batchErr != nil {
		return batchErr
	}
	for _, run := range runs {
		if run == nil || run.Failed() {
			return errRunsFailed
		}
	}
	return nil
}

// openReportOutput returns the report destination and its close function.
func openReportOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list addresses and should only be readable by the owner
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newReportWriter returns the writer for the requested report format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// saveRun stores the run in the database if enabled.
// If db is nil, this function is a no-op.
func saveRun(ctx context.Context, db *database.RunDB, run *model.Run, logger *slog.Logger) error {
	if db == nil {
		return nil
	}
	// Runs stopped by a signal still have partial data worth keeping
	if err := db.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	logger.Info("run saved to database", "source", run.Source, "id", run.ID)
	return nil
}
