package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/addrcluster/internal/config"
	"github.com/nao1215/addrcluster/internal/database"
	"github.com/nao1215/addrcluster/internal/model"
	"github.com/nao1215/addrcluster/internal/report"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// This command reads runs stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [records-file]",
		Short: "Inspect stored clustering runs",
		Long: `History lists the runs stored by 'addrcluster cluster' and answers questions
about them without re-reading the record file.

The record file argument is matched against the path given to the cluster
command, so use the same spelling.

Examples:
  # List the most recent runs of every file
  addrcluster history

  # List the runs of one record file
  addrcluster history records.txt

  # Find the cluster of an address in the latest run of a file
  addrcluster history --lookup 1BoatSLRHtKNngkdXEeobR76b53LETtpyT records.txt

  # Find the cluster of an address in a specific run
  addrcluster history --lookup 1BoatSLRHtKNngkdXEeobR76b53LETtpyT --run <run-id>

  # Show the report of a stored run
  addrcluster history --run <run-id>

  # Compare the latest two runs of a file
  addrcluster history --compare records.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("lookup", "l", "",
		"Print the cluster and co-members of this address")
	cmd.Flags().StringP("run", "r", "",
		"Run id to inspect (default: latest run of the record file)")
	cmd.Flags().BoolP("compare", "C", false,
		"Compare the latest two runs of the record file")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs listed")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	source  string
	lookup  string
	runID   string
	compare bool
	json    bool
	limit   int
	dbDir   string
}

// parseHistoryFlags reads and validates the history command flags.
func parseHistoryFlags(cmd *cobra.Command, args []string) (*historyOptions, error) {
	opts := &historyOptions{dbDir: config.XDGDataDir()}
	if len(args) > 0 {
		opts.source = args[0]
	}

	var err error
	if opts.lookup, err = cmd.Flags().GetString("lookup"); err != nil {
		return nil, err
	}
	if opts.runID, err = cmd.Flags().GetString("run"); err != nil {
		return nil, err
	}
	if opts.compare, err = cmd.Flags().GetBool("compare"); err != nil {
		return nil, err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return nil, err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		opts.dbDir = dbDir
	}

	// Validate before opening the database
	if opts.compare && opts.source == "" {
		return nil, errors.New("record file is required for --compare")
	}
	if opts.compare && opts.lookup != "" {
		return nil, errors.New("--compare and --lookup are mutually exclusive")
	}
	if opts.lookup != "" && opts.runID == "" && opts.source == "" {
		return nil, errors.New("--lookup needs a record file or --run")
	}
	if opts.limit <= 0 {
		return nil, errors.New("--limit must be positive")
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd, args)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.compare:
		return compareLatestRuns(ctx, out, db, opts)
	case opts.lookup != "":
		return lookupAddress(ctx, out, db, opts)
	case opts.runID != "":
		return showRun(ctx, out, db, opts)
	default:
		return listRuns(ctx, out, db, opts)
	}
}

// runEntry is the JSON form of a stored run's metadata.
type runEntry struct {
	ID          string        `json:"id"`
	Source      string        `json:"source"`
	InputDigest string        `json:"input_digest,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Failed      bool          `json:"failed"`
	Summary     model.Summary `json:"summary"`
}

// newRunEntry converts run metadata for JSON output.
func newRunEntry(meta database.RunMetadata) runEntry {
	return runEntry{
		ID:          meta.ID,
		Source:      meta.Source,
		InputDigest: meta.InputDigest,
		StartedAt:   meta.StartedAt,
		Failed:      meta.Failed,
		Summary:     meta.Summary,
	}
}

// writeJSON writes v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// listRuns lists the stored runs, newest first.
func listRuns(ctx context.Context, out io.Writer, db *database.RunDB, opts *historyOptions) error {
	runs, err := db.ListRuns(ctx, opts.source)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) > opts.limit {
		runs = runs[:opts.limit]
	}

	if opts.json {
		entries := make([]runEntry, len(runs))
		for i, meta := range runs {
			entries[i] = newRunEntry(meta)
		}
		return writeJSON(out, entries)
	}

	if len(runs) == 0 {
		if opts.source != "" {
			fmt.Fprintf(out, "No runs found for %s\n", opts.source)
		} else {
			fmt.Fprintln(out, "No runs found in the database.")
		}
		fmt.Fprintln(out, "\nUse 'addrcluster cluster <records-file>' to cluster a record file.")
		return nil
	}

	fmt.Fprintf(out, "Stored runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-8s  %9s  %9s  %s\n", "ID", "Date", "Status", "Clusters", "Edges", "Record File")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 110))

	for _, meta := range runs {
		status := "ok"
		if meta.Failed {
			status = "failed"
		}
		fmt.Fprintf(out, "  %-36s  %-19s  %-8s  %9d  %9d  %s\n",
			meta.ID,
			meta.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status,
			meta.Summary.Clusters,
			meta.Summary.Edges,
			meta.Source,
		)
	}

	fmt.Fprintln(out, "\nUse 'addrcluster history --run <id>' to show a stored run.")
	return nil
}

// resolveRunID returns the run given by --run or the latest run of the record file.
func resolveRunID(ctx context.Context, db *database.RunDB, opts *historyOptions) (string, error) {
	if opts.runID != "" {
		return opts.runID, nil
	}
	latest, err := db.LatestRuns(ctx, opts.source, 1)
	if err != nil {
		return "", fmt.Errorf("failed to get latest run: %w", err)
	}
	if len(latest) == 0 {
		return "", fmt.Errorf("no runs found for %s", opts.source)
	}
	return latest[0].ID, nil
}

// lookupResult is the JSON form of an address lookup.
type lookupResult struct {
	RunID   string   `json:"run_id"`
	Address string   `json:"address"`
	Cluster int64    `json:"cluster"`
	Members []string `json:"members"`
}

// lookupAddress prints the cluster of an address and the other members.
func lookupAddress(ctx context.Context, out io.Writer, db *database.RunDB, opts *historyOptions) error {
	runID, err := resolveRunID(ctx, db, opts)
	if err != nil {
		return err
	}

	id, err := db.LookupAddress(ctx, runID, opts.lookup)
	if err != nil {
		if errors.Is(err, database.ErrAddressNotFound) {
			return fmt.Errorf("address %s is not in run %s", opts.lookup, runID)
		}
		return fmt.Errorf("failed to look up address: %w", err)
	}

	members, err := db.ClusterMembers(ctx, runID, id)
	if err != nil {
		return fmt.Errorf("failed to get cluster members: %w", err)
	}

	if opts.json {
		return writeJSON(out, lookupResult{
			RunID:   runID,
			Address: opts.lookup,
			Cluster: int64(id),
			Members: members,
		})
	}

	fmt.Fprintf(out, "Address %s is in cluster %d (run %s)\n\n", opts.lookup, id, runID)
	fmt.Fprintf(out, "Cluster %d has %d address(es):\n", id, len(members))
	for _, member := range members {
		marker := " "
		if member == opts.lookup {
			marker = "*"
		}
		fmt.Fprintf(out, "  %s %s\n", marker, member)
	}
	return nil
}

// showRun prints the stored report of a run.
func showRun(ctx context.Context, out io.Writer, db *database.RunDB, opts *historyOptions) error {
	run, err := db.GetRun(ctx, opts.runID)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			return fmt.Errorf("run %s not found (use 'addrcluster history' to list runs)", opts.runID)
		}
		return fmt.Errorf("failed to get run: %w", err)
	}

	var writer report.Writer
	if opts.json {
		writer = report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	} else {
		writer = report.NewSimpleWriter(out)
	}
	_, err = writer.Write(run)
	return err
}

// comparisonResult is the JSON form of a run comparison.
type comparisonResult struct {
	Base                runEntry `json:"base"`
	Other               runEntry `json:"other"`
	SameInput           bool     `json:"same_input"`
	IdenticalMembership bool     `json:"identical_membership"`
	ClusterDelta        int      `json:"cluster_delta"`
	AddedAddresses      int      `json:"added_addresses"`
	RemovedAddresses    int      `json:"removed_addresses"`
	MergedClusters      int      `json:"merged_clusters"`
}

// compareLatestRuns compares the two most recent runs of the record file.
func compareLatestRuns(ctx context.Context, out io.Writer, db *database.RunDB, opts *historyOptions) error {
	latest, err := db.LatestRuns(ctx, opts.source, 2)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}
	if len(latest) < 2 {
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(latest))
	}

	// Older run is the base
	cmp, err := db.CompareRuns(ctx, latest[1].ID, latest[0].ID)
	if err != nil {
		return fmt.Errorf("failed to compare runs: %w", err)
	}

	if opts.json {
		return writeJSON(out, comparisonResult{
			Base:                newRunEntry(cmp.Base),
			Other:               newRunEntry(cmp.Other),
			SameInput:           cmp.SameInput,
			IdenticalMembership: cmp.IdenticalMembership,
			ClusterDelta:        cmp.ClusterDelta,
			AddedAddresses:      cmp.AddedAddresses,
			RemovedAddresses:    cmp.RemovedAddresses,
			MergedClusters:      cmp.MergedClusters,
		})
	}

	fmt.Fprintf(out, "Comparison for %s\n\n", opts.source)
	fmt.Fprintf(out, "  Base:  %s (%s)\n", cmp.Base.ID, cmp.Base.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Other: %s (%s)\n\n", cmp.Other.ID, cmp.Other.StartedAt.Local().Format("2006-01-02 15:04:05"))

	input := "changed"
	if cmp.SameInput {
		input = "unchanged"
	}
	fmt.Fprintf(out, "  Record file:        %s\n", input)
	fmt.Fprintf(out, "  Clusters:           %d -> %d (%+d)\n", cmp.Base.Summary.Clusters, cmp.Other.Summary.Clusters, cmp.ClusterDelta)
	fmt.Fprintf(out, "  Added addresses:    %d\n", cmp.AddedAddresses)
	fmt.Fprintf(out, "  Removed addresses:  %d\n", cmp.RemovedAddresses)
	fmt.Fprintf(out, "  Merged clusters:    %d\n", cmp.MergedClusters)

	if cmp.IdenticalMembership {
		fmt.Fprintln(out, "\nBoth runs group the addresses identically.")
	}
	return nil
}
