package report

import (
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/addrcluster/internal/model"
)

// ruleWidth is the width of section rules in text reports.
const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
// Counts are printed with digit grouping since record files routinely
// hold hundreds of millions of lines.
type SimpleWriter struct {
	baseWriter

	// printer formats numbers for the configured language.
	printer *message.Printer

	// showEmpty controls whether empty sections are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithLanguage sets the language used for number formatting.
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.printer = message.NewPrinter(tag)
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
// Numbers are formatted for English unless WithLanguage is given.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run in human-readable format.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	w.writeSummary(&sb, run)
	w.writeArtifacts(&sb, run)
	w.writeWarnings(&sb, run)
	w.writeAnalysis(&sb, run)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs one line per run.
func (w *SimpleWriter) WriteSummary(runs []*model.Run) (int, error) {
	var sb strings.Builder

	w.section(&sb, "BATCH SUMMARY")
	for _, run := range runs {
		if run == nil {
			continue
		}
		w.printf(&sb, "  %-10s %s: %d records, %d clusters, %d edges\n",
			runStatus(run), run.Source,
			run.Summary.Records, run.Summary.Clusters, run.Summary.Edges,
		)
		if msg := errorText(run); msg != "" {
			w.printf(&sb, "             %s\n", msg)
		}
	}
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// printf formats with the language printer.
func (w *SimpleWriter) printf(sb *strings.Builder, format string, args ...any) {
	sb.WriteString(w.printer.Sprintf(format, args...))
}

// section writes a section title between rules.
func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.Run) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                      ADDRESS CLUSTERING REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	w.printf(sb, "Record File:  %s\n", run.Source)
	w.printf(sb, "Run ID:       %s\n", run.ID)
	w.printf(sb, "Started:      %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if !run.FinishedAt.IsZero() {
		w.printf(sb, "Duration:     %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	if w.verbose && run.InputDigest != "" {
		w.printf(sb, "SHA3-256:     %s\n", run.InputDigest)
	}

	switch runStatus(run) {
	case "cancelled":
		sb.WriteString("Status:       CANCELLED (partial results)\n")
	case "failed":
		w.printf(sb, "Status:       ERROR - %s\n", errorText(run))
	default:
		sb.WriteString("Status:       Complete\n")
	}
	sb.WriteString("\n")
}

// writeSummary writes the counters of the run.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, run *model.Run) {
	s := run.Summary
	w.section(sb, "SUMMARY")

	w.printf(sb, "  Records:                  %d (%d in, %d out)\n", s.Records, s.InputRecords, s.OutputRecords)
	w.printf(sb, "  Transactions:             %d\n", s.Transactions)
	w.printf(sb, "  Multi-input transactions: %d\n", s.MultiInputTransactions)
	w.printf(sb, "  Addresses:                %d\n", s.Addresses)
	w.printf(sb, "  Clusters:                 %d\n", s.Clusters)
	w.printf(sb, "  Largest cluster:          %d\n", s.LargestCluster)
	w.printf(sb, "  Unions applied:           %d\n", s.Unions)
	w.printf(sb, "  Graph edges:              %d\n", s.Edges)
	if s.SkippedRecords > 0 || w.showEmpty {
		w.printf(sb, "  Skipped records:          %d\n", s.SkippedRecords)
	}
	w.printf(sb, "  Total output amount:      %d\n", s.TotalOutputAmount)
	sb.WriteString("\n")
}

// writeArtifacts lists the written files.
func (w *SimpleWriter) writeArtifacts(sb *strings.Builder, run *model.Run) {
	a := run.Artifacts
	files := []struct {
		label string
		path  string
	}{
		{"User map", a.UserMap},
		{"Key map", a.KeyMap},
		{"Graph", a.Graph},
		{"Receipts", a.Receipts},
		{"Received", a.Received},
	}

	written := 0
	for _, f := range files {
		if f.path != "" {
			written++
		}
	}
	if written == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "OUTPUT FILES")
	for _, f := range files {
		if f.path == "" {
			continue
		}
		w.printf(sb, "  %-9s %s\n", f.label+":", f.path)
	}
	if written == 0 {
		sb.WriteString("  No files written\n")
	}
	sb.WriteString("\n")
}

// writeWarnings lists data-integrity warnings.
func (w *SimpleWriter) writeWarnings(sb *strings.Builder, run *model.Run) {
	if len(run.Warnings) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "WARNINGS")
	if len(run.Warnings) == 0 {
		sb.WriteString("  No warnings\n\n")
		return
	}
	for _, warn := range run.Warnings {
		w.printf(sb, "  [!] %s (tx %s)\n", warn.Kind, warn.TransactionID)
		if w.verbose {
			w.printf(sb, "      %s\n", warn.Message)
		}
	}
	sb.WriteString("\n")
}

// writeAnalysis writes the rankings and distributions.
func (w *SimpleWriter) writeAnalysis(sb *strings.Builder, run *model.Run) {
	a := run.Analysis
	if a == nil {
		return
	}

	w.section(sb, "ANALYSIS")

	w.writeStats(sb, "Top clusters by receipts", a.TopReceipts)
	w.writeStats(sb, "Top clusters by amount received", a.TopReceived)

	if len(a.FlowRank) > 0 {
		sb.WriteString("Top clusters by flow rank\n")
		for i, s := range a.FlowRank {
			w.printf(sb, "  %2d. cluster %d (%d addresses) score %.6f\n", i+1, s.Cluster, s.Size, s.Score)
		}
		sb.WriteString("\n")
	}

	if a.Payers != nil {
		w.printf(sb, "Payers of cluster %d\n", a.Payers.Target)
		if len(a.Payers.Payers) == 0 {
			sb.WriteString("  none\n")
		}
		for _, p := range a.Payers.Payers {
			w.printf(sb, "  cluster %d: %s\n", p.Cluster, strings.Join(p.Addresses, " "))
		}
		sb.WriteString("\n")
	}

	if len(a.SizeDistribution) > 0 {
		sb.WriteString("Cluster size distribution\n")
		for _, b := range a.SizeDistribution {
			w.printf(sb, "  %-10s %d\n", b.Label, b.Clusters)
		}
		sb.WriteString("\n")
	}

	if len(a.AddressKinds) > 0 {
		sb.WriteString("Address kinds\n")
		kinds := make([]string, 0, len(a.AddressKinds))
		for k := range a.AddressKinds {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			w.printf(sb, "  %-10s %d\n", k, a.AddressKinds[k])
		}
		sb.WriteString("\n")
	}
}

// writeStats writes one ranking.
func (w *SimpleWriter) writeStats(sb *strings.Builder, title string, stats []model.ClusterStat) {
	if len(stats) == 0 && !w.showEmpty {
		return
	}
	sb.WriteString(title)
	sb.WriteString("\n")
	if len(stats) == 0 {
		sb.WriteString("  none\n")
	}
	for i, s := range stats {
		w.printf(sb, "  %2d. cluster %d (%d addresses): %d\n", i+1, s.Cluster, s.Size, s.Value)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by addrcluster\n")
	sb.WriteString("https://github.com/nao1215/addrcluster\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
