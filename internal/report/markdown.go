package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/addrcluster/internal/model"
)

// maxAddressesShown caps the addresses listed per payer cluster.
const maxAddressesShown = 5

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeSummary(md, run)
	w.writeWarnings(md, run)
	w.writeAnalysis(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs one table row per run.
func (w *MarkdownWriter) WriteSummary(runs []*model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Address Clustering Batch")
	md.PlainText("")

	rows := make([][]string, 0, len(runs))
	failed := 0
	for _, run := range runs {
		if run == nil {
			continue
		}
		if run.Failed() {
			failed++
		}
		rows = append(rows, []string{
			"`" + run.Source + "`",
			statusText(run),
			strconv.Itoa(run.Summary.Records),
			strconv.Itoa(run.Summary.Clusters),
			strconv.Itoa(run.Summary.Edges),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Record File", "Status", "Records", "Clusters", "Edges"},
		Rows:   rows,
	})
	md.PlainText("")

	if failed > 0 {
		md.Warningf("%d of %d record file(s) failed.", failed, len(rows))
		md.PlainText("")
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// statusText returns the status cell of a run.
func statusText(run *model.Run) string {
	switch runStatus(run) {
	case "cancelled":
		return "⚠️ Cancelled (partial results)"
	case "failed":
		return "❌ Error - " + errorText(run)
	default:
		return "✅ Complete"
	}
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	md.H1("Address Clustering Report")
	md.PlainText("")

	rows := [][]string{
		{"Record File", "`" + run.Source + "`"},
		{"Run ID", "`" + run.ID + "`"},
		{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Status", statusText(run)},
	}
	if run.InputDigest != "" {
		rows = append(rows, []string{"SHA3-256", "`" + run.InputDigest + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSummary writes the counters, the artifact list and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, run *model.Run) {
	s := run.Summary
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Records", strconv.Itoa(s.Records)},
			{"Input records", strconv.Itoa(s.InputRecords)},
			{"Output records", strconv.Itoa(s.OutputRecords)},
			{"Transactions", strconv.Itoa(s.Transactions)},
			{"Multi-input transactions", strconv.Itoa(s.MultiInputTransactions)},
			{"Addresses", strconv.Itoa(s.Addresses)},
			{"Clusters", strconv.Itoa(s.Clusters)},
			{"Largest cluster", strconv.Itoa(s.LargestCluster)},
			{"Graph edges", strconv.Itoa(s.Edges)},
			{"Skipped records", strconv.Itoa(s.SkippedRecords)},
			{"Total output amount", strconv.FormatUint(s.TotalOutputAmount, 10)},
		},
	})
	md.PlainText("")

	artifacts := make([]string, 0, 5)
	for _, f := range []struct{ label, path string }{
		{"User map", run.Artifacts.UserMap},
		{"Key map", run.Artifacts.KeyMap},
		{"Graph", run.Artifacts.Graph},
		{"Receipts", run.Artifacts.Receipts},
		{"Received", run.Artifacts.Received},
	} {
		if f.path != "" {
			artifacts = append(artifacts, f.label+": `"+f.path+"`")
		}
	}
	if len(artifacts) > 0 {
		md.H3("Output Files")
		md.PlainText("")
		md.BulletList(artifacts...)
		md.PlainText("")
	}

	w.writeAlert(md, run)
}

// writeAlert writes an alert describing the overall outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.Run) {
	switch {
	case run.Failed():
		md.Cautionf("The run stopped with an error: %s", errorText(run))
	case run.Summary.SkippedRecords > 0:
		md.Warningf("%d record(s) were skipped while building the graph.", run.Summary.SkippedRecords)
	case len(run.Warnings) > 0:
		md.Importantf("%d transaction(s) have inputs in more than one cluster.", len(run.Warnings))
	case run.Summary.Clusters == run.Summary.Addresses && run.Summary.Addresses > 0:
		md.Note("No joint inputs were found; every address is its own cluster.")
	default:
		md.Tip("All records were resolved.")
	}
	md.PlainText("")
}

// writeWarnings lists data-integrity warnings.
func (w *MarkdownWriter) writeWarnings(md *markdown.Markdown, run *model.Run) {
	if len(run.Warnings) == 0 {
		return
	}

	md.H2("Warnings")
	md.PlainText("")

	rows := make([][]string, len(run.Warnings))
	for i, warn := range run.Warnings {
		rows[i] = []string{warn.Kind, "`" + warn.TransactionID + "`", truncateString(warn.Message, 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Transaction", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeAnalysis writes the rankings, the payer report and the distributions.
func (w *MarkdownWriter) writeAnalysis(md *markdown.Markdown, run *model.Run) {
	a := run.Analysis
	if a == nil {
		return
	}

	md.H2("Analysis")
	md.PlainText("")

	w.writeStatsTable(md, "Top Clusters by Receipts", "Receipts", a.TopReceipts)
	w.writeStatsTable(md, "Top Clusters by Amount Received", "Amount", a.TopReceived)

	if len(a.FlowRank) > 0 {
		md.H3("Top Clusters by Flow Rank")
		md.PlainText("")
		rows := make([][]string, len(a.FlowRank))
		for i, s := range a.FlowRank {
			rows[i] = []string{
				strconv.Itoa(i + 1),
				strconv.Itoa(int(s.Cluster)),
				strconv.Itoa(s.Size),
				strconv.FormatFloat(s.Score, 'f', 6, 64),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Rank", "Cluster", "Addresses", "Score"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if a.Payers != nil {
		w.writePayers(md, a.Payers)
	}

	if len(a.SizeDistribution) > 0 {
		w.writeSizeChart(md, a.SizeDistribution)
	}
}

// writeStatsTable writes one ranking.
func (w *MarkdownWriter) writeStatsTable(md *markdown.Markdown, title, valueHeader string, stats []model.ClusterStat) {
	if len(stats) == 0 {
		return
	}

	md.H3(title)
	md.PlainText("")
	rows := make([][]string, len(stats))
	for i, s := range stats {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(int(s.Cluster)),
			strconv.Itoa(s.Size),
			strconv.FormatUint(s.Value, 10),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Cluster", "Addresses", valueHeader},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePayers writes the payer report of the target cluster.
func (w *MarkdownWriter) writePayers(md *markdown.Markdown, payers *model.PayerReport) {
	md.H3("Payers of Cluster " + strconv.Itoa(int(payers.Target)))
	md.PlainText("")

	if len(payers.Payers) == 0 {
		md.PlainText("No transaction paid this cluster.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(payers.Payers))
	for i, p := range payers.Payers {
		shown := p.Addresses
		suffix := ""
		if len(shown) > maxAddressesShown {
			suffix = " (+" + strconv.Itoa(len(shown)-maxAddressesShown) + " more)"
			shown = shown[:maxAddressesShown]
		}
		rows[i] = []string{
			strconv.Itoa(int(p.Cluster)),
			strconv.Itoa(len(p.Addresses)),
			strings.Join(shown, " ") + suffix,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Cluster", "Addresses", "Members"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSizeChart writes a mermaid pie chart of the cluster size buckets.
func (w *MarkdownWriter) writeSizeChart(md *markdown.Markdown, buckets []model.SizeBucket) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Cluster Size Distribution"),
		piechart.WithShowData(true),
	)

	nonEmpty := 0
	for _, b := range buckets {
		if b.Clusters > 0 {
			chart.LabelAndIntValue(b.Label+" addresses", uint64(b.Clusters))
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return
	}

	md.H3("Cluster Size Distribution")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [addrcluster](https://github.com/nao1215/addrcluster)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
