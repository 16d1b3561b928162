package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/nao1215/addrcluster/internal/model"
)

// createTestRun creates a finished run with sample data for testing.
func createTestRun() *model.Run {
	run := model.NewRun("transactions.txt")
	run.StartedAt = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	run.FinishedAt = run.StartedAt.Add(1500 * time.Millisecond)
	run.InputDigest = "deadbeef"
	run.Summary = model.Summary{
		Records:                1234567,
		InputRecords:           600000,
		OutputRecords:          634567,
		Transactions:           300000,
		Addresses:              500000,
		Clusters:               250000,
		LargestCluster:         4200,
		MultiInputTransactions: 1000,
		Unions:                 900,
		Edges:                  634567,
		TotalOutputAmount:      5000000000,
	}
	run.Artifacts = model.Artifacts{
		UserMap: "out/usermap.txt",
		KeyMap:  "out/keymap.txt",
		Graph:   "out/graph.txt",
	}
	run.AddWarning(model.Warning{
		Kind:          model.WarningInconsistentInputs,
		TransactionID: "t42",
		Message:       "inputs resolve to clusters 1 and 2",
	})
	run.PerformedSteps = []string{"parse", "cluster", "export-maps", "graph", "export-graph"}
	return run
}

// createAnalyzedRun adds an analysis to a test run.
func createAnalyzedRun() *model.Run {
	run := createTestRun()
	run.Analysis = &model.Analysis{
		TopReceipts: []model.ClusterStat{{Cluster: 7, Size: 3, Value: 12}},
		TopReceived: []model.ClusterStat{{Cluster: 7, Size: 3, Value: 900}},
		FlowRank:    []model.ClusterScore{{Cluster: 7, Size: 3, Score: 0.5}},
		Payers: &model.PayerReport{
			Target: 7,
			Payers: []model.PayerDetail{{Cluster: 2, Addresses: []string{"a1", "a2", "a3", "a4", "a5", "a6"}}},
		},
		AddressKinds: map[string]int{"p2pkh": 4, "unknown": 1},
		SizeDistribution: []model.SizeBucket{
			{Label: "1", Min: 1, Max: 1, Clusters: 10},
			{Label: "2-10", Min: 2, Max: 10, Clusters: 2},
			{Label: ">1000", Min: 1001, Clusters: 0},
		},
	}
	return run
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header, summary and files", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"ADDRESS CLUSTERING REPORT",
			"transactions.txt",
			"Status:       Complete",
			"1,234,567",
			"out/graph.txt",
			"inconsistent_inputs (tx t42)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "ANALYSIS") {
			t.Error("expected no analysis section")
		}
	})

	t.Run("formats numbers for the configured language", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithLanguage(language.German)).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "1.234.567") {
			t.Error("expected German digit grouping")
		}
	})

	t.Run("verbose output includes digest and warning messages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "deadbeef") {
			t.Error("expected digest in verbose output")
		}
		if !strings.Contains(output, "inputs resolve to clusters 1 and 2") {
			t.Error("expected warning message in verbose output")
		}
	})

	t.Run("writes analysis", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createAnalyzedRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{"ANALYSIS", "Payers of cluster 7", "p2pkh", "2-10"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("shows failed status", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.Error = errors.New("missing input cluster")

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "ERROR - missing input cluster") {
			t.Error("expected error status")
		}
	})

	t.Run("writes batch summary", func(t *testing.T) {
		t.Parallel()

		failed := model.NewRun("bad.txt")
		failed.ErrorMessage = "parse failed"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteSummary([]*model.Run{createTestRun(), nil, failed}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "complete   transactions.txt") {
			t.Error("expected completed run line")
		}
		if !strings.Contains(output, "parse failed") {
			t.Error("expected failure message")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON without in-memory data", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.Records = []model.TransactionRecord{{TransactionID: "t1"}}
		run.Clusters = model.NewClusterView([][]string{{"A"}})
		run.Error = errors.New("boom")

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["source"] != "transactions.txt" {
			t.Errorf("unexpected source: %v", decoded["source"])
		}
		if decoded["error"] != "boom" {
			t.Errorf("expected error message, got %v", decoded["error"])
		}
		for _, key := range []string{"Records", "records", "Clusters", "clusters"} {
			if _, ok := decoded[key]; ok {
				t.Errorf("expected %q to be excluded", key)
			}
		}
	})

	t.Run("pretty prints", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"id\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("writes summary as array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteSummary([]*model.Run{createTestRun(), createTestRun()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var decoded []map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 {
			t.Errorf("expected 2 runs, got %d", len(decoded))
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFullJSONWriter(&buf, "v1.2.3").Write(createAnalyzedRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Version != "v1.2.3" {
			t.Errorf("expected version v1.2.3, got %s", decoded.Version)
		}
		if decoded.Run == nil || decoded.Run.Analysis == nil || decoded.Run.Analysis.Payers.Target != 7 {
			t.Errorf("unexpected run: %+v", decoded.Run)
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Address Clustering Report",
			"## Summary",
			"Largest cluster",
			"## Warnings",
			"[!IMPORTANT]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes analysis with pie chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createAnalyzedRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"```mermaid", "Cluster Size Distribution", "Payers of Cluster 7", "(+1 more)"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, ">1000 addresses") {
			t.Error("expected empty buckets to be left out of the chart")
		}
	})

	t.Run("failed run gets a caution alert", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.ErrorMessage = "unknown address Z"

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!CAUTION]") {
			t.Error("expected caution alert")
		}
	})

	t.Run("writes batch summary", func(t *testing.T) {
		t.Parallel()

		failed := model.NewRun("bad.txt")
		failed.ErrorMessage = "parse failed"

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteSummary([]*model.Run{createTestRun(), failed}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "`bad.txt`") || !strings.Contains(output, "1 of 2 record file(s) failed") {
			t.Errorf("unexpected summary:\n%s", output)
		}
	})
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

	n, err := mw.Write(createTestRun())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("expected both writers to receive output")
	}
}

// TestTruncateString tests string truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "short", max: 10, want: "short"},
		{in: "exactly10!", max: 10, want: "exactly10!"},
		{in: "this is too long", max: 10, want: "this is..."},
		{in: "abcdef", max: 3, want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := truncateString(tt.in, tt.max); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
