package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

// seedHistory clusters records twice into a fresh database and returns
// the database directory and the record file path.
func seedHistory(t *testing.T, second string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	dbDir := filepath.Join(dir, "db")
	records := writeTestFile(t, dir, "records.txt", sampleRecords)
	cfg := emptyConfig(t)

	if _, err := executeRoot(t, "cluster", "--db-dir", dbDir, "-c", cfg, "-o", filepath.Join(dir, "out1"), records); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if second != "" {
		writeTestFile(t, dir, "records.txt", second)
		if _, err := executeRoot(t, "cluster", "--db-dir", dbDir, "-c", cfg, "-o", filepath.Join(dir, "out2"), records); err != nil {
			t.Fatalf("second run failed: %v", err)
		}
	}
	return dbDir, records
}

// TestNewHistoryCmd tests the history command flags.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	for name, shorthand := range map[string]string{
		"lookup":  "l",
		"run":     "r",
		"compare": "C",
		"json":    "j",
		"limit":   "n",
		"db-dir":  "",
	} {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			t.Errorf("expected %s flag", name)
			continue
		}
		if flag.Shorthand != shorthand {
			t.Errorf("%s: expected shorthand %q, got %q", name, shorthand, flag.Shorthand)
		}
	}
}

// TestParseHistoryFlags tests flag validation before the database is opened.
func TestParseHistoryFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		flags   []string
		wantErr string
	}{
		{name: "list everything", args: nil, flags: nil},
		{name: "compare needs a file", flags: []string{"--compare"}, wantErr: "record file is required"},
		{name: "compare and lookup", args: []string{"r.txt"}, flags: []string{"--compare", "--lookup", "A"}, wantErr: "mutually exclusive"},
		{name: "lookup needs a run", flags: []string{"--lookup", "A"}, wantErr: "needs a record file"},
		{name: "lookup with run", flags: []string{"--lookup", "A", "--run", "id"}},
		{name: "invalid limit", flags: []string{"--limit", "0"}, wantErr: "--limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewHistoryCmd()
			if err := cmd.ParseFlags(tt.flags); err != nil {
				t.Fatal(err)
			}
			_, err := parseHistoryFlags(cmd, tt.args)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestRunHistoryCmd tests the history command against a seeded database.
func TestRunHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("lists runs", func(t *testing.T) {
		t.Parallel()

		dbDir, records := seedHistory(t, sampleRecords)
		out, err := executeRoot(t, "history", "--db-dir", dbDir, records)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Stored runs (2)") {
			t.Errorf("expected two runs, got %q", out)
		}
	})

	t.Run("lists runs as JSON", func(t *testing.T) {
		t.Parallel()

		dbDir, records := seedHistory(t, "")
		out, err := executeRoot(t, "history", "--db-dir", dbDir, "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var entries []runEntry
		if err := json.Unmarshal([]byte(out), &entries); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(entries) != 1 || entries[0].Source != records {
			t.Fatalf("unexpected entries: %+v", entries)
		}
		if entries[0].Summary.Clusters != 4 {
			t.Errorf("expected 4 clusters, got %d", entries[0].Summary.Clusters)
		}
	})

	t.Run("reports an empty history", func(t *testing.T) {
		t.Parallel()

		out, err := executeRoot(t, "history", "--db-dir", t.TempDir(), "missing.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No runs found for missing.txt") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("looks up an address in the latest run", func(t *testing.T) {
		t.Parallel()

		dbDir, records := seedHistory(t, "")
		out, err := executeRoot(t, "history", "--db-dir", dbDir, "--lookup", "B", "--json", records)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got lookupResult
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Cluster != 0 {
			t.Errorf("expected cluster 0, got %d", got.Cluster)
		}
		if strings.Join(got.Members, " ") != "A B" {
			t.Errorf("expected members [A B], got %v", got.Members)
		}
	})

	t.Run("rejects an unknown address", func(t *testing.T) {
		t.Parallel()

		dbDir, records := seedHistory(t, "")
		_, err := executeRoot(t, "history", "--db-dir", dbDir, "--lookup", "Z", records)
		if err == nil || !strings.Contains(err.Error(), "is not in run") {
			t.Errorf("expected unknown address error, got %v", err)
		}
	})

	t.Run("shows a stored run", func(t *testing.T) {
		t.Parallel()

		dbDir, _ := seedHistory(t, "")
		listing, err := executeRoot(t, "history", "--db-dir", dbDir, "--json")
		if err != nil {
			t.Fatal(err)
		}
		var entries []runEntry
		if err := json.Unmarshal([]byte(listing), &entries); err != nil || len(entries) != 1 {
			t.Fatalf("unexpected listing %q: %v", listing, err)
		}

		out, err := executeRoot(t, "history", "--db-dir", dbDir, "--run", entries[0].ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "ADDRESS CLUSTERING REPORT") || !strings.Contains(out, entries[0].ID) {
			t.Errorf("unexpected report %q", out)
		}

		if _, err := executeRoot(t, "history", "--db-dir", dbDir, "--run", "no-such-run"); err == nil {
			t.Error("expected error for unknown run")
		}
	})

	t.Run("compares identical runs", func(t *testing.T) {
		t.Parallel()

		dbDir, records := seedHistory(t, sampleRecords)
		out, err := executeRoot(t, "history", "--db-dir", dbDir, "--compare", records)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Record file:        unchanged") {
			t.Errorf("expected unchanged input, got %q", out)
		}
		if !strings.Contains(out, "group the addresses identically") {
			t.Errorf("expected identical membership, got %q", out)
		}
	})

	t.Run("compares a run that merged clusters", func(t *testing.T) {
		t.Parallel()

		merged := sampleRecords + "t3 h3 A 1 in\nt3 h3 C 1 in\nt3 h3 F 2 out\n"
		dbDir, records := seedHistory(t, merged)
		out, err := executeRoot(t, "history", "--db-dir", dbDir, "--compare", "--json", records)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got comparisonResult
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.SameInput || got.IdenticalMembership {
			t.Errorf("expected changed input and membership: %+v", got)
		}
		if got.AddedAddresses != 1 || got.RemovedAddresses != 0 {
			t.Errorf("expected 1 added and 0 removed, got %d and %d", got.AddedAddresses, got.RemovedAddresses)
		}
		if got.MergedClusters != 2 {
			t.Errorf("expected 2 merged clusters, got %d", got.MergedClusters)
		}
		if got.ClusterDelta != 0 {
			t.Errorf("expected cluster delta 0, got %d", got.ClusterDelta)
		}
	})

	t.Run("compare needs two runs", func(t *testing.T) {
		t.Parallel()

		dbDir, records := seedHistory(t, "")
		_, err := executeRoot(t, "history", "--db-dir", dbDir, "--compare", records)
		if err == nil || !strings.Contains(err.Error(), "at least 2 runs") {
			t.Errorf("expected error for a single run, got %v", err)
		}
	})
}
