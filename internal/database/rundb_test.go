package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/nao1215/addrcluster/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*RunDB, func()) {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}
	return db, cleanup
}

// newTestRun creates a finished run over the given clusters.
func newTestRun(source, digest string, startedAt time.Time, clusters [][]string) *model.Run {
	run := model.NewRun(source)
	run.InputDigest = digest
	run.StartedAt = startedAt
	run.Clusters = model.NewClusterView(clusters)
	run.Summary.Clusters = run.Clusters.NumClusters()
	run.Summary.Addresses = run.Clusters.NumAddresses()
	run.Summary.LargestCluster = run.Clusters.LargestClusterSize()
	return run
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

// TestSaveAndGetRun tests storing and reading runs.
func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	run := newTestRun("tx.txt", "abc", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		[][]string{{"A", "B"}, {"D"}, {"C"}, {"E"}})
	run.Summary.Records = 5
	run.Summary.Edges = 2
	run.Artifacts.UserMap = "out/usermap.txt"
	run.AddWarning(model.Warning{Kind: model.WarningInconsistentInputs, TransactionID: "t1", Message: "m"})

	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	t.Run("metadata round trips", func(t *testing.T) {
		t.Parallel()

		meta, err := db.GetRunMetadata(ctx, run.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if meta.Source != "tx.txt" || meta.InputDigest != "abc" {
			t.Errorf("unexpected metadata: %+v", meta)
		}
		if !meta.StartedAt.Equal(run.StartedAt) {
			t.Errorf("expected start %v, got %v", run.StartedAt, meta.StartedAt)
		}
		if meta.Failed {
			t.Error("expected run not to be failed")
		}
		if meta.Summary != run.Summary {
			t.Errorf("got summary %+v, want %+v", meta.Summary, run.Summary)
		}
	})

	t.Run("report round trips", func(t *testing.T) {
		t.Parallel()

		got, err := db.GetRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Artifacts.UserMap != "out/usermap.txt" {
			t.Errorf("unexpected artifacts: %+v", got.Artifacts)
		}
		if !reflect.DeepEqual(got.Warnings, run.Warnings) {
			t.Errorf("got warnings %v, want %v", got.Warnings, run.Warnings)
		}
		if got.Clusters != nil {
			t.Error("expected cluster view not to be stored in the report")
		}
	})

	t.Run("looks up addresses", func(t *testing.T) {
		t.Parallel()

		id, err := db.LookupAddress(ctx, run.ID, "C")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != 2 {
			t.Errorf("expected cluster 2, got %d", id)
		}

		_, err = db.LookupAddress(ctx, run.ID, "Z")
		if !errors.Is(err, ErrAddressNotFound) {
			t.Errorf("expected ErrAddressNotFound, got %v", err)
		}
	})

	t.Run("lists cluster members in order", func(t *testing.T) {
		t.Parallel()

		members, err := db.ClusterMembers(ctx, run.ID, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(members, []string{"A", "B"}) {
			t.Errorf("got %v", members)
		}

		members, err = db.ClusterMembers(ctx, run.ID, 99)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(members) != 0 {
			t.Errorf("expected no members, got %v", members)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()

		if _, err := db.GetRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
		if _, err := db.GetRunMetadata(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})
}

// TestSaveRunReplaces tests that saving a run twice keeps one copy.
func TestSaveRunReplaces(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	run := newTestRun("tx.txt", "abc", time.Now(), [][]string{{"A"}, {"B"}})
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	run.Clusters = model.NewClusterView([][]string{{"A", "B"}})
	run.Error = errors.New("boom")
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run again: %v", err)
	}

	runs, err := db.ListRuns(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if !runs[0].Failed {
		t.Error("expected run to be marked failed")
	}

	id, err := db.LookupAddress(ctx, run.ID, "B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 0 {
		t.Errorf("expected B in cluster 0 after replace, got %d", id)
	}
}

// TestListRuns tests ordering and filtering of run listings.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []*model.Run{
		newTestRun("a.txt", "1", base, [][]string{{"A"}}),
		newTestRun("a.txt", "2", base.Add(time.Second), [][]string{{"A"}}),
		newTestRun("a.txt", "3", base.Add(1500*time.Millisecond), [][]string{{"A"}}),
		newTestRun("b.txt", "4", base.Add(time.Hour), [][]string{{"B"}}),
	}
	for _, r := range runs {
		if err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	tests := []struct {
		name    string
		list    func() ([]RunMetadata, error)
		digests []string
	}{
		{
			name:    "all runs newest first",
			list:    func() ([]RunMetadata, error) { return db.ListRuns(ctx, "") },
			digests: []string{"4", "3", "2", "1"},
		},
		{
			name:    "filtered by source",
			list:    func() ([]RunMetadata, error) { return db.ListRuns(ctx, "a.txt") },
			digests: []string{"3", "2", "1"},
		},
		{
			name:    "latest two",
			list:    func() ([]RunMetadata, error) { return db.LatestRuns(ctx, "a.txt", 2) },
			digests: []string{"3", "2"},
		},
		{
			name:    "unknown source",
			list:    func() ([]RunMetadata, error) { return db.ListRuns(ctx, "c.txt") },
			digests: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.list()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			digests := make([]string, 0, len(got))
			for _, m := range got {
				digests = append(digests, m.InputDigest)
			}
			if !reflect.DeepEqual(digests, tt.digests) {
				t.Errorf("got %v, want %v", digests, tt.digests)
			}
		})
	}
}

// TestCompareRuns tests comparison of cluster membership.
func TestCompareRuns(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	now := time.Now()
	base := newTestRun("tx.txt", "d1", now, [][]string{{"A", "B"}, {"C"}, {"D"}})
	relabeled := newTestRun("tx.txt", "d1", now, [][]string{{"D"}, {"B", "A"}, {"C"}})
	merged := newTestRun("tx.txt", "d2", now, [][]string{{"A", "B", "C"}, {"D"}, {"E"}})
	for _, r := range []*model.Run{base, relabeled, merged} {
		if err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	t.Run("relabeled clusters are identical", func(t *testing.T) {
		t.Parallel()

		c, err := db.CompareRuns(ctx, base.ID, relabeled.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !c.SameInput || !c.IdenticalMembership {
			t.Errorf("expected identical runs, got %+v", c)
		}
		if c.ClusterDelta != 0 || c.MergedClusters != 0 {
			t.Errorf("expected no changes, got %+v", c)
		}
	})

	t.Run("merged clusters and new addresses are reported", func(t *testing.T) {
		t.Parallel()

		c, err := db.CompareRuns(ctx, base.ID, merged.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.SameInput || c.IdenticalMembership {
			t.Errorf("expected differing runs, got %+v", c)
		}
		if c.AddedAddresses != 1 || c.RemovedAddresses != 0 {
			t.Errorf("expected 1 added and 0 removed, got %d and %d", c.AddedAddresses, c.RemovedAddresses)
		}
		if c.MergedClusters != 2 {
			t.Errorf("expected 2 merged clusters, got %d", c.MergedClusters)
		}
		if c.ClusterDelta != 0 {
			t.Errorf("expected cluster delta 0, got %d", c.ClusterDelta)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()

		if _, err := db.CompareRuns(ctx, base.ID, "missing"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})
}
