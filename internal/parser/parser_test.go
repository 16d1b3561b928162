package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/addrcluster/internal/model"
)

// TestParseLine tests parsing of single record lines.
func TestParseLine(t *testing.T) {
	t.Parallel()

	t.Run("parses an input record", func(t *testing.T) {
		t.Parallel()

		got, err := ParseLine("t1 h1 A 10 in", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := model.TransactionRecord{
			TransactionID: "t1",
			TxHash:        "h1",
			Address:       "A",
			Amount:        10,
			Direction:     model.DirectionInput,
		}
		if got != want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("parses an output record", func(t *testing.T) {
		t.Parallel()

		got, err := ParseLine("t2 h2 E 3 out", 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.IsOutput() {
			t.Errorf("expected output direction, got %v", got.Direction)
		}
		if got.Amount != 3 {
			t.Errorf("expected amount 3, got %d", got.Amount)
		}
	})

	t.Run("ignores extra fields and repeated whitespace", func(t *testing.T) {
		t.Parallel()

		got, err := ParseLine("t1  h1\tA 18446744073709551615 out trailing", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Amount != 18446744073709551615 {
			t.Errorf("expected max uint64 amount, got %d", got.Amount)
		}
	})

	malformed := []struct {
		name string
		line string
	}{
		{name: "too few fields", line: "t1 h1 A 10"},
		{name: "negative amount", line: "t1 h1 A -10 in"},
		{name: "non numeric amount", line: "t1 h1 A ten in"},
		{name: "amount overflow", line: "t1 h1 A 18446744073709551616 in"},
		{name: "uppercase direction", line: "t1 h1 A 10 IN"},
		{name: "unknown direction", line: "t1 h1 A 10 inout"},
	}

	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseLine(tt.line, 7)
			if err == nil {
				t.Fatal("expected error")
			}

			var mrErr *model.MalformedRecordError
			if !errors.As(err, &mrErr) {
				t.Fatalf("expected MalformedRecordError, got %T", err)
			}
			if mrErr.Line != 7 {
				t.Errorf("expected line 7, got %d", mrErr.Line)
			}
			if !errors.Is(err, model.ErrMalformedRecord) {
				t.Error("expected error to match ErrMalformedRecord")
			}
		})
	}
}

// TestParse tests parsing of a whole record stream.
func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("keeps file order and skips blank lines", func(t *testing.T) {
		t.Parallel()

		input := "t1 h1 A 10 in\n\nt1 h1 B 10 in\n   \nt1 h1 D 5 out\n"
		records, err := Parse(strings.NewReader(input))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		for i, addr := range []string{"A", "B", "D"} {
			if records[i].Address != addr {
				t.Errorf("record %d: expected address %s, got %s", i, addr, records[i].Address)
			}
		}
	})

	t.Run("reports the line number of a malformed line", func(t *testing.T) {
		t.Parallel()

		input := "t1 h1 A 10 in\n\nt1 h1 B x in\n"
		_, err := Parse(strings.NewReader(input))

		var mrErr *model.MalformedRecordError
		if !errors.As(err, &mrErr) {
			t.Fatalf("expected MalformedRecordError, got %v", err)
		}
		if mrErr.Line != 3 {
			t.Errorf("expected line 3, got %d", mrErr.Line)
		}
	})

	t.Run("handles missing trailing newline", func(t *testing.T) {
		t.Parallel()

		records, err := Parse(strings.NewReader("t1 h1 A 10 in"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected 1 record, got %d", len(records))
		}
	})

	t.Run("returns empty slice for empty input", func(t *testing.T) {
		t.Parallel()

		records, err := Parse(strings.NewReader(""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
	})
}

// TestParseFile tests reading records from disk.
func TestParseFile(t *testing.T) {
	t.Parallel()

	t.Run("parses an existing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "transactions.txt")
		if err := os.WriteFile(path, []byte("t1 h1 A 10 in\nt1 h1 D 5 out\n"), 0600); err != nil {
			t.Fatal(err)
		}

		records, err := ParseFile(path, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("expected 2 records, got %d", len(records))
		}
	})

	t.Run("copies the file into the digest writer", func(t *testing.T) {
		t.Parallel()

		content := "t1 h1 A 10 in\n\nt1 h1 D 5 out\n"
		path := filepath.Join(t.TempDir(), "transactions.txt")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		var digest strings.Builder
		if _, err := ParseFile(path, &digest); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if digest.String() != content {
			t.Errorf("digest writer got %q, want %q", digest.String(), content)
		}
	})

	t.Run("returns IOError for a missing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "missing.txt")
		_, err := ParseFile(path, nil)

		var ioErr *model.IOError
		if !errors.As(err, &ioErr) {
			t.Fatalf("expected IOError, got %v", err)
		}
		if ioErr.Path != path {
			t.Errorf("expected path %s, got %s", path, ioErr.Path)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Error("expected error to wrap os.ErrNotExist")
		}
	})
}
