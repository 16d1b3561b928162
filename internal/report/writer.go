package report

import (
	"io"

	"github.com/nao1215/addrcluster/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the report of one run.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.Run) (int, error)

	// WriteSummary outputs a short overview of several runs, as produced
	// by a batch over multiple record files.
	WriteSummary(runs []*model.Run) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(run *model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the overview to all configured Writers.
func (m *MultiWriter) WriteSummary(runs []*model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(runs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// runStatus describes how a run ended.
func runStatus(run *model.Run) string {
	switch {
	case run.Cancelled:
		return "cancelled"
	case run.Failed():
		return "failed"
	default:
		return "complete"
	}
}

// errorText returns the error message of a run, if any.
func errorText(run *model.Run) string {
	if run.ErrorMessage != "" {
		return run.ErrorMessage
	}
	if run.Error != nil {
		return run.Error.Error()
	}
	return ""
}
