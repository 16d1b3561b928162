package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/addrcluster/internal/model"
)

// JSONWriter outputs reports in JSON format.
// Records, the cluster view and edges are excluded; the artifact paths
// point at them instead.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run in JSON format.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	fillErrorMessage(run)
	return w.writeJSON(run)
}

// WriteSummary outputs all runs as one JSON array.
func (w *JSONWriter) WriteSummary(runs []*model.Run) (int, error) {
	for _, run := range runs {
		if run != nil {
			fillErrorMessage(run)
		}
	}
	return w.writeJSON(runs)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// fillErrorMessage copies the run error into its serialized field.
func fillErrorMessage(run *model.Run) {
	if run.ErrorMessage == "" && run.Error != nil {
		run.ErrorMessage = run.Error.Error()
	}
}

// JSONReport wraps a run with the version of the tool that produced it.
type JSONReport struct {
	// Version is the addrcluster version that generated this report.
	Version string `json:"version"`

	// Run is the run report.
	Run *model.Run `json:"run"`
}

// FullJSONWriter outputs runs wrapped with version metadata.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for runs with version metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the run wrapped with metadata.
func (w *FullJSONWriter) Write(run *model.Run) (int, error) {
	fillErrorMessage(run)
	return w.writeJSON(&JSONReport{Version: w.version, Run: run})
}

// WriteSummary outputs every run wrapped with metadata.
func (w *FullJSONWriter) WriteSummary(runs []*model.Run) (int, error) {
	wrapped := make([]*JSONReport, 0, len(runs))
	for _, run := range runs {
		if run == nil {
			continue
		}
		fillErrorMessage(run)
		wrapped = append(wrapped, &JSONReport{Version: w.version, Run: run})
	}
	return w.writeJSON(wrapped)
}
