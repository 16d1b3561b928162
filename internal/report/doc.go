// Package report writes run reports for people and tools.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub-flavored markdown with a mermaid chart
//
// Writers only read the run. The UserMap, KeyMap and graph artifacts are
// written by the export package; reports describe them.
package report
