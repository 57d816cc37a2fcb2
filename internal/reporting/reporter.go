// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
)

// Supported report formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatJUnit = "junit"
)

// ToolName identifies the producer in machine-readable reports.
const ToolName = "crossbrowse"

// Reporter writes a run summary to an output.
type Reporter interface {
	// Write renders the summary. It may buffer until Close.
	Write(summary schemas.Summary) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath, toolVersion string) (Reporter, error) {
	switch format {
	case FormatText, FormatJSON, FormatJUnit:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewWithWriter(format, writer, toolVersion)
}

// NewWithWriter creates a reporter that takes ownership of writer.
func NewWithWriter(format string, writer io.WriteCloser, toolVersion string) (Reporter, error) {
	switch format {
	case FormatText:
		return &TextReporter{writer: writer}, nil
	case FormatJSON:
		return NewJSONReporter(writer, toolVersion), nil
	case FormatJUnit:
		return NewJUnitReporter(writer, toolVersion), nil
	default:
		writer.Close()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// TextReporter writes the human-readable summary.
type TextReporter struct {
	writer io.WriteCloser
}

func (r *TextReporter) Write(summary schemas.Summary) error {
	return PrintSummary(r.writer, summary)
}

func (r *TextReporter) Close() error {
	return r.writer.Close()
}
