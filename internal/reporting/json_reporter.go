// -- internal/reporting/json_reporter.go --
package reporting

import (
	"fmt"
	"io"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/observability"
)

type jsonReport struct {
	Tool        string        `json:"tool"`
	ToolVersion string        `json:"tool_version"`
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	DurationMS  int64         `json:"duration_ms"`
	Passed      bool          `json:"passed"`
	Sessions    []jsonSession `json:"sessions"`
}

type jsonSession struct {
	Name        string               `json:"name"`
	Family      string               `json:"family"`
	Browser     string               `json:"browser,omitempty"`
	OS          string               `json:"os,omitempty"`
	OSVersion   string               `json:"os_version,omitempty"`
	Device      string               `json:"device,omitempty"`
	Status      string               `json:"status"`
	Reason      string               `json:"reason,omitempty"`
	FailedStep  string               `json:"failed_step,omitempty"`
	Diagnostics *schemas.Diagnostics `json:"diagnostics,omitempty"`
	DurationMS  int64                `json:"duration_ms"`
	Steps       []jsonStep           `json:"steps"`
}

type jsonStep struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// JSONReporter writes the summary as a single JSON document.
type JSONReporter struct {
	writer      io.WriteCloser
	toolVersion string
	logger      *zap.Logger
	report      *jsonReport
}

// NewJSONReporter creates a reporter that takes ownership of writer.
func NewJSONReporter(writer io.WriteCloser, toolVersion string) *JSONReporter {
	return &JSONReporter{
		writer:      writer,
		toolVersion: toolVersion,
		logger:      observability.GetLogger().Named("json_reporter"),
	}
}

// Write buffers the summary; the document is written on Close.
func (r *JSONReporter) Write(summary schemas.Summary) error {
	report := &jsonReport{
		Tool:        ToolName,
		ToolVersion: r.toolVersion,
		RunID:       summary.RunID,
		StartedAt:   summary.StartedAt,
		DurationMS:  summary.Duration.Milliseconds(),
		Passed:      summary.Passed(),
		Sessions:    make([]jsonSession, 0, len(summary.Outcomes)),
	}
	for _, o := range summary.Outcomes {
		s := jsonSession{
			Name:        o.SessionName,
			Family:      string(o.Platform.Family),
			Browser:     o.Platform.Browser,
			OS:          o.Platform.OS,
			OSVersion:   o.Platform.OSVersion,
			Device:      o.Platform.Device,
			Status:      string(o.Status),
			Reason:      o.Reason,
			FailedStep:  o.FailedStep,
			Diagnostics: o.Diagnostics,
			DurationMS:  o.Duration.Milliseconds(),
			Steps:       make([]jsonStep, 0, len(o.Steps)),
		}
		for _, st := range o.Steps {
			step := jsonStep{Name: st.Step, Status: string(schemas.StatusPassed), DurationMS: st.Duration.Milliseconds()}
			if st.Err != nil {
				step.Status = string(schemas.StatusFailed)
				step.Error = st.Err.Error()
			}
			s.Steps = append(s.Steps, step)
		}
		report.Sessions = append(report.Sessions, s)
	}
	r.report = report
	return nil
}

// Close encodes the buffered report and closes the writer.
func (r *JSONReporter) Close() error {
	var encodeErr error
	if r.report != nil {
		encoder := json.NewEncoder(r.writer)
		encoder.SetIndent("", "  ")
		encodeErr = encoder.Encode(r.report)
	}
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode JSON report", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode JSON output: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
