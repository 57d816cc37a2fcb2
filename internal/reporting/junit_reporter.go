// -- internal/reporting/junit_reporter.go --
package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/observability"
)

// sessionCase names the test case recorded for a session that failed before
// any step ran.
const sessionCase = "session"

// JUnitReporter writes the summary as JUnit XML: one testsuite per session
// and one testcase per workflow step.
type JUnitReporter struct {
	writer      io.WriteCloser
	toolVersion string
	logger      *zap.Logger
	doc         *etree.Document
}

// NewJUnitReporter creates a reporter that takes ownership of writer.
func NewJUnitReporter(writer io.WriteCloser, toolVersion string) *JUnitReporter {
	return &JUnitReporter{
		writer:      writer,
		toolVersion: toolVersion,
		logger:      observability.GetLogger().Named("junit_reporter"),
	}
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// Write builds the XML document; it is written on Close.
func (r *JUnitReporter) Write(summary schemas.Summary) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("testsuites")
	root.CreateAttr("name", ToolName)
	root.CreateAttr("time", seconds(summary.Duration))

	var tests, failures int
	for _, o := range summary.Outcomes {
		suite := root.CreateElement("testsuite")
		suite.CreateAttr("name", o.SessionName)
		suite.CreateAttr("time", seconds(o.Duration))
		if !summary.StartedAt.IsZero() {
			suite.CreateAttr("timestamp", summary.StartedAt.UTC().Format(time.RFC3339))
		}

		props := suite.CreateElement("properties")
		addProperty(props, "run_id", summary.RunID)
		addProperty(props, "tool_version", r.toolVersion)
		addProperty(props, "family", string(o.Platform.Family))
		addProperty(props, "browser", o.Platform.Browser)
		addProperty(props, "os", strings.TrimSpace(o.Platform.OS+" "+o.Platform.OSVersion))
		addProperty(props, "device", o.Platform.Device)

		suiteTests, suiteFailures := 0, 0
		for _, st := range o.Steps {
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("name", st.Step)
			tc.CreateAttr("classname", o.SessionName)
			tc.CreateAttr("time", seconds(st.Duration))
			suiteTests++
			if st.Err != nil {
				addFailure(tc, o, st.Err.Error())
				suiteFailures++
			}
		}
		// A session that failed outside the steps still needs a failing case.
		if !o.Passed() && suiteFailures == 0 {
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("name", sessionCase)
			tc.CreateAttr("classname", o.SessionName)
			tc.CreateAttr("time", "0.000")
			addFailure(tc, o, o.Reason)
			suiteTests++
			suiteFailures++
		}

		suite.CreateAttr("tests", strconv.Itoa(suiteTests))
		suite.CreateAttr("failures", strconv.Itoa(suiteFailures))
		tests += suiteTests
		failures += suiteFailures
	}
	root.CreateAttr("tests", strconv.Itoa(tests))
	root.CreateAttr("failures", strconv.Itoa(failures))

	doc.Indent(2)
	r.doc = doc
	return nil
}

func addProperty(props *etree.Element, name, value string) {
	if value == "" {
		return
	}
	p := props.CreateElement("property")
	p.CreateAttr("name", name)
	p.CreateAttr("value", value)
}

func addFailure(tc *etree.Element, o schemas.SessionOutcome, message string) {
	f := tc.CreateElement("failure")
	f.CreateAttr("message", message)
	f.CreateAttr("type", "failure")
	if d := o.Diagnostics; d != nil {
		var b strings.Builder
		fmt.Fprintf(&b, "url: %s\ntitle: %s\n", d.URL, d.Title)
		if d.ScreenshotPath != "" {
			fmt.Fprintf(&b, "screenshot: %s\n", d.ScreenshotPath)
		}
		f.SetText(b.String())
	}
}

// Close writes the document and closes the writer.
func (r *JUnitReporter) Close() error {
	var writeErr error
	if r.doc != nil {
		_, writeErr = r.doc.WriteTo(r.writer)
	}
	closeErr := r.writer.Close()

	if writeErr != nil {
		r.logger.Error("Failed to write JUnit report", zap.Error(writeErr))
		return fmt.Errorf("failed to write JUnit output: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
