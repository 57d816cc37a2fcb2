// -- internal/reporting/console.go --
package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
)

const rule = "================================================================================"

// PrintSummary writes one line per session, an error line under every failed
// session and a final tally.
func PrintSummary(w io.Writer, summary schemas.Summary) error {
	var b strings.Builder
	b.WriteString("\n" + rule + "\n")
	b.WriteString("TEST RESULTS SUMMARY\n")
	b.WriteString(rule + "\n")

	for _, o := range summary.Outcomes {
		status := "PASSED"
		if !o.Passed() {
			status = "FAILED"
		}
		fmt.Fprintf(&b, "%s: %s (%s)\n", o.SessionName, status, o.Duration.Round(time.Millisecond))
		if o.Passed() {
			continue
		}
		fmt.Fprintf(&b, "   Error: %s\n", o.Reason)
		if o.Diagnostics != nil && o.Diagnostics.ScreenshotPath != "" {
			fmt.Fprintf(&b, "   Screenshot: %s\n", o.Diagnostics.ScreenshotPath)
		}
	}

	passed := len(summary.Outcomes) - len(summary.Failed())
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%d/%d sessions passed in %s (run %s)\n",
		passed, len(summary.Outcomes), summary.Duration.Round(time.Millisecond), summary.RunID)

	_, err := io.WriteString(w, b.String())
	return err
}
