// -- cmd/report.go --
package cmd

import (
	"fmt"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/reporting"
)

func writeReport(opts runOptions, summary schemas.Summary) error {
	reporter, err := reporting.New(opts.reportFormat, opts.report, Version)
	if err != nil {
		return err
	}
	writeErr := reporter.Write(summary)
	closeErr := reporter.Close()
	if writeErr != nil {
		return fmt.Errorf("failed to write report: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to finalize report: %w", closeErr)
	}
	return nil
}
