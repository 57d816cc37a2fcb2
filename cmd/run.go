// -- cmd/run.go --
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crossbrowse/internal/browser"
	"github.com/xkilldash9x/crossbrowse/internal/browser/cdp"
	"github.com/xkilldash9x/crossbrowse/internal/browser/webdriver"
	"github.com/xkilldash9x/crossbrowse/internal/config"
	"github.com/xkilldash9x/crossbrowse/internal/dispatch"
	"github.com/xkilldash9x/crossbrowse/internal/observability"
	"github.com/xkilldash9x/crossbrowse/internal/platform"
	"github.com/xkilldash9x/crossbrowse/internal/reporting"
	"github.com/xkilldash9x/crossbrowse/internal/runner"
	"github.com/xkilldash9x/crossbrowse/internal/workflow"
)

// Function variables for dependency injection in tests.
var (
	newFactory  = defaultFactory
	newWorkflow = workflow.Default
)

// defaultFactory picks the remote hub or local Chrome.
func defaultFactory(cfg *config.Config, logger *zap.Logger) browser.Factory {
	if cfg.Remote() {
		return webdriver.NewFactory(cfg.Provider.HubURL, webdriver.Credentials{
			Username:  cfg.Provider.Username,
			AccessKey: cfg.Provider.AccessKey,
		}, platform.Capabilities, logger)
	}
	return cdp.NewFactory(cfg.Local, logger)
}

type runOptions struct {
	local        bool
	platforms    []string
	report       string
	reportFormat string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the storefront workflow on every selected platform",
		Long: `Run opens one browser session per platform, all at once, and drives the
sign-in, filter, favorite and verify workflow in each. The exit status is 0
only when every session passed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	flags := runCmd.Flags()
	flags.BoolVar(&opts.local, "local", false, "run against a local Chrome instead of the remote hub")
	flags.StringSliceVarP(&opts.platforms, "platform", "p", nil, "only run platforms whose name contains this text (repeatable)")
	flags.StringVar(&opts.report, "report", "", "write a machine-readable report to this path (\"stdout\" for standard output)")
	flags.StringVar(&opts.reportFormat, "report-format", reporting.FormatJSON, "report format: json, junit or text")
	flags.String("verify-policy", "", "missing verification elements: fail or assume-success")
	flags.Int("max-parallel", 0, "maximum concurrent sessions (0 runs all at once)")
	flags.String("artifacts-dir", "", "directory for failure screenshots")

	annotate(runCmd, "verify-policy", "verification.on_missing")
	annotate(runCmd, "max-parallel", "run.max_parallel")
	annotate(runCmd, "artifacts-dir", "run.artifacts_dir")
	return runCmd
}

func runWorkflow(ctx context.Context, out io.Writer, opts runOptions) error {
	cfg, err := configFrom(ctx)
	if err != nil {
		return err
	}
	logger := observability.GetLogger()

	if opts.local {
		cfg.Provider.Kind = config.ProviderLocal
	}
	// Credentials and policies are checked before any session is created.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	switch opts.reportFormat {
	case reporting.FormatJSON, reporting.FormatJUnit, reporting.FormatText:
	default:
		return fmt.Errorf("unsupported report format: %s", opts.reportFormat)
	}

	overrides, err := workflow.ParseOverrides(cfg.Locators)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	all, err := platform.Resolve(cfg)
	if err != nil {
		return err
	}
	selected, err := platform.Select(all, opts.platforms)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return fmt.Errorf("no platforms selected")
	}

	r := runner.New(newFactory(cfg, logger), newWorkflow(), cfg, logger, runner.WithLocatorOverrides(overrides))
	d, err := dispatch.New(r, logger, dispatch.WithLimit(cfg.Run.MaxParallel))
	if err != nil {
		return err
	}

	logger.Info("Starting run",
		zap.String("provider", cfg.Provider.Kind),
		zap.String("target", cfg.Target.URL),
		zap.String("verify_policy", cfg.Verification.OnMissing),
		zap.Int("platforms", len(selected)))

	summary := d.Run(ctx, selected)

	if err := reporting.PrintSummary(out, summary); err != nil {
		logger.Warn("Failed to print summary", zap.Error(err))
	}
	if opts.report != "" {
		if err := writeReport(opts, summary); err != nil {
			return err
		}
	}

	if !summary.Passed() {
		return &ExitError{Code: summary.ExitCode()}
	}
	return nil
}
