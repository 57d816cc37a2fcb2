// internal/runner/runner.go
// Package runner owns one browser session per platform: it opens the
// session, runs the workflow, reports the result to the provider and always
// tears the session down. Every call yields exactly one SessionOutcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/browser"
	"github.com/xkilldash9x/crossbrowse/internal/config"
	"github.com/xkilldash9x/crossbrowse/internal/humanoid"
	"github.com/xkilldash9x/crossbrowse/internal/interact"
	"github.com/xkilldash9x/crossbrowse/internal/observability"
	"github.com/xkilldash9x/crossbrowse/internal/workflow"
)

// Timeouts for work done after the run context may already be cancelled.
const (
	teardownTimeout    = 30 * time.Second
	diagnosticsTimeout = 15 * time.Second
)

const passedReason = "All test steps completed successfully"

// Runner runs the workflow on one platform at a time. It is safe for
// concurrent use; each Run owns its session exclusively.
type Runner struct {
	factory   browser.Factory
	workflow  *workflow.Workflow
	cfg       *config.Config
	logger    *zap.Logger
	observer  workflow.Observer
	overrides map[string]schemas.LocatorSet
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver forwards workflow progress to obs.
func WithObserver(obs workflow.Observer) Option {
	return func(r *Runner) { r.observer = obs }
}

// WithLocatorOverrides sets per-step locators tried before the built-in ones.
func WithLocatorOverrides(overrides map[string]schemas.LocatorSet) Option {
	return func(r *Runner) { r.overrides = overrides }
}

// New returns a Runner that opens sessions with factory.
func New(factory browser.Factory, wf *workflow.Workflow, cfg *config.Config, logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		factory:  factory,
		workflow: wf,
		cfg:      cfg,
		logger:   logger.Named("runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the workflow on platform. It never panics and never returns
// an error; failures are recorded on the outcome.
func (r *Runner) Run(ctx context.Context, platform schemas.PlatformConfig) (out schemas.SessionOutcome) {
	start := time.Now()
	log := observability.ForSession(r.logger, platform.SessionName)
	out = schemas.SessionOutcome{
		SessionName: platform.SessionName,
		Platform:    platform,
		Status:      schemas.StatusFailed,
	}

	var driver browser.Driver
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Session panicked.",
				zap.Any("panicValue", rec),
				zap.String("stack", string(debug.Stack())))
			r.fail(&out, "", fmt.Errorf("panic: %v", rec))
			if driver != nil {
				r.reportStatus(ctx, driver, out, log)
			}
		}
		if driver != nil {
			r.teardown(ctx, driver, log)
		}
		out.Duration = time.Since(start)
		if out.Passed() {
			log.Info("Session passed.", zap.Duration("duration", out.Duration))
		} else {
			log.Error("Session failed.", zap.String("reason", out.Reason), zap.String("step", out.FailedStep))
		}
	}()

	log.Info("Session starting.", zap.String("browser", platform.Browser), zap.String("family", string(platform.Family)))

	var err error
	driver, err = r.open(ctx, platform, log)
	if err != nil {
		r.fail(&out, "", err)
		return out
	}

	mobile := platform.IsMobile()
	if err := driver.SetPageLoadTimeout(ctx, r.cfg.PageLoadTimeout(mobile)); err != nil {
		log.Warn("Could not set the page load timeout.", zap.Error(err))
	}

	if err := driver.Navigate(ctx, r.cfg.Target.URL); err != nil {
		r.fail(&out, "navigate", err)
		out.Diagnostics = r.capture(ctx, driver, platform, log)
		r.reportStatus(ctx, driver, out, log)
		return out
	}

	chain, err := interact.Chain(r.cfg.Interaction.Strategies, humanoid.New(r.cfg.Humanoid))
	if err != nil {
		r.fail(&out, "", err)
		r.reportStatus(ctx, driver, out, log)
		return out
	}
	interactor := interact.New(driver, chain, interact.Settings{
		Timeout:      r.cfg.InteractionTimeout(mobile),
		PollInterval: r.cfg.Interaction.PollInterval,
	}, log)

	steps, err := r.workflow.Run(ctx, workflow.Env{
		Driver:     driver,
		Interactor: interactor,
		Target:     r.cfg.Target,
		OnMissing:  r.cfg.Verification.OnMissing,
		Settle:     r.cfg.SettleDelay(mobile),
		Logger:     log,
		Observer:   r.observer,
		Overrides:  r.overrides,
	})
	out.Steps = steps

	if err != nil {
		var stepErr *workflow.StepError
		step := ""
		if errors.As(err, &stepErr) {
			step = stepErr.Step
		}
		r.fail(&out, step, err)
		out.Diagnostics = r.capture(ctx, driver, platform, log)
	} else {
		out.Status = schemas.StatusPassed
		out.Reason = passedReason
	}
	r.reportStatus(ctx, driver, out, log)
	return out
}

// open creates the session, retrying up to the platform's attempt count.
// Fatal provider errors and cancellation are not retried.
func (r *Runner) open(ctx context.Context, platform schemas.PlatformConfig, log *zap.Logger) (browser.Driver, error) {
	attempts := platform.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		driver, err := r.factory.Open(ctx, platform)
		if err == nil {
			log.Info("Session created.", zap.Int("attempt", attempt))
			return driver, nil
		}
		lastErr = err
		if errors.Is(err, browser.ErrFatalSession) || ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			log.Warn("Session creation failed, retrying.",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Error(err))
			if err := sleep(ctx, r.cfg.Run.SessionRetryDelay); err != nil {
				lastErr = err
				break
			}
		}
	}
	return nil, fmt.Errorf("session creation failed: %w", lastErr)
}

func (r *Runner) fail(out *schemas.SessionOutcome, step string, err error) {
	out.Status = schemas.StatusFailed
	out.FailedStep = step
	out.Reason = truncate(err.Error(), r.cfg.Run.ReasonLimit)
}

// teardown quits the session exactly once, even after ctx is cancelled.
func (r *Runner) teardown(ctx context.Context, driver browser.Driver, log *zap.Logger) {
	quitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	if err := driver.Quit(quitCtx); err != nil {
		log.Warn("Session teardown failed.", zap.Error(err))
		return
	}
	log.Debug("Session closed.")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// truncate shortens s to at most limit runes.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
