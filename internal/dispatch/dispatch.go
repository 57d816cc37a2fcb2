// File: internal/dispatch/dispatch.go
// Description: Runs one session per platform concurrently and gathers the
// outcomes into a single summary.

package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
)

// SessionRunner runs the workflow on one platform. Implementations must
// return exactly one outcome and must not share state across calls.
type SessionRunner interface {
	Run(ctx context.Context, platform schemas.PlatformConfig) schemas.SessionOutcome
}

// Dispatcher fans sessions out across platforms.
type Dispatcher struct {
	runner SessionRunner
	logger *zap.Logger
	limit  int
	newID  func() string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLimit caps the number of sessions running at once. Zero or less means
// no cap.
func WithLimit(n int) Option {
	return func(d *Dispatcher) { d.limit = n }
}

// WithRunID fixes the run ID instead of generating one.
func WithRunID(id string) Option {
	return func(d *Dispatcher) { d.newID = func() string { return id } }
}

// New creates a Dispatcher around runner.
func New(runner SessionRunner, logger *zap.Logger, opts ...Option) (*Dispatcher, error) {
	if runner == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize dispatcher with nil dependencies")
	}
	d := &Dispatcher{
		runner: runner,
		logger: logger.Named("dispatch"),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// result carries an outcome back with the index of its platform.
type result struct {
	index   int
	outcome schemas.SessionOutcome
}

// Run starts one session per platform and waits for all of them. Outcomes
// are returned in the order of platforms, whatever order they finish in.
// Cancelling ctx stops the sessions early; each still yields an outcome.
func (d *Dispatcher) Run(ctx context.Context, platforms []schemas.PlatformConfig) schemas.Summary {
	summary := schemas.Summary{
		RunID:     d.newID(),
		StartedAt: time.Now(),
	}
	log := d.logger.With(zap.String("run_id", summary.RunID))
	log.Info("Dispatching sessions.", zap.Int("platforms", len(platforms)), zap.Int("limit", d.limit))

	results := make(chan result, len(platforms))
	var g errgroup.Group
	if d.limit > 0 {
		g.SetLimit(d.limit)
	}
	for i, pc := range platforms {
		g.Go(func() error {
			results <- result{index: i, outcome: d.runOne(ctx, pc, log)}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	summary.Outcomes = make([]schemas.SessionOutcome, len(platforms))
	for r := range results {
		summary.Outcomes[r.index] = r.outcome
	}
	summary.Duration = time.Since(summary.StartedAt)

	log.Info("All sessions finished.",
		zap.Int("total", len(summary.Outcomes)),
		zap.Int("failed", len(summary.Failed())),
		zap.Bool("passed", summary.Passed()),
		zap.Duration("duration", summary.Duration))
	return summary
}

// runOne isolates a session so a panicking runner cannot take the others
// down or leave its slot empty.
func (d *Dispatcher) runOne(ctx context.Context, pc schemas.PlatformConfig, log *zap.Logger) (out schemas.SessionOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("Session runner panicked.",
				zap.String("session", pc.SessionName),
				zap.Any("panicValue", r),
				zap.String("stack", string(debug.Stack())))
			out = schemas.SessionOutcome{
				SessionName: pc.SessionName,
				Platform:    pc,
				Status:      schemas.StatusFailed,
				Reason:      fmt.Sprintf("session runner panicked: %v", r),
				Duration:    time.Since(start),
			}
		}
	}()
	return d.runner.Run(ctx, pc)
}
