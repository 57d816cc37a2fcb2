// internal/interact/interactor.go
// Package interact finds elements and clicks them robustly. A request names
// an ordered set of alternative locators; each located element is tried with
// an ordered chain of click strategies until one works. Failures of
// individual alternatives are absorbed; only exhaustion is reported.
package interact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/browser"
)

var (
	// ErrExhausted is returned when every locator and strategy has failed.
	ErrExhausted = errors.New("all interaction alternatives exhausted")
	// ErrNoLocators is returned for a request with an empty locator set.
	ErrNoLocators = errors.New("no locators given")

	errNotDisplayed = errors.New("element is present but not displayed")
)

// Action is what to do with the located element.
type Action int

const (
	// Click locates a displayed element and clicks it.
	Click Action = iota
	// CheckPresence only requires the element to exist.
	CheckPresence
)

func (a Action) String() string {
	switch a {
	case Click:
		return "click"
	case CheckPresence:
		return "check-presence"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Request describes one logical interaction.
type Request struct {
	// Scope restricts lookups to an element's subtree. Nil means the document.
	Scope    browser.Finder
	Locators schemas.LocatorSet
	Action   Action
	// Timeout bounds the wait for each locator. Zero uses the interactor default.
	Timeout     time.Duration
	Description string
}

// Attempt records one tried alternative. Strategy is empty for a lookup that
// found nothing.
type Attempt struct {
	Locator  schemas.Locator
	Strategy string
	Err      error
}

// Result is the outcome of Do. On success Err is nil and Locator, Strategy
// and Element identify what worked.
type Result struct {
	Locator  schemas.Locator
	Strategy string
	Element  browser.Element
	Attempts []Attempt
	Err      error
}

// OK reports whether the interaction succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Settings tunes the interactor.
type Settings struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// Interactor runs requests against one session.
type Interactor struct {
	driver     browser.Driver
	strategies []Strategy
	settings   Settings
	logger     *zap.Logger
}

// New returns an interactor for driver using the given strategy chain.
func New(driver browser.Driver, strategies []Strategy, settings Settings, logger *zap.Logger) *Interactor {
	if settings.PollInterval <= 0 {
		settings.PollInterval = 500 * time.Millisecond
	}
	return &Interactor{
		driver:     driver,
		strategies: strategies,
		settings:   settings,
		logger:     logger.Named("interactor"),
	}
}

// Do walks the locators in order and, for Click, the strategy chain in order
// on each located element. It stops at the first success, so at most one
// click takes effect per call. Cancellation of ctx is returned unwrapped.
func (i *Interactor) Do(ctx context.Context, req Request) Result {
	var res Result
	if len(req.Locators) == 0 {
		res.Err = ErrNoLocators
		return res
	}
	scope := req.Scope
	if scope == nil {
		scope = i.driver
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = i.settings.Timeout
	}
	log := i.logger.With(zap.String("target", req.Description), zap.Stringer("action", req.Action))

	var lastErr error
	for _, loc := range req.Locators {
		el, err := i.await(ctx, scope, loc, timeout, req.Action == Click)
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.Err = ctxErr
			return res
		}
		if err != nil {
			log.Debug("Locator did not resolve.", zap.Stringer("locator", loc), zap.Error(err))
			res.Attempts = append(res.Attempts, Attempt{Locator: loc, Err: err})
			lastErr = err
			continue
		}

		if req.Action == CheckPresence {
			res.Attempts = append(res.Attempts, Attempt{Locator: loc})
			res.Locator, res.Element = loc, el
			return res
		}

		for _, s := range i.strategies {
			err := i.apply(ctx, s, el, timeout)
			res.Attempts = append(res.Attempts, Attempt{Locator: loc, Strategy: s.Name(), Err: err})
			if err == nil {
				log.Debug("Interaction succeeded.", zap.Stringer("locator", loc), zap.String("strategy", s.Name()))
				res.Locator, res.Strategy, res.Element = loc, s.Name(), el
				return res
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.Err = ctxErr
				return res
			}
			log.Debug("Strategy failed.", zap.Stringer("locator", loc), zap.String("strategy", s.Name()), zap.Error(err))
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no click strategies configured")
	}
	res.Err = fmt.Errorf("%w: %s: %w", ErrExhausted, req.Description, lastErr)
	return res
}

func (i *Interactor) apply(ctx context.Context, s Strategy, el browser.Element, timeout time.Duration) error {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Apply(attemptCtx, i.driver, el)
}

// await polls scope for loc until a matching element appears, or, when
// visible is set, until one is displayed. It gives up after timeout.
func (i *Interactor) await(ctx context.Context, scope browser.Finder, loc schemas.Locator, timeout time.Duration, visible bool) (browser.Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(i.settings.PollInterval), 1)
	lastErr := browser.ErrNoSuchElement
	for {
		// Wait fails early once the next poll would pass the deadline.
		if err := limiter.Wait(waitCtx); err != nil {
			break
		}
		els, err := scope.FindElements(waitCtx, loc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if waitCtx.Err() == nil {
				lastErr = err
			}
			continue
		}
		for _, el := range els {
			if !visible {
				return el, nil
			}
			shown, err := el.Displayed(waitCtx)
			if err == nil && shown {
				return el, nil
			}
		}
		if len(els) > 0 {
			lastErr = errNotDisplayed
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s not found within %s: %w", loc, timeout, lastErr)
}
