// internal/workflow/workflow.go
// Package workflow is the fixed login, filter, favorite and verify sequence
// run in every session. Steps run strictly in order and the first failure
// ends the run.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/browser"
	"github.com/xkilldash9x/crossbrowse/internal/config"
	"github.com/xkilldash9x/crossbrowse/internal/interact"
)

// Step names in execution order.
const (
	StepOpenSignIn             = "open-sign-in"
	StepOpenAccountSelector    = "open-account-selector"
	StepChooseAccount          = "choose-account"
	StepOpenCredentialSelector = "open-credential-selector"
	StepChooseCredential       = "choose-credential"
	StepSubmitLogin            = "submit-login"
	StepVerifyPostLogin        = "verify-post-login-state"
	StepApplyBrandFilter       = "apply-brand-filter"
	StepLocateTargetProduct    = "locate-target-product"
	StepToggleFavorite         = "toggle-favorite"
	StepNavigateToFavorites    = "navigate-to-favorites-view"
	StepVerifyTargetPresent    = "verify-target-present"
)

var (
	// ErrVerification is returned when an expected post-condition is absent
	// and the verification policy is "fail".
	ErrVerification = errors.New("verification failed")
	// ErrFavoritesEmpty is returned when the favorites view reports no products.
	ErrFavoritesEmpty = errors.New("favorites view is empty")
	// ErrProductNotFound is returned when no product card matches the target product.
	ErrProductNotFound = errors.New("target product not found")
)

// StepError tags a failure with the step that produced it.
type StepError struct {
	Step  string
	Index int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Observer is notified as the run moves through its states.
type Observer interface {
	StepStarted(index int, step string)
	StepFinished(index int, result schemas.StepResult)
}

// Env is everything a run needs from its session.
type Env struct {
	Driver     browser.Driver
	Interactor *interact.Interactor
	Target     config.TargetConfig
	// OnMissing is config.VerifyFail or config.VerifyAssumeSuccess.
	OnMissing string
	// Settle is the pause after every step but the last.
	Settle   time.Duration
	Logger   *zap.Logger
	Observer Observer
	// Overrides holds per-step locators tried ahead of the built-in sets.
	Overrides map[string]schemas.LocatorSet
}

// Run is the state carried between the steps of one run.
type Run struct {
	Env
	// Product is the card located by locate-target-product.
	Product browser.Element

	step string
}

// Step is one named unit of the sequence.
type Step struct {
	Name string
	Do   func(ctx context.Context, r *Run) error
}

// Workflow is an ordered list of steps.
type Workflow struct {
	steps []Step
}

// New returns a workflow running steps in the given order.
func New(steps ...Step) *Workflow {
	return &Workflow{steps: steps}
}

// Default returns the storefront sequence.
func Default() *Workflow {
	return New(
		Step{StepOpenSignIn, clickStep(signInLocators, "sign in")},
		Step{StepOpenAccountSelector, clickStep(func() schemas.LocatorSet { return selectorLocators("username") }, "account selector")},
		Step{StepChooseAccount, chooseAccount},
		Step{StepOpenCredentialSelector, clickStep(func() schemas.LocatorSet { return selectorLocators("password") }, "credential selector")},
		Step{StepChooseCredential, chooseCredential},
		Step{StepSubmitLogin, clickStep(loginButtonLocators, "login button")},
		Step{StepVerifyPostLogin, verifyPostLogin},
		Step{StepApplyBrandFilter, applyBrandFilter},
		Step{StepLocateTargetProduct, locateTargetProduct},
		Step{StepToggleFavorite, toggleFavorite},
		Step{StepNavigateToFavorites, clickStep(favoritesViewLocators, "favorites link")},
		Step{StepVerifyTargetPresent, verifyTargetPresent},
	)
}

// Names lists the step names in order.
func (w *Workflow) Names() []string {
	names := make([]string, len(w.steps))
	for i, s := range w.steps {
		names[i] = s.Name
	}
	return names
}

// Run executes the steps in order. It returns the results of every step that
// ran and, on failure, a *StepError for the failing step. No step after a
// failure is started.
func (w *Workflow) Run(ctx context.Context, env Env) ([]schemas.StepResult, error) {
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	run := &Run{Env: env}
	results := make([]schemas.StepResult, 0, len(w.steps))

	for i, step := range w.steps {
		if env.Observer != nil {
			env.Observer.StepStarted(i, step.Name)
		}
		log := env.Logger.With(zap.String("step", step.Name))
		log.Debug("Step started.")

		run.step = step.Name
		start := time.Now()
		err := step.Do(ctx, run)
		if err == nil && i < len(w.steps)-1 {
			err = pause(ctx, env.Settle)
		}
		result := schemas.StepResult{Step: step.Name, Err: err, Duration: time.Since(start)}
		results = append(results, result)
		if env.Observer != nil {
			env.Observer.StepFinished(i, result)
		}

		if err != nil {
			log.Warn("Step failed.", zap.Error(err))
			return results, &StepError{Step: step.Name, Index: i, Err: err}
		}
		log.Info("Step completed.", zap.Duration("duration", result.Duration))
	}
	return results, nil
}

// ParseOverrides parses the configured per-step locators. Step names must
// belong to the default sequence.
func ParseOverrides(raw map[string][]string) (map[string]schemas.LocatorSet, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	known := make(map[string]bool)
	for _, name := range Default().Names() {
		known[name] = true
	}
	out := make(map[string]schemas.LocatorSet, len(raw))
	for name, entries := range raw {
		if !known[name] {
			return nil, fmt.Errorf("locators: unknown step %q", name)
		}
		set, err := schemas.ParseLocatorSet(entries)
		if err != nil {
			return nil, fmt.Errorf("locators.%s: %w", name, err)
		}
		out[name] = set
	}
	return out, nil
}

// locators prepends the current step's overrides to defaults.
func (r *Run) locators(defaults schemas.LocatorSet) schemas.LocatorSet {
	extra := r.Overrides[r.step]
	if len(extra) == 0 {
		return defaults
	}
	r.Logger.Debug("Using configured locators.",
		zap.String("step", r.step), zap.Strings("locators", extra.Strings()))
	set := make(schemas.LocatorSet, 0, len(extra)+len(defaults))
	set = append(set, extra...)
	return append(set, defaults...)
}

func pause(ctx context.Context, d time.Duration) error {
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

func clickStep(locators func() schemas.LocatorSet, description string) func(context.Context, *Run) error {
	return func(ctx context.Context, r *Run) error {
		return r.Interactor.Do(ctx, interact.Request{
			Locators:    r.locators(locators()),
			Action:      interact.Click,
			Description: description,
		}).Err
	}
}

func chooseAccount(ctx context.Context, r *Run) error {
	return r.Interactor.Do(ctx, interact.Request{
		Locators:    r.locators(optionLocators(r.Target.Account, "react-select-2-option-0-0")),
		Action:      interact.Click,
		Description: "account option " + r.Target.Account,
	}).Err
}

func chooseCredential(ctx context.Context, r *Run) error {
	return r.Interactor.Do(ctx, interact.Request{
		Locators:    r.locators(optionLocators(r.Target.Password, "react-select-3-option-0-0")),
		Action:      interact.Click,
		Description: "credential option",
	}).Err
}

func verifyPostLogin(ctx context.Context, r *Run) error {
	res := r.Interactor.Do(ctx, interact.Request{
		Locators:    r.locators(shelfLocators()),
		Action:      interact.CheckPresence,
		Description: "product shelf",
	})
	if res.Err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return r.onMissing("product shelf after login", res.Err)
}

func applyBrandFilter(ctx context.Context, r *Run) error {
	// The filter panel sits at the top of the page.
	if _, err := r.Driver.ExecuteScript(ctx, browser.ScrollTopJS); err != nil {
		r.Logger.Debug("Could not scroll to top.", zap.Error(err))
	}
	return r.Interactor.Do(ctx, interact.Request{
		Locators:    r.locators(brandFilterLocators(r.Target.Brand)),
		Action:      interact.Click,
		Description: "brand filter " + r.Target.Brand,
	}).Err
}

func locateTargetProduct(ctx context.Context, r *Run) error {
	res := r.Interactor.Do(ctx, interact.Request{
		Locators:    r.locators(productCardLocators(r.Target.Product)),
		Action:      interact.CheckPresence,
		Description: "product card " + r.Target.Product,
	})
	card := res.Element
	if res.Err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var err error
		if card, err = scanProductCards(ctx, r.Driver, r.Target.Product); err != nil {
			return fmt.Errorf("%w: %w", err, res.Err)
		}
	}
	if _, err := r.Driver.ExecuteScript(ctx, browser.ScrollIntoCenterJS, card); err != nil {
		r.Logger.Debug("Could not scroll product into view.", zap.Error(err))
	}
	r.Product = card
	return nil
}

// scanProductCards reads every card title and returns the first card whose
// title contains product.
func scanProductCards(ctx context.Context, d browser.Driver, product string) (browser.Element, error) {
	cards, err := d.FindElements(ctx, productCardCSS)
	if err != nil {
		return nil, err
	}
	for _, card := range cards {
		titles, err := card.FindElements(ctx, productTitleCSS)
		if err != nil || len(titles) == 0 {
			continue
		}
		text, err := titles[0].Text(ctx)
		if err != nil {
			continue
		}
		if strings.Contains(text, product) {
			return card, nil
		}
	}
	return nil, fmt.Errorf("%w: %q among %d products", ErrProductNotFound, product, len(cards))
}

func toggleFavorite(ctx context.Context, r *Run) error {
	if r.Product == nil {
		return fmt.Errorf("%w: no product card was located", ErrProductNotFound)
	}
	return r.Interactor.Do(ctx, interact.Request{
		Scope:       r.Product,
		Locators:    r.locators(favoriteLocators()),
		Action:      interact.Click,
		Description: "favorite control",
	}).Err
}

func verifyTargetPresent(ctx context.Context, r *Run) error {
	res := r.Interactor.Do(ctx, interact.Request{
		Locators:    r.locators(favoritedProductLocators(r.Target.Product)),
		Action:      interact.CheckPresence,
		Description: "favorited " + r.Target.Product,
	})
	if res.Err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	source, err := r.Driver.PageSource(ctx)
	if err == nil {
		if strings.Contains(source, r.Target.Product) {
			r.Logger.Info("Product found in page source.", zap.String("product", r.Target.Product))
			return nil
		}
		lower := strings.ToLower(source)
		if strings.Contains(lower, "no products") || strings.Contains(lower, "empty") {
			return fmt.Errorf("%w: %s was not added", ErrFavoritesEmpty, r.Target.Product)
		}
	}
	return r.onMissing(r.Target.Product+" in favorites", res.Err)
}

// onMissing applies the verification policy to a post-condition that was
// not observed.
func (r *Run) onMissing(what string, cause error) error {
	if r.OnMissing == config.VerifyAssumeSuccess {
		r.Logger.Warn("Verification element missing; assuming success.",
			zap.String("expected", what), zap.Error(cause))
		return nil
	}
	return fmt.Errorf("%w: %s not found: %w", ErrVerification, what, cause)
}
