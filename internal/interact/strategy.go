// internal/interact/strategy.go
package interact

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/crossbrowse/internal/browser"
	"github.com/xkilldash9x/crossbrowse/internal/humanoid"
)

// Strategy is one way of clicking a located element.
type Strategy interface {
	Name() string
	Apply(ctx context.Context, driver browser.Driver, element browser.Element) error
}

// Strategy names accepted in configuration.
const (
	StrategyNative  = "native"
	StrategyScript  = "script"
	StrategyPointer = "pointer"
)

// Native uses the provider's own click.
type Native struct{}

func (Native) Name() string { return StrategyNative }

func (Native) Apply(ctx context.Context, _ browser.Driver, el browser.Element) error {
	return el.Click(ctx)
}

// Script scrolls the element to the viewport center and clicks it from page
// script, bypassing overlays that intercept native clicks.
type Script struct{}

func (Script) Name() string { return StrategyScript }

func (Script) Apply(ctx context.Context, _ browser.Driver, el browser.Element) error {
	return el.ScriptClick(ctx)
}

// Pointer moves a simulated pointer onto the element and clicks.
type Pointer struct {
	Planner *humanoid.Planner
}

func (Pointer) Name() string { return StrategyPointer }

func (p Pointer) Apply(ctx context.Context, driver browser.Driver, el browser.Element) error {
	rect, err := el.Rect(ctx)
	if err != nil {
		return fmt.Errorf("reading element bounds: %w", err)
	}
	if rect.Empty() {
		return fmt.Errorf("element has no clickable area (%.0fx%.0f)", rect.Width, rect.Height)
	}
	plan := p.Planner.PlanClick(rect.X, rect.Y, rect.Width, rect.Height)
	path := make([]browser.Point, len(plan.Path))
	for i, v := range plan.Path {
		path[i] = browser.Point{X: v.X, Y: v.Y}
	}
	return driver.PointerClick(ctx, browser.PointerTarget{Element: el, Bounds: rect}, path, plan.Hold)
}

// Chain builds the strategy chain named in configuration, preserving order.
func Chain(names []string, planner *humanoid.Planner) ([]Strategy, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("strategy chain is empty")
	}
	chain := make([]Strategy, 0, len(names))
	for _, name := range names {
		switch name {
		case StrategyNative:
			chain = append(chain, Native{})
		case StrategyScript:
			chain = append(chain, Script{})
		case StrategyPointer:
			if planner == nil {
				return nil, fmt.Errorf("strategy %q needs a pointer planner", name)
			}
			chain = append(chain, Pointer{Planner: planner})
		default:
			return nil, fmt.Errorf("unknown click strategy %q", name)
		}
	}
	return chain, nil
}
