// internal/browser/browser.go
// Package browser defines the boundary to the browser automation provider.
// The interactor, workflow and runner depend only on these interfaces; the
// webdriver and cdp subpackages implement them for the remote hub and for a
// local Chrome respectively.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
)

// ErrNoSuchElement reports that a lookup ran and matched nothing.
var ErrNoSuchElement = errors.New("no such element")

// ErrSessionClosed is returned by operations on a driver after Quit.
var ErrSessionClosed = errors.New("browser session is closed")

// ErrFatalSession marks a session creation error that retrying cannot fix,
// such as capabilities the provider rejects as malformed.
var ErrFatalSession = errors.New("session configuration rejected")

// Point is a position in CSS pixels relative to the viewport.
type Point struct {
	X, Y float64
}

// Rect is an element's bounding box in CSS pixels relative to the viewport.
type Rect struct {
	X, Y, Width, Height float64
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Empty reports whether the rectangle has no clickable area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// PointerTarget is the element a pointer path ends on and the viewport bounds
// the path was planned against. Providers whose pointer input is
// element-relative translate the path with Bounds.
type PointerTarget struct {
	Element Element
	Bounds  Rect
}

// Finder resolves locators. A Driver searches the whole document; an Element
// searches its own subtree.
type Finder interface {
	FindElements(ctx context.Context, loc schemas.Locator) ([]Element, error)
}

// Element is a handle to a located DOM element.
type Element interface {
	Finder
	// Click performs the provider's native click.
	Click(ctx context.Context) error
	// ScriptClick scrolls the element to the viewport center and calls its
	// click() method from page script.
	ScriptClick(ctx context.Context) error
	// Rect scrolls the element into view and returns its viewport bounding box.
	Rect(ctx context.Context) (Rect, error)
	Text(ctx context.Context) (string, error)
	Displayed(ctx context.Context) (bool, error)
}

// Driver is one live browser session.
type Driver interface {
	Finder
	Navigate(ctx context.Context, url string) error
	// ExecuteScript runs a script in the page and returns its decoded result.
	ExecuteScript(ctx context.Context, script string, args ...any) (any, error)
	// PointerClick moves a simulated pointer along path (viewport coordinates)
	// onto target, presses the primary button, holds it for hold, and
	// releases it.
	PointerClick(ctx context.Context, target PointerTarget, path []Point, hold time.Duration) error
	SetPageLoadTimeout(ctx context.Context, d time.Duration) error
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)
	// Screenshot returns a PNG of the current viewport.
	Screenshot(ctx context.Context) ([]byte, error)
	// Quit ends the session. It is safe to call more than once.
	Quit(ctx context.Context) error
}

// Factory creates one session per platform configuration.
type Factory interface {
	Open(ctx context.Context, platform schemas.PlatformConfig) (Driver, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, platform schemas.PlatformConfig) (Driver, error)

// Open calls f.
func (f FactoryFunc) Open(ctx context.Context, platform schemas.PlatformConfig) (Driver, error) {
	return f(ctx, platform)
}

// Scripts shared by the driver implementations.
const (
	// ScrollIntoCenterJS scrolls arguments[0] to the middle of the viewport.
	ScrollIntoCenterJS = `arguments[0].scrollIntoView({block: 'center', inline: 'center'});`
	// ScriptClickJS scrolls arguments[0] into view and clicks it.
	ScriptClickJS = `arguments[0].scrollIntoView({block: 'center', inline: 'center'}); arguments[0].click(); return true;`
	// BoundingRectJS returns arguments[0]'s viewport rectangle.
	BoundingRectJS = `var r = arguments[0].getBoundingClientRect(); return {x: r.left, y: r.top, width: r.width, height: r.height};`
	// ScrollTopJS scrolls the window back to the top.
	ScrollTopJS = `window.scrollTo(0, 0);`
)
