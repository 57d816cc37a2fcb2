// internal/browser/cdp/driver.go
// Package cdp implements the browser interfaces over a local Chrome driven
// through the DevTools protocol. It needs no provider credentials and is used
// for local runs and for checking locators against the live site.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/browser"
	"github.com/xkilldash9x/crossbrowse/internal/config"
)

// Factory launches one local Chrome process per session.
type Factory struct {
	cfg    config.LocalConfig
	logger *zap.Logger
}

// NewFactory returns a local Chrome factory.
func NewFactory(cfg config.LocalConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger.Named("cdp")}
}

// ExecOptions builds the allocator options for a local run.
func ExecOptions(cfg config.LocalConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("enable-automation", true),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.Width, cfg.Height))
	}
	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// Open starts Chrome and returns a session bound to its first tab. The browser
// lifetime is independent of ctx and ends with Quit.
func (f *Factory) Open(ctx context.Context, platform schemas.PlatformConfig) (browser.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), ExecOptions(f.cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	d := &Driver{
		ctx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
	}
	// The first Run starts the browser process.
	if err := d.run(ctx); err != nil {
		d.cancel()
		return nil, fmt.Errorf("failed to start local chrome: %w", err)
	}
	f.logger.Debug("Local browser started.", zap.String("session", platform.SessionName))
	return d, nil
}

// Driver is a local Chrome tab.
type Driver struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu              sync.Mutex
	closed          bool
	pageLoadTimeout time.Duration
}

var _ browser.Driver = (*Driver)(nil)

// run executes actions on the tab, bounded by both the caller's ctx and the
// browser's lifetime.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return browser.ErrSessionClosed
	}

	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *Driver) FindElements(ctx context.Context, loc schemas.Locator) ([]browser.Element, error) {
	return d.find(ctx, nil, loc)
}

func (d *Driver) find(ctx context.Context, scope *cdp.Node, loc schemas.Locator) ([]browser.Element, error) {
	opts, err := queryOptions(loc.Kind, scope)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(loc.Value, &nodes, opts...)); err != nil {
		return nil, err
	}
	out := make([]browser.Element, len(nodes))
	for i, n := range nodes {
		out[i] = &Element{node: n, driver: d}
	}
	return out, nil
}

// queryOptions maps a locator kind onto chromedp query options. AtLeast(0)
// makes an empty match return immediately instead of waiting.
func queryOptions(kind schemas.LocatorKind, scope *cdp.Node) ([]chromedp.QueryOption, error) {
	opts := []chromedp.QueryOption{chromedp.AtLeast(0)}
	switch kind {
	case schemas.ByID:
		opts = append(opts, chromedp.ByID)
	case schemas.ByCSS:
		opts = append(opts, chromedp.ByQueryAll)
	case schemas.ByXPath:
		if scope != nil {
			return nil, errors.New("xpath locators cannot be scoped to an element on the local provider")
		}
		opts = append(opts, chromedp.BySearch)
	default:
		return nil, fmt.Errorf("unsupported locator kind %q", kind)
	}
	if scope != nil {
		opts = append(opts, chromedp.FromNode(scope))
	}
	return opts, nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	timeout := d.pageLoadTimeout
	d.mu.Unlock()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// scriptResult wraps a page value so undefined and null decode the same way.
type scriptResult struct {
	V any `json:"v"`
}

// WrapScript turns a WebDriver style script body into a function expression
// whose arguments[0] is the receiver and whose result is always an object.
func WrapScript(script string) string {
	return `function() { var r = (function() { ` + script + ` }).apply(null, [this]); return {v: r === undefined ? null : r}; }`
}

// ExecuteScript evaluates script in the page. The only supported argument is
// a single Element from this driver, exposed as arguments[0].
func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	var res scriptResult
	switch len(args) {
	case 0:
		expr := `(function() { var r = (function() { ` + script + ` })(); return {v: r === undefined ? null : r}; })()`
		if err := d.run(ctx, chromedp.Evaluate(expr, &res)); err != nil {
			return nil, err
		}
	case 1:
		el, ok := args[0].(*Element)
		if !ok {
			return nil, fmt.Errorf("unsupported script argument %T", args[0])
		}
		if err := d.callOn(ctx, el.node, WrapScript(script), &res); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("local provider scripts accept at most one element argument")
	}
	return res.V, nil
}

// callOn calls the function declaration fn with this bound to node. The node
// is resolved to a page object for the call and released afterwards.
func (d *Driver) callOn(ctx context.Context, node *cdp.Node, fn string, res any) error {
	if node == nil {
		return errors.New("element has no backing node")
	}
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(node.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolving node: %w", err)
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()
		return chromedp.CallFunctionOn(fn, res, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}).Do(ctx)
	}))
}

// PointerClick dispatches raw mouse events along path, then a press and a
// release separated by hold. CDP input is in viewport coordinates, so the
// target is not consulted.
func (d *Driver) PointerClick(ctx context.Context, _ browser.PointerTarget, path []browser.Point, hold time.Duration) error {
	if len(path) == 0 {
		return errors.New("pointer path is empty")
	}
	actions := make([]chromedp.Action, 0, 2*len(path)+3)
	for _, p := range path {
		actions = append(actions,
			input.DispatchMouseEvent(input.MouseMoved, p.X, p.Y),
			chromedp.Sleep(moveStep),
		)
	}
	last := path[len(path)-1]
	actions = append(actions,
		input.DispatchMouseEvent(input.MousePressed, last.X, last.Y).WithButton(input.Left).WithClickCount(1),
		chromedp.Sleep(hold),
		input.DispatchMouseEvent(input.MouseReleased, last.X, last.Y).WithButton(input.Left).WithClickCount(1),
	)
	if err := d.run(ctx, actions...); err != nil {
		return fmt.Errorf("pointer events failed: %w", err)
	}
	return nil
}

const moveStep = 16 * time.Millisecond

// SetPageLoadTimeout bounds later Navigate calls; CDP has no session-wide setting.
func (d *Driver) SetPageLoadTimeout(_ context.Context, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return browser.ErrSessionClosed
	}
	d.pageLoadTimeout = timeout
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	err := d.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	var title string
	err := d.run(ctx, chromedp.Title(&title))
	return title, err
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := d.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

// Quit closes the browser. Later calls are no-ops.
func (d *Driver) Quit(_ context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	err := chromedp.Cancel(d.ctx)
	d.cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Element is a DOM node in the local tab.
type Element struct {
	node   *cdp.Node
	driver *Driver
}

var _ browser.Element = (*Element)(nil)

func (e *Element) FindElements(ctx context.Context, loc schemas.Locator) ([]browser.Element, error) {
	return e.driver.find(ctx, e.node, loc)
}

func (e *Element) Click(ctx context.Context) error {
	return e.driver.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *Element) ScriptClick(ctx context.Context) error {
	_, err := e.driver.ExecuteScript(ctx, browser.ScriptClickJS, e)
	return err
}

func (e *Element) Rect(ctx context.Context) (browser.Rect, error) {
	var r struct {
		V struct {
			X      float64 `json:"x"`
			Y      float64 `json:"y"`
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		} `json:"v"`
	}
	script := browser.ScrollIntoCenterJS + " " + browser.BoundingRectJS
	if err := e.driver.callOn(ctx, e.node, WrapScript(script), &r); err != nil {
		return browser.Rect{}, err
	}
	return browser.Rect{
		X:      round2(r.V.X),
		Y:      round2(r.V.Y),
		Width:  round2(r.V.Width),
		Height: round2(r.V.Height),
	}, nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	var r struct {
		V string `json:"v"`
	}
	err := e.driver.callOn(ctx, e.node, WrapScript(`return arguments[0].innerText || arguments[0].textContent || '';`), &r)
	return r.V, err
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	var r struct {
		V bool `json:"v"`
	}
	err := e.driver.callOn(ctx, e.node, WrapScript(displayedJS), &r)
	return r.V, err
}

const displayedJS = `var el = arguments[0];
var style = window.getComputedStyle(el);
if (style.visibility === 'hidden' || style.display === 'none') { return false; }
return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);`

func round2(v float64) float64 { return math.Round(v*100) / 100 }
