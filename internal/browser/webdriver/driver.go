// internal/browser/webdriver/driver.go
// Package webdriver implements the browser interfaces over a remote W3C
// WebDriver hub.
package webdriver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tebeka/selenium"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/browser"
)

// CapabilitiesFunc renders a platform into the capabilities sent on session creation.
type CapabilitiesFunc func(schemas.PlatformConfig) map[string]any

// Credentials authenticate against the hub with HTTP basic auth.
type Credentials struct {
	Username  string
	AccessKey string
}

// fatalMarkers are provider messages for session errors that no retry can fix.
var fatalMarkers = []string{
	"geckodriver version string is malformed",
}

// remoteFunc matches selenium.NewRemote and is replaced in tests.
type remoteFunc func(caps selenium.Capabilities, urlPrefix string) (selenium.WebDriver, error)

// Factory opens sessions on a remote hub.
type Factory struct {
	hubURL       string
	creds        Credentials
	capabilities CapabilitiesFunc
	logger       *zap.Logger
	newRemote    remoteFunc
}

// NewFactory returns a Factory for the hub at hubURL.
func NewFactory(hubURL string, creds Credentials, capabilities CapabilitiesFunc, logger *zap.Logger) *Factory {
	return &Factory{
		hubURL:       hubURL,
		creds:        creds,
		capabilities: capabilities,
		logger:       logger.Named("webdriver"),
		newRemote:    selenium.NewRemote,
	}
}

// Open creates one remote session. Errors the provider marks as permanent
// wrap browser.ErrFatalSession.
func (f *Factory) Open(ctx context.Context, platform schemas.PlatformConfig) (browser.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	endpoint, err := f.endpoint()
	if err != nil {
		return nil, err
	}

	caps := selenium.Capabilities{}
	for k, v := range f.capabilities(platform) {
		caps[k] = v
	}

	f.logger.Debug("Creating remote session.",
		zap.String("session", platform.SessionName),
		zap.String("browser", platform.Browser))

	wd, err := f.newRemote(caps, endpoint)
	if err != nil {
		err = f.redact(err)
		if IsFatal(err) {
			return nil, fmt.Errorf("%w: %w", browser.ErrFatalSession, err)
		}
		return nil, fmt.Errorf("failed to create remote session: %w", err)
	}

	return NewDriver(wd), nil
}

func (f *Factory) endpoint() (string, error) {
	u, err := url.Parse(f.hubURL)
	if err != nil {
		return "", fmt.Errorf("invalid hub url: %w", err)
	}
	if f.creds.Username != "" {
		u.User = url.UserPassword(f.creds.Username, f.creds.AccessKey)
	}
	return u.String(), nil
}

// redact removes the access key from errors that echo the endpoint URL.
func (f *Factory) redact(err error) error {
	if f.creds.AccessKey == "" || !strings.Contains(err.Error(), f.creds.AccessKey) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), f.creds.AccessKey, "xxxxx"))
}

// IsFatal reports whether a session creation error is permanent.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, browser.ErrFatalSession) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range fatalMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Driver is a live remote session.
type Driver struct {
	wd selenium.WebDriver

	mu     sync.Mutex
	closed bool
}

var _ browser.Driver = (*Driver)(nil)

// NewDriver wraps an existing session.
func NewDriver(wd selenium.WebDriver) *Driver {
	return &Driver{wd: wd}
}

func (d *Driver) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return browser.ErrSessionClosed
	}
	return nil
}

func (d *Driver) FindElements(ctx context.Context, loc schemas.Locator) ([]browser.Element, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	by, err := byFor(loc.Kind)
	if err != nil {
		return nil, err
	}
	found, err := d.wd.FindElements(by, loc.Value)
	if err != nil {
		return nil, normalize(err)
	}
	return d.wrap(found), nil
}

func (d *Driver) wrap(found []selenium.WebElement) []browser.Element {
	out := make([]browser.Element, len(found))
	for i, we := range found {
		out[i] = &Element{we: we, driver: d}
	}
	return out
}

func (d *Driver) Navigate(ctx context.Context, target string) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	if err := d.wd.Get(target); err != nil {
		return fmt.Errorf("navigating to %s: %w", target, err)
	}
	return nil
}

func (d *Driver) ExecuteScript(ctx context.Context, script string, args ...any) (any, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	wire := make([]any, len(args))
	for i, a := range args {
		// Element handles travel as WebDriver element references.
		if el, ok := a.(*Element); ok {
			wire[i] = el.we
			continue
		}
		wire[i] = a
	}
	return d.wd.ExecuteScript(script, wire)
}

// PointerClick replays path as element-relative mouse moves on the target,
// then presses, holds and releases the left button. The hub positions the
// pointer relative to the element center, so path is translated by the
// center of target.Bounds. Long paths are thinned to maxPointerMoves points
// because every move is a hub round trip.
func (d *Driver) PointerClick(ctx context.Context, target browser.PointerTarget, path []browser.Point, hold time.Duration) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	if len(path) == 0 {
		return errors.New("pointer path is empty")
	}
	el, ok := target.Element.(*Element)
	if !ok {
		return fmt.Errorf("pointer target %T is not a remote element", target.Element)
	}

	center := target.Bounds.Center()
	for _, p := range thin(path, maxPointerMoves) {
		if err := ctx.Err(); err != nil {
			return err
		}
		dx := int(math.Round(p.X - center.X))
		dy := int(math.Round(p.Y - center.Y))
		if err := el.we.MoveTo(dx, dy); err != nil {
			return fmt.Errorf("pointer move failed: %w", err)
		}
	}

	if err := d.wd.ButtonDown(); err != nil {
		return fmt.Errorf("pointer press failed: %w", err)
	}
	holdErr := sleep(ctx, hold)
	// The button is released even when the hold was interrupted.
	if err := d.wd.ButtonUp(); err != nil {
		return fmt.Errorf("pointer release failed: %w", err)
	}
	return holdErr
}

const maxPointerMoves = 8

// thin keeps at most n evenly spaced points of path, always including the
// first and the last.
func thin(path []browser.Point, n int) []browser.Point {
	if len(path) <= n || n < 2 {
		return path
	}
	out := make([]browser.Point, 0, n)
	step := float64(len(path)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, path[int(math.Round(float64(i)*step))])
	}
	return out
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

func (d *Driver) SetPageLoadTimeout(ctx context.Context, timeout time.Duration) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	return d.wd.SetPageLoadTimeout(timeout)
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := d.check(ctx); err != nil {
		return "", err
	}
	return d.wd.CurrentURL()
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	if err := d.check(ctx); err != nil {
		return "", err
	}
	return d.wd.Title()
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	if err := d.check(ctx); err != nil {
		return "", err
	}
	return d.wd.PageSource()
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	return d.wd.Screenshot()
}

// Quit ends the remote session. Only the first call reaches the hub; the
// context is ignored so teardown still runs after cancellation.
func (d *Driver) Quit(_ context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	return d.wd.Quit()
}

// Element is a remote element handle.
type Element struct {
	we     selenium.WebElement
	driver *Driver
}

var _ browser.Element = (*Element)(nil)

func (e *Element) FindElements(ctx context.Context, loc schemas.Locator) ([]browser.Element, error) {
	if err := e.driver.check(ctx); err != nil {
		return nil, err
	}
	by, err := byFor(loc.Kind)
	if err != nil {
		return nil, err
	}
	found, err := e.we.FindElements(by, loc.Value)
	if err != nil {
		return nil, normalize(err)
	}
	return e.driver.wrap(found), nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := e.driver.check(ctx); err != nil {
		return err
	}
	return e.we.Click()
}

func (e *Element) ScriptClick(ctx context.Context) error {
	_, err := e.driver.ExecuteScript(ctx, browser.ScriptClickJS, e.we)
	return err
}

func (e *Element) Rect(ctx context.Context) (browser.Rect, error) {
	if _, err := e.driver.ExecuteScript(ctx, browser.ScrollIntoCenterJS, e.we); err != nil {
		return browser.Rect{}, err
	}
	raw, err := e.driver.ExecuteScript(ctx, browser.BoundingRectJS, e.we)
	if err != nil {
		return browser.Rect{}, err
	}
	return decodeRect(raw)
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := e.driver.check(ctx); err != nil {
		return "", err
	}
	return e.we.Text()
}

func (e *Element) Displayed(ctx context.Context) (bool, error) {
	if err := e.driver.check(ctx); err != nil {
		return false, err
	}
	return e.we.IsDisplayed()
}

func byFor(kind schemas.LocatorKind) (string, error) {
	switch kind {
	case schemas.ByID:
		return selenium.ByID, nil
	case schemas.ByCSS:
		return selenium.ByCSSSelector, nil
	case schemas.ByXPath:
		return selenium.ByXPATH, nil
	}
	return "", fmt.Errorf("unsupported locator kind %q", kind)
}

// normalize maps the hub's "no such element" error onto the shared sentinel.
func normalize(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "no such element") {
		return fmt.Errorf("%w: %w", browser.ErrNoSuchElement, err)
	}
	return err
}

func decodeRect(raw any) (browser.Rect, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return browser.Rect{}, fmt.Errorf("unexpected bounding rect result %T", raw)
	}
	num := func(key string) float64 {
		switch v := m[key].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
		return 0
	}
	return browser.Rect{X: num("x"), Y: num("y"), Width: num("width"), Height: num("height")}, nil
}
