// File: internal/mocks/page.go
package mocks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/browser"
)

// FakeElement is a scripted DOM element. Click hooks let a test change the
// page in response to an interaction, e.g. revealing the product shelf after
// the login button is pressed.
type FakeElement struct {
	Name   string
	Label  string
	Hidden bool
	Box    browser.Rect

	ClickErr       error
	ScriptClickErr error
	RectErr        error

	// OnClick runs after any successful click, native or scripted.
	OnClick func()

	page     *FakePage
	children map[string][]*FakeElement
	clicks   []string
}

// NewElement returns a visible element with a non-empty box.
func NewElement(name string) *FakeElement {
	return &FakeElement{Name: name, Box: browser.Rect{X: 10, Y: 10, Width: 100, Height: 30}}
}

// Add registers children of e that match loc.
func (e *FakeElement) Add(loc schemas.Locator, children ...*FakeElement) *FakeElement {
	if e.children == nil {
		e.children = map[string][]*FakeElement{}
	}
	if e.page != nil {
		for _, c := range children {
			e.page.adopt(c)
		}
	}
	e.children[loc.String()] = append(e.children[loc.String()], children...)
	return e
}

// Clicks returns the kinds of clicks received, "native" or "script", in order.
func (e *FakeElement) Clicks() []string {
	e.lock()
	defer e.unlock()
	return append([]string(nil), e.clicks...)
}

func (e *FakeElement) lock() {
	if e.page != nil {
		e.page.mu.Lock()
	}
}

func (e *FakeElement) unlock() {
	if e.page != nil {
		e.page.mu.Unlock()
	}
}

func (e *FakeElement) FindElements(ctx context.Context, loc schemas.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.lock()
	defer e.unlock()
	return e.page.wrap(e.children[loc.String()]), nil
}

func (e *FakeElement) Click(ctx context.Context) error {
	return e.click(ctx, "native", e.ClickErr)
}

func (e *FakeElement) ScriptClick(ctx context.Context) error {
	return e.click(ctx, "script", e.ScriptClickErr)
}

func (e *FakeElement) click(ctx context.Context, kind string, fail error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if fail != nil {
		return fail
	}
	e.lock()
	e.clicks = append(e.clicks, kind)
	hook := e.OnClick
	e.unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (e *FakeElement) Rect(ctx context.Context) (browser.Rect, error) {
	if err := ctx.Err(); err != nil {
		return browser.Rect{}, err
	}
	return e.Box, e.RectErr
}

func (e *FakeElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.Label, nil
}

func (e *FakeElement) Displayed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.lock()
	defer e.unlock()
	return !e.Hidden, nil
}

// PointerClick records one simulated pointer click.
type PointerClick struct {
	Target browser.PointerTarget
	Path   []browser.Point
	Hold   time.Duration
}

// FakePage is an in-memory browser.Driver. Elements are registered per
// locator; a locator with no registration matches nothing.
type FakePage struct {
	mu sync.Mutex

	elements map[string][]*FakeElement
	findErrs map[string]error

	URL    string
	Titles string
	Source string
	PNG    []byte

	NavigateErr   error
	ScriptErr     error
	PointerErr    error
	ScreenshotErr error
	QuitErr       error

	// OnPointerClick runs after a successful pointer click.
	OnPointerClick func()

	navigations     []string
	scripts         []string
	pointerClicks   []PointerClick
	pageLoadTimeout time.Duration
	quits           int
	findCalls       int
}

var _ browser.Driver = (*FakePage)(nil)

// NewFakePage returns an empty page.
func NewFakePage() *FakePage {
	return &FakePage{
		elements: map[string][]*FakeElement{},
		findErrs: map[string]error{},
		PNG:      []byte{0x89, 'P', 'N', 'G'},
	}
}

// Add registers elements matched by loc. Elements added later are appended.
func (p *FakePage) Add(loc schemas.Locator, els ...*FakeElement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range els {
		p.adopt(el)
	}
	p.elements[loc.String()] = append(p.elements[loc.String()], els...)
}

// Remove drops every element registered for loc.
func (p *FakePage) Remove(loc schemas.Locator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, loc.String())
}

// FailFind makes lookups of loc return err.
func (p *FakePage) FailFind(loc schemas.Locator, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.findErrs[loc.String()] = err
}

func (p *FakePage) adopt(el *FakeElement) {
	el.page = p
	for _, children := range el.children {
		for _, c := range children {
			p.adopt(c)
		}
	}
}

func (p *FakePage) wrap(els []*FakeElement) []browser.Element {
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out
}

func (p *FakePage) FindElements(ctx context.Context, loc schemas.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.findCalls++
	if err := p.findErrs[loc.String()]; err != nil {
		return nil, err
	}
	return p.wrap(p.elements[loc.String()]), nil
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.navigations = append(p.navigations, url)
	p.URL = url
	return nil
}

func (p *FakePage) ExecuteScript(ctx context.Context, script string, _ ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts = append(p.scripts, script)
	return nil, p.ScriptErr
}

func (p *FakePage) PointerClick(ctx context.Context, target browser.PointerTarget, path []browser.Point, hold time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(path) == 0 {
		return errors.New("pointer path is empty")
	}
	p.mu.Lock()
	if p.PointerErr != nil {
		p.mu.Unlock()
		return p.PointerErr
	}
	p.pointerClicks = append(p.pointerClicks, PointerClick{Target: target, Path: path, Hold: hold})
	hook := p.OnPointerClick
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (p *FakePage) SetPageLoadTimeout(_ context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pageLoadTimeout = d
	return nil
}

func (p *FakePage) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URL, ctx.Err()
}

func (p *FakePage) Title(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Titles, ctx.Err()
}

func (p *FakePage) PageSource(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Source, ctx.Err()
}

func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PNG, p.ScreenshotErr
}

func (p *FakePage) Quit(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quits++
	return p.QuitErr
}

// Quits returns how many times Quit was called.
func (p *FakePage) Quits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quits
}

// Scripts returns the executed scripts in order.
func (p *FakePage) Scripts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.scripts...)
}

// ScriptsContaining returns the executed scripts that contain substr.
func (p *FakePage) ScriptsContaining(substr string) []string {
	var out []string
	for _, s := range p.Scripts() {
		if strings.Contains(s, substr) {
			out = append(out, s)
		}
	}
	return out
}

// Navigations returns the visited URLs in order.
func (p *FakePage) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// PointerClicks returns the recorded pointer clicks.
func (p *FakePage) PointerClicks() []PointerClick {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PointerClick(nil), p.pointerClicks...)
}

// PageLoadTimeout returns the last timeout set.
func (p *FakePage) PageLoadTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageLoadTimeout
}

// FindCalls returns the number of document level lookups.
func (p *FakePage) FindCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.findCalls
}
