// internal/browser/cdp/driver_test.go
package cdp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/browser"
	"github.com/xkilldash9x/crossbrowse/internal/config"
)

func TestExecOptions(t *testing.T) {
	base := len(ExecOptions(config.LocalConfig{}))

	withAll := ExecOptions(config.LocalConfig{
		Headless: true,
		Width:    1366,
		Height:   900,
		Args:     []string{"--disable-dev-shm-usage", "lang=en-US"},
	})
	assert.Len(t, withAll, base+4, "headless, window size and two args")

	noSize := ExecOptions(config.LocalConfig{Width: 1366})
	assert.Len(t, noSize, base, "a window size needs both dimensions")
}

func TestQueryOptions(t *testing.T) {
	scope := &cdp.Node{NodeID: 7}

	for _, kind := range []schemas.LocatorKind{schemas.ByID, schemas.ByCSS, schemas.ByXPath} {
		opts, err := queryOptions(kind, nil)
		require.NoError(t, err, kind)
		assert.Len(t, opts, 2, kind)
	}

	opts, err := queryOptions(schemas.ByCSS, scope)
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	_, err = queryOptions(schemas.ByXPath, scope)
	assert.Error(t, err)

	_, err = queryOptions("link", nil)
	assert.Error(t, err)
}

func TestWrapScript(t *testing.T) {
	wrapped := WrapScript(browser.ScriptClickJS)
	assert.Contains(t, wrapped, browser.ScriptClickJS)
	assert.Contains(t, wrapped, ".apply(null, [this])")
	assert.Contains(t, wrapped, "r === undefined ? null : r")
}

func TestDriver_Closed(t *testing.T) {
	cancelled := false
	d := &Driver{ctx: context.Background(), cancel: func() { cancelled = true }}
	d.closed = true

	_, err := d.FindElements(context.Background(), schemas.CSS(".shelf-item"))
	assert.ErrorIs(t, err, browser.ErrSessionClosed)
	assert.ErrorIs(t, d.SetPageLoadTimeout(context.Background(), 0), browser.ErrSessionClosed)
	assert.NoError(t, d.Quit(context.Background()), "quitting twice is a no-op")
	assert.False(t, cancelled)
}

func TestDriver_ExecuteScriptArguments(t *testing.T) {
	d := &Driver{ctx: context.Background(), cancel: func() {}}

	_, err := d.ExecuteScript(context.Background(), "return 1;", "not an element")
	assert.Error(t, err)

	_, err = d.ExecuteScript(context.Background(), "return 1;", &Element{}, &Element{})
	assert.Error(t, err)
}

func TestDriver_PointerClickEmptyPath(t *testing.T) {
	d := &Driver{ctx: context.Background(), cancel: func() {}}
	assert.Error(t, d.PointerClick(context.Background(), browser.PointerTarget{}, nil, 0))
}

func TestDriver_CallOnRequiresNode(t *testing.T) {
	d := &Driver{ctx: context.Background(), cancel: func() {}}
	el := &Element{driver: d}

	_, err := el.Displayed(context.Background())
	assert.ErrorContains(t, err, "no backing node")
	_, err = d.ExecuteScript(context.Background(), "return 1;", el)
	assert.ErrorContains(t, err, "no backing node")
}

const fixturePage = `<!DOCTYPE html>
<html><head><title>fixture</title></head>
<body style="margin:0">
<button id="go" style="position:absolute;left:50px;top:60px;width:120px;height:40px"
  onclick="window.clicks = (window.clicks || 0) + 1;">Add to favourites</button>
<div id="hidden" style="display:none">out of sight</div>
</body></html>`

// chromeAvailable reports whether a Chrome binary chromedp can launch is on PATH.
func chromeAvailable() bool {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// newLocalDriver starts headless Chrome on a fixture page.
func newLocalDriver(t *testing.T) *Driver {
	t.Helper()
	if testing.Short() || !chromeAvailable() {
		t.Skip("requires a local Chrome")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, fixturePage)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	f := NewFactory(config.LocalConfig{Headless: true, Width: 800, Height: 600}, zaptest.NewLogger(t))
	drv, err := f.Open(ctx, schemas.PlatformConfig{SessionName: t.Name()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Quit(context.Background()) })

	d := drv.(*Driver)
	require.NoError(t, d.Navigate(ctx, srv.URL))
	return d
}

func findOne(t *testing.T, d *Driver, loc schemas.Locator) browser.Element {
	t.Helper()
	els, err := d.FindElements(context.Background(), loc)
	require.NoError(t, err)
	require.Len(t, els, 1, loc.String())
	return els[0]
}

func clicks(t *testing.T, d *Driver) float64 {
	t.Helper()
	v, err := d.ExecuteScript(context.Background(), "return window.clicks || 0;")
	require.NoError(t, err)
	n, ok := v.(float64)
	require.True(t, ok, "clicks decoded as %T", v)
	return n
}

func TestElement_LocalChrome(t *testing.T) {
	d := newLocalDriver(t)
	ctx := context.Background()
	button := findOne(t, d, schemas.ID("go"))
	hidden := findOne(t, d, schemas.CSS("#hidden"))

	t.Run("Displayed", func(t *testing.T) {
		shown, err := button.Displayed(ctx)
		require.NoError(t, err)
		assert.True(t, shown)

		shown, err = hidden.Displayed(ctx)
		require.NoError(t, err)
		assert.False(t, shown)
	})

	t.Run("Text", func(t *testing.T) {
		text, err := button.Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Add to favourites", text)
	})

	t.Run("Rect", func(t *testing.T) {
		r, err := button.Rect(ctx)
		require.NoError(t, err)
		assert.Equal(t, browser.Rect{X: 50, Y: 60, Width: 120, Height: 40}, r)
	})

	t.Run("ExecuteScript with an element", func(t *testing.T) {
		v, err := d.ExecuteScript(ctx, "return arguments[0].id;", button)
		require.NoError(t, err)
		assert.Equal(t, "go", v)
	})

	t.Run("ScriptClick", func(t *testing.T) {
		before := clicks(t, d)
		require.NoError(t, button.ScriptClick(ctx))
		assert.Equal(t, before+1, clicks(t, d))
	})

	t.Run("PointerClick", func(t *testing.T) {
		r, err := button.Rect(ctx)
		require.NoError(t, err)
		c := r.Center()
		before := clicks(t, d)

		path := []browser.Point{{X: 5, Y: 5}, {X: c.X / 2, Y: c.Y / 2}, c}
		target := browser.PointerTarget{Element: button, Bounds: r}
		require.NoError(t, d.PointerClick(ctx, target, path, 10*time.Millisecond))
		assert.Equal(t, before+1, clicks(t, d))
	})

	t.Run("Click", func(t *testing.T) {
		before := clicks(t, d)
		require.NoError(t, button.Click(ctx))
		assert.Equal(t, before+1, clicks(t, d))
	})
}
