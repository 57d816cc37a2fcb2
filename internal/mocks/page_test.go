// File: internal/mocks/page_test.go
package mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/browser"
)

func TestFakePage_FindAndClick(t *testing.T) {
	ctx := context.Background()
	page := NewFakePage()

	revealed := false
	login := NewElement("login")
	login.OnClick = func() { revealed = true }
	page.Add(schemas.ID("login-btn"), login)

	els, err := page.FindElements(ctx, schemas.ID("login-btn"))
	require.NoError(t, err)
	require.Len(t, els, 1)
	require.NoError(t, els[0].ScriptClick(ctx))
	assert.True(t, revealed)
	assert.Equal(t, []string{"script"}, login.Clicks())

	none, err := page.FindElements(ctx, schemas.CSS(".missing"))
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, 2, page.FindCalls())
}

func TestFakePage_ScopedLookup(t *testing.T) {
	ctx := context.Background()
	page := NewFakePage()

	card := NewElement("card")
	page.Add(schemas.CSS(".shelf-item"), card)
	stopper := NewElement("stopper")
	card.Add(schemas.CSS(".shelf-stopper"), stopper)

	els, err := card.FindElements(ctx, schemas.CSS(".shelf-stopper"))
	require.NoError(t, err)
	require.Len(t, els, 1)
	assert.Same(t, stopper, els[0])

	docLevel, err := page.FindElements(ctx, schemas.CSS(".shelf-stopper"))
	require.NoError(t, err)
	assert.Empty(t, docLevel, "children are only visible from their parent")
}

func TestFakePage_Failures(t *testing.T) {
	ctx := context.Background()
	page := NewFakePage()
	boom := errors.New("boom")

	page.FailFind(schemas.ID("x"), boom)
	_, err := page.FindElements(ctx, schemas.ID("x"))
	assert.ErrorIs(t, err, boom)

	el := NewElement("el")
	el.ClickErr = boom
	assert.ErrorIs(t, el.Click(ctx), boom)
	assert.Empty(t, el.Clicks())

	page.PointerErr = boom
	assert.ErrorIs(t, page.PointerClick(ctx, browser.PointerTarget{Element: el}, []browser.Point{{X: 1, Y: 1}}, time.Millisecond), boom)
	assert.Empty(t, page.PointerClicks())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = page.FindElements(cancelled, schemas.ID("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFakePage_Recording(t *testing.T) {
	ctx := context.Background()
	page := NewFakePage()

	require.NoError(t, page.Navigate(ctx, "https://bstackdemo.com/"))
	_, err := page.ExecuteScript(ctx, browser.ScrollTopJS)
	require.NoError(t, err)
	require.NoError(t, page.SetPageLoadTimeout(ctx, time.Minute))
	require.NoError(t, page.Quit(ctx))
	require.NoError(t, page.Quit(ctx))

	assert.Equal(t, []string{"https://bstackdemo.com/"}, page.Navigations())
	assert.Len(t, page.ScriptsContaining("scrollTo"), 1)
	assert.Equal(t, time.Minute, page.PageLoadTimeout())
	assert.Equal(t, 2, page.Quits())
}
