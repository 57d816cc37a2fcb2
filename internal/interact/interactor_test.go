// internal/interact/interactor_test.go
package interact

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/browser"
	"github.com/xkilldash9x/crossbrowse/internal/config"
	"github.com/xkilldash9x/crossbrowse/internal/humanoid"
	"github.com/xkilldash9x/crossbrowse/internal/mocks"
)

var testSettings = Settings{Timeout: 60 * time.Millisecond, PollInterval: 10 * time.Millisecond}

func newTestInteractor(t *testing.T, page *mocks.FakePage, strategies ...Strategy) *Interactor {
	t.Helper()
	if len(strategies) == 0 {
		strategies = []Strategy{Native{}, Script{}}
	}
	return New(page, strategies, testSettings, zaptest.NewLogger(t))
}

// trace flattens attempts into "locator|strategy|ok" strings for diffing.
func trace(attempts []Attempt) []string {
	out := make([]string, len(attempts))
	for i, a := range attempts {
		out[i] = fmt.Sprintf("%s|%s|%t", a.Locator, a.Strategy, a.Err == nil)
	}
	return out
}

func TestDo_EmptyLocatorSet(t *testing.T) {
	page := mocks.NewFakePage()
	res := newTestInteractor(t, page).Do(context.Background(), Request{Action: Click, Description: "nothing"})

	assert.ErrorIs(t, res.Err, ErrNoLocators)
	assert.Empty(t, res.Attempts)
	assert.Zero(t, page.FindCalls(), "no lookup is made for an empty set")
}

func TestDo_FallsThroughLocators(t *testing.T) {
	page := mocks.NewFakePage()
	button := mocks.NewElement("sign in")
	page.Add(schemas.CSS("a#signin"), button)

	res := newTestInteractor(t, page).Do(context.Background(), Request{
		Locators:    schemas.LocatorSet{schemas.ID("signin"), schemas.CSS("a#signin")},
		Action:      Click,
		Description: "sign in",
	})

	require.NoError(t, res.Err)
	assert.True(t, res.OK())
	assert.Equal(t, schemas.CSS("a#signin"), res.Locator)
	assert.Equal(t, StrategyNative, res.Strategy)
	assert.Same(t, button, res.Element)
	assert.Equal(t, []string{"native"}, button.Clicks())

	want := []string{"id=signin||false", "css=a#signin|native|true"}
	if diff := cmp.Diff(want, trace(res.Attempts)); diff != "" {
		t.Errorf("attempt sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestDo_FallsThroughStrategies(t *testing.T) {
	page := mocks.NewFakePage()
	option := mocks.NewElement("demouser")
	option.ClickErr = errors.New("element click intercepted")
	page.Add(schemas.ID("react-select-2-option-0-0"), option)

	res := newTestInteractor(t, page).Do(context.Background(), Request{
		Locators: schemas.LocatorSet{schemas.ID("react-select-2-option-0-0")},
		Action:   Click,
	})

	require.NoError(t, res.Err)
	assert.Equal(t, StrategyScript, res.Strategy)
	assert.Equal(t, []string{"script"}, option.Clicks(), "exactly one click takes effect")

	want := []string{"id=react-select-2-option-0-0|native|false", "id=react-select-2-option-0-0|script|true"}
	assert.Empty(t, cmp.Diff(want, trace(res.Attempts)))
}

func TestDo_StopsAtFirstSuccess(t *testing.T) {
	page := mocks.NewFakePage()
	page.Add(schemas.ID("login-btn"), mocks.NewElement("login"))

	first := new(mocks.MockStrategy)
	first.On("Name").Return("first")
	first.On("Apply", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	second := new(mocks.MockStrategy)
	second.On("Name").Return("second").Maybe()

	res := newTestInteractor(t, page, first, second).Do(context.Background(), Request{
		Locators: schemas.LocatorSet{schemas.ID("login-btn"), schemas.CSS("#login-btn")},
		Action:   Click,
	})

	require.NoError(t, res.Err)
	assert.Equal(t, "first", res.Strategy)
	first.AssertExpectations(t)
	second.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
	assert.Len(t, res.Attempts, 1)
}

func TestDo_Exhausted(t *testing.T) {
	page := mocks.NewFakePage()
	stubborn := mocks.NewElement("stubborn")
	stubborn.ClickErr = errors.New("intercepted")
	stubborn.ScriptClickErr = errors.New("script blocked")
	page.Add(schemas.CSS(".shelf-stopper"), stubborn)

	res := newTestInteractor(t, page).Do(context.Background(), Request{
		Locators:    schemas.LocatorSet{schemas.CSS(".shelf-stopper"), schemas.CSS("button")},
		Action:      Click,
		Description: "favorite",
	})

	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, ErrExhausted)
	assert.ErrorIs(t, res.Err, browser.ErrNoSuchElement, "the last underlying error is wrapped")
	assert.Contains(t, res.Err.Error(), "favorite")
	assert.Empty(t, stubborn.Clicks())

	want := []string{
		"css=.shelf-stopper|native|false",
		"css=.shelf-stopper|script|false",
		"css=button||false",
	}
	assert.Empty(t, cmp.Diff(want, trace(res.Attempts)))
}

func TestDo_CheckPresence(t *testing.T) {
	page := mocks.NewFakePage()
	shelf := mocks.NewElement("shelf")
	shelf.Hidden = true
	page.Add(schemas.CSS(".shelf-container"), shelf)

	res := newTestInteractor(t, page).Do(context.Background(), Request{
		Locators: schemas.LocatorSet{schemas.CSS(".shelf-container")},
		Action:   CheckPresence,
	})

	require.NoError(t, res.Err)
	assert.Empty(t, res.Strategy)
	assert.Empty(t, shelf.Clicks(), "presence checks never click")

	clickRes := newTestInteractor(t, page).Do(context.Background(), Request{
		Locators: schemas.LocatorSet{schemas.CSS(".shelf-container")},
		Action:   Click,
	})
	assert.ErrorIs(t, clickRes.Err, ErrExhausted, "hidden elements are not clicked")
	assert.ErrorIs(t, clickRes.Err, errNotDisplayed)
}

func TestDo_WaitsForLateElement(t *testing.T) {
	page := mocks.NewFakePage()
	go func() {
		time.Sleep(20 * time.Millisecond)
		page.Add(schemas.CSS(".shelf-item"), mocks.NewElement("card"))
	}()

	i := New(page, []Strategy{Native{}}, Settings{Timeout: time.Second, PollInterval: 5 * time.Millisecond}, zaptest.NewLogger(t))
	res := i.Do(context.Background(), Request{Locators: schemas.LocatorSet{schemas.CSS(".shelf-item")}, Action: CheckPresence})
	require.NoError(t, res.Err)
	assert.Greater(t, page.FindCalls(), 1)
}

func TestDo_Scoped(t *testing.T) {
	page := mocks.NewFakePage()
	card := mocks.NewElement("card")
	page.Add(schemas.CSS(".shelf-item"), card)
	stopper := mocks.NewElement("stopper")
	card.Add(schemas.CSS(".shelf-stopper"), stopper)
	page.Add(schemas.CSS(".shelf-stopper"), mocks.NewElement("other card's stopper"))

	res := newTestInteractor(t, page).Do(context.Background(), Request{
		Scope:    card,
		Locators: schemas.LocatorSet{schemas.CSS(".shelf-stopper")},
		Action:   Click,
	})
	require.NoError(t, res.Err)
	assert.Same(t, stopper, res.Element)
}

func TestDo_Cancelled(t *testing.T) {
	page := mocks.NewFakePage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestInteractor(t, page).Do(ctx, Request{
		Locators: schemas.LocatorSet{schemas.ID("signin"), schemas.CSS("#signin")},
		Action:   Click,
	})
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.NotErrorIs(t, res.Err, ErrExhausted)
	assert.Empty(t, res.Attempts)
}

func TestDo_PointerStrategy(t *testing.T) {
	page := mocks.NewFakePage()
	target := mocks.NewElement("favourites")
	target.Box = browser.Rect{X: 200, Y: 40, Width: 80, Height: 20}
	target.ClickErr = errors.New("intercepted")
	target.ScriptClickErr = errors.New("blocked")
	page.Add(schemas.CSS("a[href='/favourites']"), target)

	hcfg := config.NewDefaultConfig().Humanoid
	hcfg.Seed = 42
	chain, err := Chain([]string{"native", "script", "pointer"}, humanoid.New(hcfg))
	require.NoError(t, err)

	res := New(page, chain, testSettings, zaptest.NewLogger(t)).Do(context.Background(), Request{
		Locators: schemas.LocatorSet{schemas.CSS("a[href='/favourites']")},
		Action:   Click,
	})
	require.NoError(t, res.Err)
	assert.Equal(t, StrategyPointer, res.Strategy)

	clicks := page.PointerClicks()
	require.Len(t, clicks, 1)
	assert.Same(t, target, clicks[0].Target.Element, "the path ends on the located element")
	assert.Equal(t, target.Box, clicks[0].Target.Bounds)
	last := clicks[0].Path[len(clicks[0].Path)-1]
	assert.True(t, last.X >= 200 && last.X <= 280, "x=%v", last.X)
	assert.True(t, last.Y >= 40 && last.Y <= 60, "y=%v", last.Y)
}

func TestPointer_EmptyRect(t *testing.T) {
	el := mocks.NewElement("collapsed")
	el.Box = browser.Rect{}
	err := Pointer{Planner: humanoid.New(config.NewDefaultConfig().Humanoid)}.Apply(context.Background(), mocks.NewFakePage(), el)
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	planner := humanoid.New(config.NewDefaultConfig().Humanoid)

	chain, err := Chain([]string{"script", "native"}, nil)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, StrategyScript, chain[0].Name())
	assert.Equal(t, StrategyNative, chain[1].Name())

	_, err = Chain([]string{"pointer"}, nil)
	assert.Error(t, err)

	_, err = Chain([]string{"native", "telepathy"}, planner)
	assert.ErrorContains(t, err, "telepathy")

	_, err = Chain(nil, planner)
	assert.Error(t, err)
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "click", Click.String())
	assert.Equal(t, "check-presence", CheckPresence.String())
	assert.Equal(t, "action(9)", Action(9).String())
}
