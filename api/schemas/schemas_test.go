package schemas_test

import (
	"errors"
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
)

// -- Locators --

func TestParseLocator(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		input    string
		expected schemas.Locator
	}{
		{"ID prefix", "id=signin", schemas.ID("signin")},
		{"CSS prefix", "css=#signin", schemas.CSS("#signin")},
		{"XPath prefix", "xpath=//a[@id='signin']", schemas.XPath("//a[@id='signin']")},
		{"Prefix is case insensitive", "CSS=.shelf-item", schemas.CSS(".shelf-item")},
		{"Bare CSS with attribute equals", "a[href='/favourites']", schemas.CSS("a[href='/favourites']")},
		{"Bare XPath", "//span[text()='Samsung']", schemas.XPath("//span[text()='Samsung']")},
		{"Grouped XPath", "(//div[@role='option'])[1]", schemas.XPath("(//div[@role='option'])[1]")},
		{"Value keeps inner equals", "css=[data-x=y]", schemas.CSS("[data-x=y]")},
		{"Surrounding whitespace", "  id = username ", schemas.ID("username")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := schemas.ParseLocator(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestParseLocator_Errors(t *testing.T) {
	t.Parallel()
	_, err := schemas.ParseLocator("   ")
	assert.Error(t, err)

	_, err = schemas.ParseLocator("id=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty value")
}

func TestParseLocatorSet_PreservesOrder(t *testing.T) {
	t.Parallel()
	raw := []string{"id=signin", "css=#signin", "//a[contains(text(), 'Sign In')]"}
	set, err := schemas.ParseLocatorSet(raw)
	require.NoError(t, err)
	require.Len(t, set, 3)
	assert.Equal(t, schemas.ByID, set[0].Kind)
	assert.Equal(t, schemas.ByCSS, set[1].Kind)
	assert.Equal(t, schemas.ByXPath, set[2].Kind)
	assert.Equal(t, []string{"id=signin", "css=#signin", "xpath=//a[contains(text(), 'Sign In')]"}, set.Strings())

	_, err = schemas.ParseLocatorSet([]string{"id=ok", ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locator 1")
}

func TestXPathLiteral(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "'Galaxy S20+'", schemas.XPathLiteral("Galaxy S20+"))
	assert.Equal(t, `"it's"`, schemas.XPathLiteral("it's"))
	assert.Equal(t, `concat('say "it', "'", 's"')`, schemas.XPathLiteral(`say "it's"`))
}

// FuzzParseLocator checks that rendering and parsing a well formed locator round trips.
func FuzzParseLocator(f *testing.F) {
	f.Add([]byte("\x00\x00\x00\x02id\x00\x00\x00\x06signin"))
	f.Fuzz(func(t *testing.T, data []byte) {
		c := fuzz.NewConsumer(data)
		kindIdx, err := c.GetInt()
		if err != nil {
			return
		}
		value, err := c.GetString()
		if err != nil {
			return
		}
		kinds := []schemas.LocatorKind{schemas.ByID, schemas.ByCSS, schemas.ByXPath}
		loc := schemas.Locator{Kind: kinds[uint(kindIdx)%uint(len(kinds))], Value: value}

		parsed, err := schemas.ParseLocator(loc.String())
		if value == "" || strings.TrimSpace(value) != value {
			return
		}
		require.NoError(t, err)
		assert.Equal(t, loc, parsed)
	})
}

// -- Platforms --

func TestPlatformConfig_Attempts(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, schemas.PlatformConfig{}.Attempts())
	assert.Equal(t, 1, schemas.PlatformConfig{SessionRetries: -2}.Attempts())
	assert.Equal(t, 3, schemas.PlatformConfig{SessionRetries: 3}.Attempts())
}

func TestPlatformConfig_CloneDoesNotShareOptions(t *testing.T) {
	t.Parallel()
	orig := schemas.PlatformConfig{SessionName: "a", Options: map[string]any{"debug": "true"}}
	c := orig.Clone()
	c.Options["debug"] = "false"
	assert.Equal(t, "true", orig.Options["debug"])
	assert.True(t, schemas.PlatformConfig{Family: schemas.FamilyMobile}.IsMobile())
}

// -- Outcomes --

func TestSummary_ExitCode(t *testing.T) {
	t.Parallel()
	passed := schemas.SessionOutcome{SessionName: "a", Status: schemas.StatusPassed}
	failed := schemas.SessionOutcome{SessionName: "b", Status: schemas.StatusFailed, Reason: "boom"}

	testCases := []struct {
		name     string
		outcomes []schemas.SessionOutcome
		exitCode int
	}{
		{"All passed", []schemas.SessionOutcome{passed, passed}, 0},
		{"One failed", []schemas.SessionOutcome{passed, failed, passed}, 1},
		{"All failed", []schemas.SessionOutcome{failed}, 1},
		{"Nothing ran", nil, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := schemas.Summary{Outcomes: tc.outcomes}
			assert.Equal(t, tc.exitCode, s.ExitCode())
			assert.Equal(t, tc.exitCode == 0, s.Passed())
		})
	}

	s := schemas.Summary{Outcomes: []schemas.SessionOutcome{passed, failed}}
	require.Len(t, s.Failed(), 1)
	assert.Equal(t, "b", s.Failed()[0].SessionName)
}

func TestStepResult_Succeeded(t *testing.T) {
	t.Parallel()
	assert.True(t, schemas.StepResult{Step: "open-sign-in"}.Succeeded())
	assert.False(t, schemas.StepResult{Step: "open-sign-in", Err: errors.New("x")}.Succeeded())
}
