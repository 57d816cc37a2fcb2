// internal/platform/platform_test.go
package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/config"
)

var testBuild = Build{Name: "BStackDemo Complete Test Suite", Project: "E-commerce Full Flow Test"}

func TestDefaults(t *testing.T) {
	platforms := Defaults(testBuild)
	require.Len(t, platforms, 3)

	assert.Equal(t, "Windows 10 Chrome Test", platforms[0].SessionName)
	assert.Equal(t, 1, platforms[0].Attempts())

	assert.Equal(t, "macOS Ventura Firefox Test", platforms[1].SessionName)
	assert.Equal(t, 3, platforms[1].Attempts(), "firefox sessions are retried")
	assert.Equal(t, "false", platforms[1].Options["wsLocalSupport"])

	assert.True(t, platforms[2].IsMobile())
	assert.Equal(t, "Samsung Galaxy S22", platforms[2].Device)
}

func TestFactories_ArePure(t *testing.T) {
	a := ChromeWindows(testBuild)
	a.Options["debug"] = "false"
	b := ChromeWindows(testBuild)
	assert.Equal(t, "true", b.Options["debug"], "each call returns its own options bag")
}

func TestCapabilities_Desktop(t *testing.T) {
	caps := Capabilities(FirefoxMacOS(testBuild))

	assert.Equal(t, "Firefox", caps["browserName"])
	assert.Equal(t, "latest", caps["browserVersion"])
	bstack, ok := caps["bstack:options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "OS X", bstack["os"])
	assert.Equal(t, "Ventura", bstack["osVersion"])
	assert.Equal(t, "macOS Ventura Firefox Test", bstack["sessionName"])
	assert.Equal(t, testBuild.Name, bstack["buildName"])
	assert.NotContains(t, bstack, "userName")
	assert.NotContains(t, bstack, "accessKey")
}

func TestCapabilities_Mobile(t *testing.T) {
	pc := GalaxyS22(testBuild)
	caps := Capabilities(pc)

	assert.NotContains(t, caps, "browserName", "mobile sessions name the browser inside bstack:options")
	bstack := caps["bstack:options"].(map[string]any)
	assert.Equal(t, "Samsung Galaxy S22", bstack["deviceName"])
	assert.Equal(t, "true", bstack["realMobile"])
	assert.Equal(t, "chrome", bstack["browserName"])
	assert.Equal(t, "12.0", bstack["osVersion"])
	assert.Equal(t, "2.0.0", bstack["appiumVersion"])

	bstack["debug"] = "false"
	assert.Equal(t, "true", pc.Options["debug"], "rendering does not alias the platform's options")
}

func TestFromSpec(t *testing.T) {
	pc, err := FromSpec(config.PlatformSpec{
		Name:           "Pixel 7 Chrome",
		Family:         "mobile",
		Device:         "Google Pixel 7",
		OSVersion:      "13.0",
		Browser:        "chrome",
		SessionRetries: 2,
		Options:        map[string]any{"debug": "false", "appiumVersion": "2.0.0"},
	}, testBuild)
	require.NoError(t, err)

	assert.Equal(t, schemas.FamilyMobile, pc.Family)
	assert.Equal(t, "Pixel 7 Chrome", pc.SessionName)
	assert.Equal(t, 2, pc.Attempts())
	assert.Equal(t, "false", pc.Options["debug"], "entry options override the common ones")
	assert.Equal(t, testBuild.Project, pc.Options["projectName"])

	_, err = FromSpec(config.PlatformSpec{Name: "broken", Family: "tablet"}, testBuild)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	cfg := config.NewDefaultConfig()
	platforms, err := Resolve(cfg)
	require.NoError(t, err)
	assert.Len(t, platforms, 3)

	cfg.Platforms = []config.PlatformSpec{{Name: "Edge Win 11", Family: "desktop", Browser: "Edge", OS: "Windows", OSVersion: "11"}}
	platforms, err = Resolve(cfg)
	require.NoError(t, err)
	require.Len(t, platforms, 1)
	assert.Equal(t, "Edge", platforms[0].Browser)

	cfg.Platforms = append(cfg.Platforms, config.PlatformSpec{Name: "no family"})
	_, err = Resolve(cfg)
	assert.ErrorContains(t, err, "platforms[1]")
}

func TestSelect(t *testing.T) {
	all := Defaults(testBuild)

	got, err := Select(all, nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = Select(all, []string{"galaxy", " CHROME "})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Windows 10 Chrome Test", got[0].SessionName, "input order is kept")
	assert.Equal(t, "Samsung Galaxy S22 Chrome Test", got[1].SessionName)

	_, err = Select(all, []string{"safari"})
	assert.Error(t, err)
}

func TestSelect_ReturnsIndependentCopies(t *testing.T) {
	all := Defaults(testBuild)
	got, err := Select(all, nil)
	require.NoError(t, err)

	got[0].Options["buildName"] = "changed"
	assert.NotEqual(t, "changed", all[0].Options["buildName"])
}
