// internal/platform/platform.go
// Package platform builds the PlatformConfig values a run targets and renders
// them into remote session capabilities. Everything here is a pure function of
// its arguments.
package platform

import (
	"fmt"
	"maps"
	"strings"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/config"
)

// Build groups sessions on the provider dashboard.
type Build struct {
	Name    string
	Project string
}

// BuildFromConfig reads the build labels from the provider section.
func BuildFromConfig(cfg config.ProviderConfig) Build {
	return Build{Name: cfg.BuildName, Project: cfg.ProjectName}
}

// commonOptions are sent with every remote session.
func commonOptions(build Build) map[string]any {
	return map[string]any{
		"buildName":   build.Name,
		"projectName": build.Project,
		"debug":       "true",
		"networkLogs": "true",
		"consoleLogs": "verbose",
	}
}

// ChromeWindows is the latest Chrome on Windows 10.
func ChromeWindows(build Build) schemas.PlatformConfig {
	opts := commonOptions(build)
	opts["seleniumVersion"] = "4.0.0"
	return schemas.PlatformConfig{
		Family:         schemas.FamilyDesktop,
		Browser:        "Chrome",
		BrowserVersion: "latest",
		OS:             "Windows",
		OSVersion:      "10",
		SessionName:    "Windows 10 Chrome Test",
		SessionRetries: 1,
		Options:        opts,
	}
}

// FirefoxMacOS is the latest Firefox on macOS Ventura. Session creation for
// this combination is flaky on the provider and gets three attempts.
func FirefoxMacOS(build Build) schemas.PlatformConfig {
	opts := commonOptions(build)
	opts["seleniumVersion"] = "4.0.0"
	opts["wsLocalSupport"] = "false"
	return schemas.PlatformConfig{
		Family:         schemas.FamilyDesktop,
		Browser:        "Firefox",
		BrowserVersion: "latest",
		OS:             "OS X",
		OSVersion:      "Ventura",
		SessionName:    "macOS Ventura Firefox Test",
		SessionRetries: 3,
		Options:        opts,
	}
}

// GalaxyS22 is Chrome on a real Samsung Galaxy S22.
func GalaxyS22(build Build) schemas.PlatformConfig {
	opts := commonOptions(build)
	opts["appiumVersion"] = "2.0.0"
	return schemas.PlatformConfig{
		Family:         schemas.FamilyMobile,
		Browser:        "chrome",
		OSVersion:      "12.0",
		Device:         "Samsung Galaxy S22",
		SessionName:    "Samsung Galaxy S22 Chrome Test",
		SessionRetries: 1,
		Options:        opts,
	}
}

// Defaults returns the built-in platforms in run order.
func Defaults(build Build) []schemas.PlatformConfig {
	return []schemas.PlatformConfig{
		ChromeWindows(build),
		FirefoxMacOS(build),
		GalaxyS22(build),
	}
}

// FromSpec builds a PlatformConfig from a configuration file entry. Entry
// options override the common options.
func FromSpec(spec config.PlatformSpec, build Build) (schemas.PlatformConfig, error) {
	if err := spec.Validate(); err != nil {
		return schemas.PlatformConfig{}, err
	}
	opts := commonOptions(build)
	maps.Copy(opts, spec.Options)
	return schemas.PlatformConfig{
		Family:         schemas.PlatformFamily(spec.Family),
		Browser:        spec.Browser,
		BrowserVersion: spec.BrowserVersion,
		OS:             spec.OS,
		OSVersion:      spec.OSVersion,
		Device:         spec.Device,
		SessionName:    spec.Name,
		SessionRetries: spec.SessionRetries,
		Options:        opts,
	}, nil
}

// Resolve returns the configured platforms, or the defaults when the
// configuration names none.
func Resolve(cfg *config.Config) ([]schemas.PlatformConfig, error) {
	build := BuildFromConfig(cfg.Provider)
	if len(cfg.Platforms) == 0 {
		return Defaults(build), nil
	}
	out := make([]schemas.PlatformConfig, 0, len(cfg.Platforms))
	for i, spec := range cfg.Platforms {
		pc, err := FromSpec(spec, build)
		if err != nil {
			return nil, fmt.Errorf("platforms[%d]: %w", i, err)
		}
		out = append(out, pc)
	}
	return out, nil
}

// Select keeps the platforms whose session name contains any of the given
// filters, case-insensitively, preserving order. No filters keeps everything.
// The result holds copies that share no Options map with the input.
func Select(platforms []schemas.PlatformConfig, filters []string) ([]schemas.PlatformConfig, error) {
	var out []schemas.PlatformConfig
	for _, p := range platforms {
		if matches(p.SessionName, filters) {
			out = append(out, p.Clone())
		}
	}
	if len(out) == 0 && len(filters) > 0 {
		return nil, fmt.Errorf("no platform matches %q", filters)
	}
	return out, nil
}

func matches(name string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	name = strings.ToLower(name)
	for _, f := range filters {
		if strings.Contains(name, strings.ToLower(strings.TrimSpace(f))) {
			return true
		}
	}
	return false
}

// Capabilities renders the W3C capabilities for a remote session. Provider
// specific settings go under "bstack:options". Credentials are never part of
// the result.
func Capabilities(pc schemas.PlatformConfig) map[string]any {
	bstack := maps.Clone(pc.Options)
	if bstack == nil {
		bstack = map[string]any{}
	}
	bstack["sessionName"] = pc.SessionName
	if pc.OSVersion != "" {
		bstack["osVersion"] = pc.OSVersion
	}

	caps := map[string]any{}
	if pc.IsMobile() {
		bstack["deviceName"] = pc.Device
		bstack["realMobile"] = "true"
		if pc.Browser != "" {
			bstack["browserName"] = pc.Browser
		}
	} else {
		bstack["os"] = pc.OS
		caps["browserName"] = pc.Browser
		if pc.BrowserVersion != "" {
			caps["browserVersion"] = pc.BrowserVersion
		}
	}
	caps["bstack:options"] = bstack
	return caps
}
