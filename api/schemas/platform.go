// api/schemas/platform.go
package schemas

import "maps"

// PlatformFamily groups platforms that share timing and interaction tuning.
type PlatformFamily string

const (
	FamilyDesktop PlatformFamily = "desktop"
	FamilyMobile  PlatformFamily = "mobile"
)

// PlatformConfig describes one target environment for a remote session.
// Values are built once at startup by pure constructors and are not mutated
// afterwards; each instance feeds exactly one session runner.
type PlatformConfig struct {
	Family         PlatformFamily `json:"family"`
	Browser        string         `json:"browser"`
	BrowserVersion string         `json:"browser_version,omitempty"`
	OS             string         `json:"os,omitempty"`
	OSVersion      string         `json:"os_version,omitempty"`
	Device         string         `json:"device,omitempty"`
	// SessionName is the human readable label and the key for the session's outcome.
	SessionName string `json:"session_name"`
	// SessionRetries is the number of session creation attempts. Values below 1 mean 1.
	SessionRetries int `json:"session_retries"`
	// Options are provider specific session options, passed through unchanged.
	Options map[string]any `json:"options,omitempty"`
}

// IsMobile reports whether the platform is a mobile device.
func (p PlatformConfig) IsMobile() bool { return p.Family == FamilyMobile }

// Attempts returns the number of session creation attempts, at least 1.
func (p PlatformConfig) Attempts() int {
	if p.SessionRetries < 1 {
		return 1
	}
	return p.SessionRetries
}

// Clone returns a copy whose Options map is not shared with p.
func (p PlatformConfig) Clone() PlatformConfig {
	c := p
	if p.Options != nil {
		c.Options = maps.Clone(p.Options)
	}
	return c
}
