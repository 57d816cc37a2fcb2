// api/schemas/outcome.go
package schemas

import "time"

// StepResult is the outcome of one workflow step.
type StepResult struct {
	Step     string        `json:"step"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the step completed.
func (r StepResult) Succeeded() bool { return r.Err == nil }

// SessionStatus is the terminal classification of one session.
type SessionStatus string

const (
	StatusPassed SessionStatus = "passed"
	StatusFailed SessionStatus = "failed"
)

// Diagnostics is the best-effort state captured from a failing session.
type Diagnostics struct {
	URL            string `json:"url,omitempty"`
	Title          string `json:"title,omitempty"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`
}

// SessionOutcome is the single terminal record for one PlatformConfig.
type SessionOutcome struct {
	SessionName string         `json:"session_name"`
	Platform    PlatformConfig `json:"platform"`
	Status      SessionStatus  `json:"status"`
	Reason      string         `json:"reason,omitempty"`
	FailedStep  string         `json:"failed_step,omitempty"`
	Diagnostics *Diagnostics   `json:"diagnostics,omitempty"`
	Steps       []StepResult   `json:"steps,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

// Passed reports whether the session passed.
func (o SessionOutcome) Passed() bool { return o.Status == StatusPassed }

// Summary aggregates the outcomes of one dispatcher run.
type Summary struct {
	RunID     string           `json:"run_id"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
	Outcomes  []SessionOutcome `json:"outcomes"`
}

// Passed is true iff no outcome failed.
func (s Summary) Passed() bool {
	for _, o := range s.Outcomes {
		if !o.Passed() {
			return false
		}
	}
	return true
}

// Failed returns the outcomes that did not pass, in order.
func (s Summary) Failed() []SessionOutcome {
	var out []SessionOutcome
	for _, o := range s.Outcomes {
		if !o.Passed() {
			out = append(out, o)
		}
	}
	return out
}

// ExitCode is the process exit status for CI: 0 when every session passed.
func (s Summary) ExitCode() int {
	if s.Passed() {
		return 0
	}
	return 1
}
