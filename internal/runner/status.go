// internal/runner/status.go
package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crossbrowse/api/schemas"
	"github.com/xkilldash9x/crossbrowse/internal/browser"
)

// statusReasonLimit is the longest reason the provider's status API keeps.
const statusReasonLimit = 100

// executorPrefix marks a script as a command for the provider rather than the page.
const executorPrefix = "browserstack_executor: "

type statusCommand struct {
	Action    string          `json:"action"`
	Arguments statusArguments `json:"arguments"`
}

type statusArguments struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// StatusScript renders the provider command that marks a session passed or failed.
func StatusScript(status schemas.SessionStatus, reason string) (string, error) {
	payload, err := json.Marshal(statusCommand{
		Action: "setSessionStatus",
		Arguments: statusArguments{
			Status: string(status),
			Reason: truncate(reason, statusReasonLimit),
		},
	})
	if err != nil {
		return "", err
	}
	return executorPrefix + string(payload), nil
}

// reportStatus tells the provider how the session ended. It is best effort:
// failures are logged and otherwise ignored.
func (r *Runner) reportStatus(ctx context.Context, driver browser.Driver, out schemas.SessionOutcome, log *zap.Logger) {
	if !r.cfg.Run.ReportStatus || !r.cfg.Remote() {
		return
	}
	script, err := StatusScript(out.Status, out.Reason)
	if err != nil {
		log.Debug("Could not encode the session status.", zap.Error(err))
		return
	}
	statusCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticsTimeout)
	defer cancel()
	if _, err := driver.ExecuteScript(statusCtx, script); err != nil {
		log.Debug("Session status report failed.", zap.Error(err))
	}
}

// capture collects what the failing session can still tell us. Every part
// is optional; nil means nothing could be read.
func (r *Runner) capture(ctx context.Context, driver browser.Driver, platform schemas.PlatformConfig, log *zap.Logger) *schemas.Diagnostics {
	diagCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticsTimeout)
	defer cancel()

	var d schemas.Diagnostics
	if u, err := driver.CurrentURL(diagCtx); err == nil {
		d.URL = u
	}
	if t, err := driver.Title(diagCtx); err == nil {
		d.Title = t
	}
	if r.cfg.Run.ArtifactsDir != "" {
		if png, err := driver.Screenshot(diagCtx); err == nil && len(png) > 0 {
			path, err := writeScreenshot(r.cfg.Run.ArtifactsDir, platform.SessionName, png)
			if err != nil {
				log.Warn("Could not save the failure screenshot.", zap.Error(err))
			} else {
				d.ScreenshotPath = path
			}
		}
	}
	if d == (schemas.Diagnostics{}) {
		return nil
	}
	log.Info("Captured failure diagnostics.",
		zap.String("url", d.URL),
		zap.String("title", d.Title),
		zap.String("screenshot", d.ScreenshotPath))
	return &d
}

func writeScreenshot(dir, session string, png []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fileName(session)+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// fileName maps a session label onto a portable file name.
func fileName(session string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, strings.TrimSpace(session))
	if name == "" {
		return "session"
	}
	return name
}
