package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/webprobe/internal/models"
)

// Page is the set of browser operations a scenario step needs.
// Implemented by the chromedp session and by test fakes.
type Page interface {
	Navigate(ctx context.Context, url string) error
	InjectStyle(ctx context.Context, css string) error
	// Fill waits for the element with the given id and types value into it
	Fill(ctx context.Context, id string, value string) error
	Click(ctx context.Context, selector string) error
	Snapshot(ctx context.Context) (models.PageState, error)
	BodyText(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// BrowserSession is a live browser owned by exactly one scenario
type BrowserSession interface {
	Page
	// WaitFor polls until any of checks holds. A timeout reports false
	// with a nil error; only cancellation or a dead session is an error.
	WaitFor(ctx context.Context, checks []models.Check, timeout, interval time.Duration) (bool, error)
	// Close releases the browser; safe to call more than once
	Close() error
}

// ConsoleRecorder is implemented by sessions that capture page script
// errors and console.error output
type ConsoleRecorder interface {
	ConsoleErrors() []string
}

// BrowserLauncher starts fresh browser sessions
type BrowserLauncher interface {
	Launch(ctx context.Context) (BrowserSession, error)
}

// AccountProvisioner creates a test account on the system under test
type AccountProvisioner interface {
	Provision(ctx context.Context, account models.Account) error
}

// AccountGenerator builds fresh, policy-compliant test accounts
type AccountGenerator interface {
	Next() (models.Account, error)
}

// ReportWriter persists run artifacts to disk
type ReportWriter interface {
	// StartRun creates the run directory and returns its path
	StartRun(run *models.RunRecord) (string, error)
	// WriteScenario stores page source, markdown and screenshot for one
	// scenario and returns the artifact directory
	WriteScenario(runDir string, scenario string, state models.PageState, screenshot []byte) (string, error)
	// WriteSummary writes summary.md, summary.html and result.json
	WriteSummary(runDir string, run *models.RunRecord) error
}

// Scheduler runs a job repeatedly on a cron schedule
type Scheduler interface {
	Start(cronExpr string, job func(ctx context.Context) error) error
	Trigger() bool
	Stop() error
}
