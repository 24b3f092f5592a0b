package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/common"
	"github.com/ternarybob/webprobe/internal/models"
	"github.com/ternarybob/webprobe/internal/services/provision"
)

type harness struct {
	app      *fakeApp
	prov     *fakeProvisioner
	ledger   *memoryLedger
	reporter *memoryReporter
	runner   *Runner
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	config := common.NewDefaultConfig()
	config.Wait.Timeout = "100ms"
	config.Wait.PollInterval = "5ms"

	app := newFakeApp()
	h := &harness{
		app:      app,
		prov:     &fakeProvisioner{app: app},
		ledger:   &memoryLedger{},
		reporter: &memoryReporter{},
	}
	h.runner = NewRunner(config, app, &sequenceGenerator{}, h.prov, arbor.NewLogger(),
		WithAccountStorage(h.ledger),
		WithRunStorage(h.ledger),
		WithReportWriter(h.reporter),
	)
	return h
}

func builtin(t *testing.T, name string) models.Scenario {
	t.Helper()
	selected, err := Select(Builtin(), []string{name})
	require.NoError(t, err)
	require.Len(t, selected, 1)
	return selected[0]
}

func TestRun_LoginPasses(t *testing.T) {
	h := newHarness(t)

	result := h.runner.Run(context.Background(), builtin(t, "login"))

	assert.Equal(t, models.OutcomePass, result.Outcome, result.Error)
	assert.True(t, result.Provisioned)
	assert.Equal(t, "seleniumuser1700000001@example.com", result.Account)
	assert.Contains(t, result.FinalURL, "/dashboard")

	events := h.app.Events()
	require.NotEmpty(t, events)
	// provisioning happens before any browser activity
	assert.Equal(t, "provision seleniumuser1700000001@example.com", events[0])
	assert.Equal(t, "launch", events[1])
	assert.Equal(t, "close", events[len(events)-1])
	assert.Contains(t, events, "click button[type=submit]")
	assert.Contains(t, events, "fill email=seleniumuser1700000001@example.com")

	require.Len(t, h.ledger.accounts, 1)
	assert.Equal(t, "login", h.ledger.accounts[0].Scenario)
	assert.Equal(t, "http://localhost:3000/api/signup", h.ledger.accounts[0].SignupURL)
}

func TestRun_ProvisioningFailureAbortsBeforeBrowser(t *testing.T) {
	h := newHarness(t)
	h.prov.err = &provision.ProvisionError{StatusCode: 400, Body: `{"error":"User already exists"}`, URL: "http://localhost:3000/api/signup"}

	result := h.runner.Run(context.Background(), builtin(t, "login"))

	assert.Equal(t, models.OutcomeFail, result.Outcome)
	assert.Equal(t, models.ErrorKindProvisioning, result.ErrorKind)
	assert.Contains(t, result.Error, "status 400")
	assert.NotContains(t, h.app.Events(), "launch")
	assert.Empty(t, h.ledger.accounts)
}

func TestRun_SignupTypesFieldsInOrder(t *testing.T) {
	h := newHarness(t)

	result := h.runner.Run(context.Background(), builtin(t, "signup"))
	require.Equal(t, models.OutcomePass, result.Outcome, result.Error)
	assert.False(t, result.Provisioned)

	var fills []string
	for _, e := range h.app.Events() {
		if len(e) > 5 && e[:5] == "fill " {
			fills = append(fills, e)
		}
	}
	assert.Equal(t, []string{
		"fill username=seleniumuser1700000001",
		"fill email=seleniumuser1700000001@example.com",
		"fill password=ValidPass123!",
		"fill confirmPassword=ValidPass123!",
	}, fills)
	assert.Contains(t, h.app.Events(), "style")
}

func TestRun_SignupConfirmationMessagePasses(t *testing.T) {
	h := newHarness(t)
	h.app.signupMessage = "<p>Account created</p>"

	result := h.runner.Run(context.Background(), builtin(t, "signup"))
	assert.Equal(t, models.OutcomePass, result.Outcome, result.Error)

	strict := h.runner.Run(context.Background(), builtin(t, "signup-dashboard-redirect"))
	assert.Equal(t, models.OutcomeFail, strict.Outcome)
	assert.Equal(t, models.ErrorKindOracle, strict.ErrorKind)
}

func TestRun_MissingElementIsElementError(t *testing.T) {
	h := newHarness(t)
	h.app.missingFields["password"] = true

	result := h.runner.Run(context.Background(), builtin(t, "login"))

	assert.Equal(t, models.OutcomeFail, result.Outcome)
	assert.Equal(t, models.ErrorKindElement, result.ErrorKind)
	assert.Contains(t, result.Error, "#password")
	assert.Contains(t, result.Error, "step 3 (fill)")
	// the excerpt is the page source at the failed lookup
	assert.Contains(t, result.Excerpt, `<input id="email">`)
	assert.Equal(t, "close", h.app.Events()[len(h.app.Events())-1])
}

func TestRun_DashboardPartialPass(t *testing.T) {
	h := newHarness(t)
	h.app.dashboardHTML = `<html><body><h1>Welcome back, someone!</h1><p>Email: someone@example.com</p></body></html>`

	result := h.runner.Run(context.Background(), builtin(t, "dashboard"))

	assert.Equal(t, models.OutcomePartial, result.Outcome)
	assert.False(t, result.Failed())
	assert.Contains(t, result.Found, `markup~"Welcome back"`)
	assert.Equal(t, []string{`markup~"Account Information"`}, result.Missing)
}

func TestRun_DashboardFailsWithDiagnostics(t *testing.T) {
	h := newHarness(t)
	h.app.hideDashboard = true
	h.app.console = []string{"exception: TypeError: user is undefined"}

	result := h.runner.Run(context.Background(), builtin(t, "login"))

	assert.Equal(t, models.OutcomeFail, result.Outcome)
	assert.Equal(t, models.ErrorKindOracle, result.ErrorKind)
	assert.Contains(t, result.Error, "found indicators")
	assert.Contains(t, result.FinalURL, "/login")
	assert.NotEmpty(t, result.Excerpt)
	assert.Equal(t, []string{"exception: TypeError: user is undefined"}, result.Console)
}

func TestRun_InvalidLoginStaysOnLogin(t *testing.T) {
	h := newHarness(t)

	result := h.runner.Run(context.Background(), builtin(t, "login-invalid"))

	assert.Equal(t, models.OutcomePass, result.Outcome, result.Error)
	assert.Contains(t, result.FinalURL, "/login")
}

func TestRun_UnauthenticatedDashboard(t *testing.T) {
	h := newHarness(t)

	result := h.runner.Run(context.Background(), builtin(t, "dashboard-unauthenticated"))
	assert.Equal(t, models.OutcomePass, result.Outcome, result.Error)
}

func TestRun_PanicIsContained(t *testing.T) {
	h := newHarness(t)
	h.app.panicOnNavigate = true

	result := h.runner.Run(context.Background(), builtin(t, "signup"))

	assert.Equal(t, models.OutcomeFail, result.Outcome)
	assert.Equal(t, models.ErrorKindInternal, result.ErrorKind)
	assert.Contains(t, result.Error, "renderer crashed")
	assert.Contains(t, h.app.Events(), "close")
}

func TestRunAll_RecordsRunAndArtifacts(t *testing.T) {
	h := newHarness(t)
	h.app.hideDashboard = true

	scenarios, err := Select(Builtin(), []string{"signup", "login"})
	require.NoError(t, err)

	run := h.runner.RunAll(context.Background(), scenarios)

	assert.Equal(t, 1, run.Passed)
	assert.Equal(t, 1, run.Failed)
	assert.False(t, run.Succeeded())
	require.Len(t, run.Results, 2)
	assert.Equal(t, "signup", run.Results[0].Scenario)
	assert.Equal(t, "login", run.Results[1].Scenario)
	assert.NotEmpty(t, run.Results[1].ArtifactsDir)

	require.Len(t, h.ledger.runs, 1)
	assert.Equal(t, run.ID, h.ledger.runs[0].ID)
	assert.Equal(t, []string{"signup", "login"}, h.reporter.scenarios)
	assert.Equal(t, 1, h.reporter.summaries)
	require.Len(t, h.ledger.accounts, 1)
	assert.Equal(t, run.ID, h.ledger.accounts[0].RunID)
}

func TestRunAll_CancelledContextMarksRemainingScenarios(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := h.runner.RunAll(ctx, Builtin())

	assert.Equal(t, len(Builtin()), run.Failed)
	for _, r := range run.Results {
		assert.Contains(t, r.Error, "not run")
	}
	assert.NotContains(t, h.app.Events(), "launch")
}

func TestRun_GeneratorFailure(t *testing.T) {
	h := newHarness(t)
	h.runner.generator = failingGenerator{}

	result := h.runner.Run(context.Background(), builtin(t, "signup"))
	assert.Equal(t, models.ErrorKindProvisioning, result.ErrorKind)
	assert.Contains(t, result.Error, "invalid test account")
	assert.NotContains(t, h.app.Events(), "launch")
}

type failingGenerator struct{}

func (failingGenerator) Next() (models.Account, error) {
	return models.Account{}, provision.ErrInvalidAccount
}

func TestFieldOrder(t *testing.T) {
	step := models.Step{
		Fields: map[string]string{"b": "", "a": "", "z": "", "email": ""},
		Order:  []string{"z", "missing", "email"},
	}
	assert.Equal(t, []string{"z", "email", "a", "b"}, fieldOrder(step))
}

func TestRun_CatalogueScenarioIsNotMutated(t *testing.T) {
	h := newHarness(t)
	sc := builtin(t, "login")

	first := h.runner.Run(context.Background(), sc)
	second := h.runner.Run(context.Background(), sc)

	assert.Equal(t, models.OutcomePass, first.Outcome, first.Error)
	assert.Equal(t, models.OutcomePass, second.Outcome, second.Error)
	assert.NotEqual(t, first.Account, second.Account)
	assert.Equal(t, "{email}", sc.Steps[2].Fields["email"])
	assert.Contains(t, h.app.Events(), "fill email="+second.Account)
}

func TestRun_WaitTimeoutStillInspects(t *testing.T) {
	h := newHarness(t)
	h.app.hideDashboard = true

	started := time.Now()
	result := h.runner.Run(context.Background(), builtin(t, "login"))

	assert.Equal(t, models.OutcomeFail, result.Outcome)
	assert.Equal(t, models.ErrorKindOracle, result.ErrorKind)
	assert.Contains(t, h.app.Events(), "wait")
	assert.GreaterOrEqual(t, time.Since(started), 100*time.Millisecond)
}

func TestRun_WaitAbortedByCancellation(t *testing.T) {
	h := newHarness(t)
	h.app.hideDashboard = true
	h.runner.config.Wait.Timeout = "1m"

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	result := h.runner.Run(ctx, builtin(t, "login"))

	assert.Equal(t, models.OutcomeFail, result.Outcome)
	assert.Contains(t, result.Error, "wait aborted")
}
