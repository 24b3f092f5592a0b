package scenario

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/common"
	"github.com/ternarybob/webprobe/internal/interfaces"
	"github.com/ternarybob/webprobe/internal/models"
	"github.com/ternarybob/webprobe/internal/services/browser"
	"github.com/ternarybob/webprobe/internal/services/oracle"
)

// diagnosticExcerptLength bounds the body text logged with a failure
const diagnosticExcerptLength = 500

// Runner executes scenarios one at a time, each in its own browser session
type Runner struct {
	config      *common.Config
	launcher    interfaces.BrowserLauncher
	generator   interfaces.AccountGenerator
	provisioner interfaces.AccountProvisioner
	accounts    interfaces.AccountStorage
	runs        interfaces.RunStorage
	reporter    interfaces.ReportWriter
	logger      arbor.ILogger
}

// RunnerOption configures the Runner.
type RunnerOption func(*Runner)

// WithAccountStorage records provisioned accounts in the ledger
func WithAccountStorage(storage interfaces.AccountStorage) RunnerOption {
	return func(r *Runner) {
		r.accounts = storage
	}
}

// WithRunStorage records finished runs in the ledger
func WithRunStorage(storage interfaces.RunStorage) RunnerOption {
	return func(r *Runner) {
		r.runs = storage
	}
}

// WithReportWriter writes per-run artifacts
func WithReportWriter(reporter interfaces.ReportWriter) RunnerOption {
	return func(r *Runner) {
		r.reporter = reporter
	}
}

// NewRunner creates a scenario runner
func NewRunner(
	config *common.Config,
	launcher interfaces.BrowserLauncher,
	generator interfaces.AccountGenerator,
	provisioner interfaces.AccountProvisioner,
	logger arbor.ILogger,
	opts ...RunnerOption,
) *Runner {
	r := &Runner{
		config:      config,
		launcher:    launcher,
		generator:   generator,
		provisioner: provisioner,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// runScope carries what a scenario needs to know about the enclosing run
type runScope struct {
	id  string
	dir string // "" = no artifacts
}

// Run executes a single scenario outside of a suite run (no artifacts)
func (r *Runner) Run(ctx context.Context, sc models.Scenario) models.ScenarioResult {
	return r.run(ctx, runScope{}, sc)
}

// RunAll executes scenarios sequentially and returns the run record.
// Scenarios never overlap; a cancelled ctx marks the remaining ones failed.
func (r *Runner) RunAll(ctx context.Context, scenarios []models.Scenario) models.RunRecord {
	started := time.Now()
	run := &models.RunRecord{
		ID:        common.NewRunID(started),
		StartedAt: started,
		Frontend:  r.config.Frontend.BaseURL,
	}

	scope := runScope{id: run.ID}
	if r.reporter != nil {
		dir, err := r.reporter.StartRun(run)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Failed to create run directory, artifacts disabled")
		} else {
			scope.dir = dir
			run.ReportDir = dir
		}
	}

	r.logger.Info().
		Str("run_id", run.ID).
		Int("scenarios", len(scenarios)).
		Str("frontend", run.Frontend).
		Msg("Run started")

	for _, sc := range scenarios {
		if ctx.Err() != nil {
			run.Add(models.ScenarioResult{
				Scenario:  sc.Name,
				Outcome:   models.OutcomeFail,
				Error:     fmt.Sprintf("not run: %v", ctx.Err()),
				ErrorKind: models.ErrorKindInternal,
				StartedAt: time.Now(),
			})
			continue
		}
		run.Add(r.run(ctx, scope, sc))
	}

	run.FinishedAt = time.Now()

	if r.reporter != nil && scope.dir != "" {
		if err := r.reporter.WriteSummary(scope.dir, run); err != nil {
			r.logger.Warn().Err(err).Str("dir", scope.dir).Msg("Failed to write run summary")
		}
	}

	if r.runs != nil {
		// the run context may already be cancelled; the record still matters
		if err := r.runs.SaveRun(context.WithoutCancel(ctx), run); err != nil {
			r.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to save run record")
		}
	}

	event := r.logger.Info()
	if !run.Succeeded() {
		event = r.logger.Error()
	}
	event.
		Str("run_id", run.ID).
		Int("passed", run.Passed).
		Int("partial", run.Partial).
		Int("failed", run.Failed).
		Str("duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()).
		Msg("Run finished")

	return *run
}

func (r *Runner) run(ctx context.Context, scope runScope, sc models.Scenario) (result models.ScenarioResult) {
	result = models.ScenarioResult{
		Scenario:  sc.Name,
		StartedAt: time.Now(),
	}
	logger := r.logger.WithCorrelationId(sc.Name)

	defer func() {
		if p := recover(); p != nil {
			result.Outcome = models.OutcomeFail
			result.ErrorKind = models.ErrorKindInternal
			result.Error = fmt.Sprintf("panic: %v", p)
			logger.Error().Str("panic", result.Error).Str("stack", common.GetStackTrace()).Msg("Scenario panicked")
		}
		result.Duration = time.Since(result.StartedAt)
		r.logResult(logger, result)
	}()

	ctx, cancel := context.WithTimeout(ctx, r.config.ScenarioTimeout())
	defer cancel()

	logger.Info().Str("description", sc.Description).Bool("provision", sc.Provision).Msg("Scenario started")

	account, err := r.generator.Next()
	if err != nil {
		return fail(result, models.ErrorKindProvisioning, err)
	}
	result.Account = account.Email

	if sc.Provision {
		if err := r.provisioner.Provision(ctx, account); err != nil {
			// nothing to drive in the browser without an account
			return fail(result, models.ErrorKindProvisioning, err)
		}
		result.Provisioned = true
		r.recordAccount(ctx, scope, sc.Name, account)
	}

	vars := account.Vars()

	err = browser.WithSession(ctx, r.launcher, func(session interfaces.BrowserSession) error {
		for i, step := range sc.Steps {
			if err := r.execStep(ctx, session, step, vars, logger); err != nil {
				r.inspect(ctx, session, scope, sc, &result, logger)
				return fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
			}
		}
		r.inspect(ctx, session, scope, sc, &result, logger)
		return nil
	})

	if err != nil {
		kind := models.ErrorKindBrowser
		if errors.Is(err, browser.ErrElementNotFound) {
			kind = models.ErrorKindElement
		}
		var elemErr *browser.ElementError
		if errors.As(err, &elemErr) && elemErr.Excerpt != "" {
			// page source at the failed lookup beats the body text
			result.Excerpt = elemErr.Excerpt
		}
		return fail(result, kind, err)
	}

	return result
}

// inspect captures the final page state, applies the oracle and writes
// artifacts. Failures are logged with URL, title and a body excerpt.
func (r *Runner) inspect(ctx context.Context, session interfaces.BrowserSession, scope runScope, sc models.Scenario, result *models.ScenarioResult, logger arbor.ILogger) {
	// diagnostics must survive a scenario that ran out of time
	inspectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.ElementTimeout())
	defer cancel()

	state, err := session.Snapshot(inspectCtx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to capture final page state")
		result.Outcome = models.OutcomeFail
		result.ErrorKind = models.ErrorKindBrowser
		result.Error = err.Error()
		return
	}

	if recorder, ok := session.(interfaces.ConsoleRecorder); ok {
		result.Console = recorder.ConsoleErrors()
	}

	result.FinalURL = state.URL
	result.Title = state.Title
	if result.Title == "" {
		result.Title = oracle.TitleOf(state.HTML)
	}

	verdict := oracle.Evaluate(sc.Oracle, state)
	result.Outcome = verdict.Outcome
	result.Found = verdict.Found
	result.Missing = verdict.Missing
	result.Violations = verdict.Violations

	switch verdict.Outcome {
	case models.OutcomePartial:
		logger.Warn().Strs("found", verdict.Found).Strs("missing", verdict.Missing).Msg(verdict.Reason)
	case models.OutcomeFail:
		result.ErrorKind = models.ErrorKindOracle
		result.Error = verdict.Reason
		result.Excerpt = oracle.BodyExcerpt(state.HTML, diagnosticExcerptLength)
		logger.Error().
			Str("url", state.URL).
			Str("title", result.Title).
			Str("body", result.Excerpt).
			Strs("found", verdict.Found).
			Strs("console", result.Console).
			Msg("Page diagnostics")
	}

	if scope.dir == "" || r.reporter == nil {
		return
	}

	var screenshot []byte
	if r.config.Output.Screenshots {
		if screenshot, err = session.Screenshot(inspectCtx); err != nil {
			logger.Warn().Err(err).Msg("Failed to capture screenshot")
		}
	}
	dir, err := r.reporter.WriteScenario(scope.dir, sc.Name, state, screenshot)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to write scenario artifacts")
		return
	}
	result.ArtifactsDir = dir
}

func (r *Runner) execStep(ctx context.Context, session interfaces.BrowserSession, step models.Step, vars map[string]string, logger arbor.ILogger) error {
	step, err := resolveStep(step, vars, logger)
	if err != nil {
		return err
	}

	switch step.Action {
	case models.StepActionNavigate:
		return session.Navigate(ctx, r.config.RouteURL(step.Route))

	case models.StepActionHideOverlays:
		css := HideOverlaysCSS
		if step.Selector != "" {
			css = step.Selector + " { display: none !important; }"
		}
		return session.InjectStyle(ctx, css)

	case models.StepActionFill:
		for _, id := range fieldOrder(step) {
			logger.Debug().Str("field", id).Msg("Filling field")
			if err := session.Fill(ctx, id, step.Fields[id]); err != nil {
				return err
			}
		}
		return nil

	case models.StepActionSubmit:
		selector := step.Selector
		if selector == "" {
			selector = models.DefaultSubmitSelector
		}
		return session.Click(ctx, selector)

	case models.StepActionWait:
		return r.wait(ctx, session, step, logger)
	}

	return fmt.Errorf("unknown action %q", step.Action)
}

// resolveStep returns a copy of step with {key} references replaced.
// Catalogue scenarios are reused across runs and must stay untouched.
func resolveStep(step models.Step, vars map[string]string, logger arbor.ILogger) (models.Step, error) {
	step.Fields = maps.Clone(step.Fields)
	step.Order = slices.Clone(step.Order)
	step.Until = slices.Clone(step.Until)
	if err := common.ReplaceInStruct(&step, vars, logger); err != nil {
		return step, fmt.Errorf("failed to resolve step references: %w", err)
	}
	return step, nil
}

// wait polls until one of the step's checks holds. Running out of time is
// not an error: the oracle judges whatever page state was reached.
func (r *Runner) wait(ctx context.Context, session interfaces.BrowserSession, step models.Step, logger arbor.ILogger) error {
	timeout := r.config.WaitTimeout()
	if step.Timeout != "" {
		if d, err := time.ParseDuration(step.Timeout); err == nil && d > 0 {
			timeout = d
		}
	}

	started := time.Now()
	reached, err := session.WaitFor(ctx, step.Until, timeout, r.config.PollInterval())
	switch {
	case err != nil:
		return fmt.Errorf("wait aborted: %w", err)
	case reached:
		logger.Debug().Str("waited", time.Since(started).Round(time.Millisecond).String()).Msg("Wait condition reached")
	default:
		logger.Info().Str("timeout", timeout.String()).Msg("Wait condition not reached, continuing to inspection")
	}
	return nil
}

func (r *Runner) recordAccount(ctx context.Context, scope runScope, scenario string, account models.Account) {
	if r.accounts == nil {
		return
	}
	record := &models.AccountRecord{
		Username:  account.Username,
		Email:     account.Email,
		Password:  account.Password,
		RunID:     scope.id,
		Scenario:  scenario,
		SignupURL: r.config.SignupURL(),
		CreatedAt: time.Now(),
	}
	if err := r.accounts.SaveAccount(ctx, record); err != nil {
		r.logger.Warn().Err(err).Str("email", account.Email).Msg("Failed to record provisioned account")
	}
}

func (r *Runner) logResult(logger arbor.ILogger, result models.ScenarioResult) {
	switch result.Outcome {
	case models.OutcomePass:
		logger.Info().Str("url", result.FinalURL).Str("duration", result.Duration.Round(time.Millisecond).String()).Msg("Scenario passed")
	case models.OutcomePartial:
		logger.Warn().Str("url", result.FinalURL).Strs("found", result.Found).Msg("Scenario partially passed")
	default:
		logger.Error().
			Str("kind", string(result.ErrorKind)).
			Str("url", result.FinalURL).
			Str("error", result.Error).
			Msg("Scenario failed")
	}
}

func fail(result models.ScenarioResult, kind models.ErrorKind, err error) models.ScenarioResult {
	result.Outcome = models.OutcomeFail
	result.ErrorKind = kind
	result.Error = err.Error()
	return result
}

// fieldOrder returns step.Order followed by any remaining fields, sorted
func fieldOrder(step models.Step) []string {
	order := make([]string, 0, len(step.Fields))
	seen := make(map[string]bool, len(step.Fields))
	for _, id := range step.Order {
		if _, ok := step.Fields[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}

	var rest []string
	for id := range step.Fields {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)

	return append(order, rest...)
}
