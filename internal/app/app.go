package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/common"
	"github.com/ternarybob/webprobe/internal/interfaces"
	"github.com/ternarybob/webprobe/internal/models"
	"github.com/ternarybob/webprobe/internal/services/browser"
	"github.com/ternarybob/webprobe/internal/services/provision"
	"github.com/ternarybob/webprobe/internal/services/report"
	"github.com/ternarybob/webprobe/internal/services/scenario"
	"github.com/ternarybob/webprobe/internal/services/scheduler"
	"github.com/ternarybob/webprobe/internal/storage/badger"
)

// ErrRunFailed is returned when at least one scenario failed
var ErrRunFailed = errors.New("probe run failed")

// App holds all probe components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	Launcher    interfaces.BrowserLauncher
	Generator   interfaces.AccountGenerator
	Provisioner interfaces.AccountProvisioner
	Reporter    interfaces.ReportWriter
	Runner      *scenario.Runner
	Scheduler   *scheduler.Service

	// Scenario catalogue: builtins merged with scenarios.dir
	Scenarios []models.Scenario
}

// New initializes the probe with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	catalogue, err := scenario.Catalogue(cfg.Scenarios.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenarios: %w", err)
	}
	app.Scenarios = catalogue

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	app.initServices()

	accounts, err := app.AccountCount(context.Background())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to count ledger accounts")
	}

	logger.Info().
		Int("scenarios", len(app.Scenarios)).
		Int("ledger_accounts", accounts).
		Str("frontend", cfg.Frontend.BaseURL).
		Str("signup_url", cfg.SignupURL()).
		Msg("Probe initialized")

	return app, nil
}

func (a *App) initDatabase() error {
	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.StorageManager = manager
	return nil
}

func (a *App) initServices() {
	a.Launcher = browser.NewLauncher(a.Config, a.Logger)
	a.Generator = provision.NewGenerator(a.Config.Account)
	a.Provisioner = provision.NewClientFromConfig(a.Config, a.Logger)
	a.Reporter = report.NewService(a.Config.Output.ResultsBaseDir, a.Logger)
	a.Scheduler = scheduler.NewService(a.Logger)

	a.Runner = scenario.NewRunner(
		a.Config,
		a.Launcher,
		a.Generator,
		a.Provisioner,
		a.Logger,
		scenario.WithAccountStorage(a.StorageManager.AccountStorage()),
		scenario.WithRunStorage(a.StorageManager.RunStorage()),
		scenario.WithReportWriter(a.Reporter),
	)
}

// Select resolves scenario names against the catalogue. Empty names fall
// back to scenarios.enabled, then to the whole catalogue.
func (a *App) Select(names []string) ([]models.Scenario, error) {
	if len(names) == 0 {
		names = a.Config.Scenarios.Enabled
	}
	selected, err := scenario.Select(a.Scenarios, names)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, errors.New("no scenarios selected")
	}
	return selected, nil
}

// RunOnce runs the selected scenarios a single time. The returned error
// wraps ErrRunFailed when any scenario failed.
func (a *App) RunOnce(ctx context.Context, names []string) (models.RunRecord, error) {
	scenarios, err := a.Select(names)
	if err != nil {
		return models.RunRecord{}, err
	}

	run := a.Runner.RunAll(ctx, scenarios)
	if !run.Succeeded() {
		return run, fmt.Errorf("%w: %d of %d scenarios failed", ErrRunFailed, run.Failed, len(run.Results))
	}
	return run, nil
}

// RunScheduled runs the selected scenarios immediately and then on the
// configured cron schedule until ctx is cancelled. Overlapping ticks are
// skipped by the scheduler.
func (a *App) RunScheduled(ctx context.Context, names []string) error {
	cronExpr := a.Config.Schedule.Cron
	if cronExpr == "" {
		return errors.New("no schedule configured")
	}

	scenarios, err := a.Select(names)
	if err != nil {
		return err
	}

	job := func(jobCtx context.Context) error {
		run := a.Runner.RunAll(jobCtx, scenarios)
		if !run.Succeeded() {
			return fmt.Errorf("%w: run %s had %d failed scenarios", ErrRunFailed, run.ID, run.Failed)
		}
		return nil
	}

	if err := a.Scheduler.Start(cronExpr, job); err != nil {
		return err
	}

	a.Logger.Info().Str("schedule", cronExpr).Int("scenarios", len(scenarios)).Msg("Scheduled probing started")

	// cancelling ctx also cancels the immediate run below
	stop := context.AfterFunc(ctx, func() { _ = a.Scheduler.Stop() })
	defer stop()

	a.Scheduler.Trigger()

	<-ctx.Done()

	a.Logger.Info().Msg("Stopping scheduled probing")
	err = a.Scheduler.Stop()

	status := a.Scheduler.Status()
	event := a.Logger.Info()
	if status.LastError != "" {
		event = event.Str("last_error", status.LastError)
	}
	event.
		Int("runs", status.Runs).
		Int("skipped", status.Skipped).
		Msg("Scheduled probing stopped")
	return err
}

// ListScenarios returns the scenario catalogue
func (a *App) ListScenarios() []models.Scenario {
	return a.Scenarios
}

// Accounts returns the most recently provisioned accounts
func (a *App) Accounts(ctx context.Context, limit int) ([]*models.AccountRecord, error) {
	return a.StorageManager.AccountStorage().ListAccounts(ctx, limit)
}

// AccountCount returns the number of accounts in the ledger
func (a *App) AccountCount(ctx context.Context) (int, error) {
	return a.StorageManager.AccountStorage().CountAccounts(ctx)
}

// Run returns one recorded run with its per-scenario results
func (a *App) Run(ctx context.Context, id string) (*models.RunRecord, error) {
	return a.StorageManager.RunStorage().GetRun(ctx, id)
}

// Runs returns the most recent run records
func (a *App) Runs(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	return a.StorageManager.RunStorage().ListRuns(ctx, limit)
}

// Close stops the scheduler and closes the ledger
func (a *App) Close() error {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close ledger: %w", err)
		}
		a.Logger.Info().Msg("Ledger closed")
	}

	return nil
}
