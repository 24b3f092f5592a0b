package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/webprobe/internal/app"
	"github.com/ternarybob/webprobe/internal/common"
)

// stringList is a custom flag type that allows a flag to be repeated
type stringList []string

func (s *stringList) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

var (
	// Command-line flags
	configFiles   stringList // Multiple -config flags supported
	scenarioNames stringList // Multiple -scenario flags supported
	listScenarios = flag.Bool("list", false, "List available scenarios and exit")
	listAccounts  = flag.Int("accounts", 0, "Print the N most recently provisioned accounts and exit")
	listRuns      = flag.Int("runs", 0, "Print the N most recent runs and exit")
	showRun       = flag.String("run", "", "Print the results of one recorded run by ID and exit")
	schedule      = flag.String("schedule", "", "Cron schedule for repeated runs, e.g. \"@every 10m\" (overrides config)")
	frontendURL   = flag.String("frontend", "", "Front-end base URL (overrides config)")
	backendPort   = flag.Int("backend-port", 0, "Backend API port (overrides config and BACKEND_PORT)")
	showVersion   = flag.Bool("version", false, "Print version information")
	showVersionV  = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
	flag.Var(&scenarioNames, "scenario", "Scenario to run (can be specified multiple times, default all enabled)")
	flag.Var(&scenarioNames, "s", "Scenario to run (shorthand)")
}

func main() {
	os.Exit(run())
}

func run() int {
	common.InstallCrashHandler("")
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("WebProbe version %s\n", common.GetFullVersion())
		return 0
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Validate
	// 4. Initialize logger
	// 5. Print banner
	if len(configFiles) == 0 {
		if _, err := os.Stat("webprobe.toml"); err == nil {
			configFiles = append(configFiles, "webprobe.toml")
		} else if _, err := os.Stat("deployments/local/webprobe.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/webprobe.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		common.GetLogger().Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		return 1
	}

	common.ApplyFlagOverrides(config, *frontendURL, *backendPort, *schedule)

	if err := config.Validate(); err != nil {
		common.GetLogger().Error().Err(err).Msg("Configuration rejected")
		return 1
	}

	logger := common.InitLogger(config)

	common.PrintBanner(common.GetVersion())
	common.LogStartup(config, logger)

	application, err := app.New(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize probe")
		return 1
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *listScenarios:
		printScenarios(os.Stdout, application.ListScenarios())
		return 0

	case *listAccounts > 0:
		accounts, err := application.Accounts(ctx, *listAccounts)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list accounts")
			return 1
		}
		printAccounts(os.Stdout, accounts)
		return 0

	case *listRuns > 0:
		runs, err := application.Runs(ctx, *listRuns)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list runs")
			return 1
		}
		printRuns(os.Stdout, runs)
		return 0

	case *showRun != "":
		record, err := application.Run(ctx, *showRun)
		if err != nil {
			logger.Error().Str("run_id", *showRun).Err(err).Msg("Failed to load run")
			return 1
		}
		printRunDetail(os.Stdout, record)
		return 0

	case config.Schedule.Cron != "":
		logger.Info().Str("schedule", config.Schedule.Cron).Msg("Press Ctrl+C to stop")
		if err := application.RunScheduled(ctx, scenarioNames); err != nil {
			logger.Error().Err(err).Msg("Scheduled probing failed")
			return 1
		}
		return 0
	}

	record, err := application.RunOnce(ctx, scenarioNames)
	if len(record.Results) > 0 {
		printResults(os.Stdout, record)
	}
	if err != nil {
		if !errors.Is(err, app.ErrRunFailed) {
			logger.Error().Err(err).Msg("Probe run could not start")
		}
		return 1
	}
	return 0
}
