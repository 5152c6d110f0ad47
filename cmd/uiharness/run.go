package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"

	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/hairizuan-noorazman/ui-harness/browser/chrome"
	"github.com/hairizuan-noorazman/ui-harness/browser/static"
	"github.com/hairizuan-noorazman/ui-harness/database"
	"github.com/hairizuan-noorazman/ui-harness/driver"
	"github.com/hairizuan-noorazman/ui-harness/environment"
	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/hairizuan-noorazman/ui-harness/metrics"
	"github.com/hairizuan-noorazman/ui-harness/readiness"
	"github.com/hairizuan-noorazman/ui-harness/scenario"
	"github.com/hairizuan-noorazman/ui-harness/storage"
	"github.com/hairizuan-noorazman/ui-harness/testrun"
)

var (
	runProfile     string
	runInteractive bool
	runScenarios   []string
	runDir         string
	runParallelism int
	runBackend     string
)

// exitError carries a process exit code without an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run scenarios against the application",
	Long: `Run loads every scenario file from the scenarios directory, runs the selected
scenarios and prints a summary. The command exits non-zero when any scenario
failed after retries.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runProfile, "profile", "P", "", "environment profile (e.g. web, emulator)")
	runCmd.Flags().BoolVar(&runInteractive, "interactive", false, "use the interactive retry budget")
	runCmd.Flags().StringSliceVarP(&runScenarios, "scenario", "s", nil, "scenario or suite name to run (repeatable)")
	runCmd.Flags().StringVarP(&runDir, "dir", "d", "", "scenarios directory (overrides run.scenarios_dir)")
	runCmd.Flags().IntVar(&runParallelism, "parallel", 0, "scenarios to run at once (overrides run.parallelism)")
	runCmd.Flags().StringVar(&runBackend, "backend", "", "browser backend: chrome or static (overrides browser.backend)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if runDir != "" {
		cfg.Run.ScenariosDir = runDir
	}
	if runParallelism > 0 {
		cfg.Run.Parallelism = runParallelism
	}
	if runBackend != "" {
		cfg.Browser.Backend = runBackend
	}

	// Initialize logger
	log := logger.NewLogrusLogger(cfg.Log.Level, cfg.Log.Format)
	log.Info(ctx, "starting run", map[string]interface{}{
		"version": Version,
		"profile": runProfile,
		"backend": cfg.Browser.Backend,
	})

	env, err := environment.Resolve(cfg.Environment, runProfile)
	if err != nil {
		return fmt.Errorf("failed to resolve environment: %w", err)
	}

	all, err := scenario.LoadDir(cfg.Run.ScenariosDir)
	if err != nil {
		return err
	}
	selected := scenario.Filter(all, runScenarios...)
	if len(selected) == 0 {
		return fmt.Errorf("no scenarios matched %v in %s", runScenarios, cfg.Run.ScenariosDir)
	}

	db, sqlDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, cfg.Database.Driver, ""); err != nil {
		return err
	}

	rt, err := newRuntime(cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	registry := prometheus.NewRegistry()
	collectors := metrics.New(registry)

	runnerOpts := []scenario.RunnerOption{
		scenario.WithSessionConfig(cfg.sessionConfig(env)),
		scenario.WithDriverOptions(
			driver.WithWaitRecorder(collectors),
			driver.WithActionRecorder(collectors),
		),
	}
	if cfg.Run.ScreenshotOnFailure {
		blobs, err := storage.New(ctx, cfg.Storage.blobStorage())
		if err != nil {
			return fmt.Errorf("failed to initialize artifact storage: %w", err)
		}
		runnerOpts = append(runnerOpts, scenario.WithArtifacts(blobs))
	}

	detector := readiness.NewDetector(log, readiness.WithRecorder(collectors))
	runner := scenario.NewRunner(rt, detector, log, runnerOpts...)

	executor := testrun.NewExecutor(
		runner,
		testrun.NewMySQLStore(db, log),
		testrun.NewMySQLResultStore(db, log),
		log,
		testrun.WithParallelism(cfg.Run.Parallelism),
		testrun.WithRetries(cfg.retries(runInteractive)),
		testrun.WithScenarioRecorder(collectors),
	)

	report, err := executor.Execute(ctx, env, selected)
	if err != nil {
		return fmt.Errorf("failed to execute run: %w", err)
	}

	if err := report.Write(cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.Run.Pushgateway != "" {
		if err := pushMetrics(cfg.Run.Pushgateway, registry, env.Name); err != nil {
			log.Warn(ctx, "failed to push metrics", map[string]interface{}{
				"error":       err.Error(),
				"pushgateway": cfg.Run.Pushgateway,
			})
		}
	}

	if code := report.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// newRuntime builds the configured browser backend.
func newRuntime(cfg *Config, log logger.Logger) (browser.Runtime, error) {
	switch cfg.Browser.Backend {
	case BackendChrome, "":
		return chrome.NewRuntime(cfg.Browser.chrome(), log), nil
	case BackendStatic:
		return static.NewRuntime(log), nil
	default:
		return nil, fmt.Errorf("unsupported browser backend: %s", cfg.Browser.Backend)
	}
}

// pushMetrics sends the run's collectors to a Prometheus Pushgateway,
// grouped by environment.
func pushMetrics(url string, gatherer prometheus.Gatherer, envName string) error {
	return push.New(url, "uiharness").
		Gatherer(gatherer).
		Grouping("environment", envName).
		Push()
}
