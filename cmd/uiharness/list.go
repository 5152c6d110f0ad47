package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/hairizuan-noorazman/ui-harness/scenario"
	"github.com/hairizuan-noorazman/ui-harness/testrun"
)

var (
	flagJSON    bool
	listDir     string
	listLimit   int
	listEnvironment string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenarios in the scenarios directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		dir := cfg.Run.ScenariosDir
		if listDir != "" {
			dir = listDir
		}

		scenarios, err := scenario.LoadDir(dir)
		if err != nil {
			return err
		}
		scenarios = scenario.Filter(scenarios, args...)

		if flagJSON {
			return printJSON(cmd.OutOrStdout(), scenarios)
		}

		rows := make([][]string, 0, len(scenarios))
		for _, sc := range scenarios {
			rows = append(rows, []string{
				sc.Name,
				sc.EntryOrDefault(),
				string(sc.ExceptionPolicy),
				strconv.Itoa(len(sc.Actions)),
				strings.Join(sc.Tags, ","),
			})
		}
		return printTable(cmd.OutOrStdout(), []string{"NAME", "ENTRY", "EXCEPTIONS", "STEPS", "TAGS"}, rows)
	},
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent test runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, sqlDB, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		log := logger.NewLogrusLogger(cfg.Log.Level, cfg.Log.Format)
		runs, err := testrun.NewMySQLStore(db, log).List(context.Background(), listEnvironment, listLimit, 0)
		if err != nil {
			return fmt.Errorf("failed to list test runs: %w", err)
		}

		if flagJSON {
			return printJSON(cmd.OutOrStdout(), runs)
		}

		rows := make([][]string, 0, len(runs))
		for _, run := range runs {
			rows = append(rows, []string{
				run.ID.String(),
				run.Environment,
				string(run.Status),
				fmt.Sprintf("%d/%d", run.Passed, run.Total),
				formatTime(run.StartedAt),
			})
		}
		return printTable(cmd.OutOrStdout(), []string{"ID", "ENVIRONMENT", "STATUS", "PASSED", "STARTED"}, rows)
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show every scenario attempt of a test run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid test run ID: %w", err)
		}

		cfg, err := LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, sqlDB, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		log := logger.NewLogrusLogger(cfg.Log.Level, cfg.Log.Format)
		ctx := context.Background()
		run, err := testrun.NewMySQLStore(db, log).GetByID(ctx, id)
		if err != nil {
			return err
		}
		results, err := testrun.NewMySQLResultStore(db, log).ListByTestRun(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list scenario results: %w", err)
		}

		if flagJSON {
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"run":     run,
				"results": results,
			})
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  %d passed, %d failed\n\n",
			run.ID, run.Environment, run.Status, run.Passed, run.Failed)

		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{
				r.ScenarioName,
				strconv.Itoa(r.Attempt),
				string(r.Status),
				r.ErrorKind,
				(time.Duration(r.ElapsedMs) * time.Millisecond).String(),
				r.ScreenshotPath,
			})
		}
		return printTable(cmd.OutOrStdout(), []string{"SCENARIO", "ATTEMPT", "STATUS", "ERROR", "ELAPSED", "SCREENSHOT"}, rows)
	},
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func init() {
	listCmd.Flags().StringVarP(&listDir, "dir", "d", "", "scenarios directory (overrides run.scenarios_dir)")
	listCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)

	reportListCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "number of runs to show")
	reportListCmd.Flags().StringVarP(&listEnvironment, "environment", "e", "", "only runs of this environment")
	reportListCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")
	reportShowCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")
	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
}
