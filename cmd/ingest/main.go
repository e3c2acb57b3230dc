// Command ingest is the MLB data sync and collection CLI.
//
// Usage:
//
//	mlb-ingest migrate
//	mlb-ingest sync status
//	mlb-ingest sync table --table team_stats_historical --year 2023 --force
//	mlb-ingest sync missing --years 2021,2022 --tables teams_historical
//	mlb-ingest collect season --year 2024 --test
//	mlb-ingest collect process --year 2024 --start 2024-06-01 --end 2024-06-30 --month June
//	mlb-ingest queue dispatch
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hankstank/mlb-data/internal/app"
	"github.com/hankstank/mlb-data/internal/collect"
	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/logging"
	"github.com/hankstank/mlb-data/internal/seed"
)

var logger = slog.Default()

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "mlb-ingest",
		Short:        "MLB historical sync and Statcast collection CLI",
		SilenceUsage: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(collectCmd())
	root.AddCommand(queueCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create historical tables and season partitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, a *app.App) error {
				if a.Postgres == nil {
					return errors.New("migrate requires HISTORICAL_STORE=postgres")
				}
				start := time.Now()
				if err := a.Postgres.Migrate(ctx, a.Cfg.Seasons); err != nil {
					return err
				}
				logger.Info("Migration complete",
					"min_season", a.Cfg.Seasons.MinSeason,
					"last_closed", a.Cfg.Seasons.LastClosed(),
					"duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// sync command
// --------------------------------------------------------------------------

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync closed seasons into the historical store",
	}
	cmd.AddCommand(syncStatusCmd())
	cmd.AddCommand(syncTableCmd())
	cmd.AddCommand(syncMissingCmd())
	return cmd
}

func syncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-table historical completeness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, a *app.App) error {
				records, err := a.Tracker.GetSyncStatus(ctx)
				if err != nil {
					return err
				}
				for _, r := range records {
					logger.Info("Table status",
						"table", r.Table,
						"complete", r.IsComplete,
						"total_records", r.TotalRecords,
						"missing_years", r.MissingYears,
						"partial_years", r.PartialYears)
				}
				return nil
			})
		},
	}
}

func syncTableCmd() *cobra.Command {
	var (
		table string
		year  int
		force bool
	)
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Sync one table for one closed season",
		RunE: func(cmd *cobra.Command, args []string) error {
			if table == "" || year == 0 {
				return errors.New("--table and --year are required")
			}
			return run(func(ctx context.Context, a *app.App) error {
				res, err := a.Engine.Sync(ctx, table, year, force)
				if err != nil {
					return err
				}
				logger.Info("Sync finished",
					"table", res.Table, "year", res.Year,
					"skipped", res.Skipped, "records_added", res.RecordsAdded)
				if !res.Success {
					return fmt.Errorf("sync %s %d failed: %s", table, year, res.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "Historical table, e.g. team_stats_historical")
	cmd.Flags().IntVar(&year, "year", 0, "Closed season year")
	cmd.Flags().BoolVar(&force, "force", false, "Re-sync even if the year is already complete")
	return cmd
}

func syncMissingCmd() *cobra.Command {
	var (
		years    string
		tables   string
		force    bool
		attempts int
	)
	cmd := &cobra.Command{
		Use:   "missing",
		Short: "Sync every missing or partial (table, year)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ys, err := parseYears(years)
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, a *app.App) error {
				start := time.Now()
				results, err := a.Engine.SyncMissingData(ctx, seed.Options{
					ForceRefresh: force,
					Years:        ys,
					Tables:       splitList(tables),
					MaxAttempts:  attempts,
				})
				if err != nil {
					return err
				}
				summary := seed.Summarize(results)
				logger.Info("Sync missing finished",
					"duration", time.Since(start).Round(time.Second),
					"summary", summary.String())
				for _, r := range summary.Failures() {
					logger.Error("sync error", "table", r.Table, "year", r.Year, "attempts", r.Attempts, "error", r.Error)
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d of %d syncs failed", summary.Failed, summary.Total)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&years, "years", "", "Comma-separated years; empty = all closed seasons")
	cmd.Flags().StringVar(&tables, "tables", "", "Comma-separated tables; empty = all tracked tables")
	cmd.Flags().BoolVar(&force, "force", false, "Re-sync complete years too")
	cmd.Flags().IntVar(&attempts, "max-attempts", 3, "Attempts per (table, year)")
	return cmd
}

// --------------------------------------------------------------------------
// collect command
// --------------------------------------------------------------------------

func collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect Statcast pitch data",
	}
	cmd.AddCommand(collectSeasonCmd())
	cmd.AddCommand(collectProcessCmd())
	return cmd
}

func collectSeasonCmd() *cobra.Command {
	var (
		year     int
		testMode bool
	)
	cmd := &cobra.Command{
		Use:   "season",
		Short: "Enqueue one task per season month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 {
				return errors.New("--year is required")
			}
			return run(func(ctx context.Context, a *app.App) error {
				report, err := a.FanOut.CreateSeasonCollectionTasks(ctx, year, testMode)
				if err != nil {
					return err
				}
				logger.Info("Collection tasks created",
					"year", report.Year, "test_mode", report.TestMode,
					"created", report.Created, "expected", report.Expected)
				for _, e := range report.Errors {
					logger.Error("enqueue error", "error", e)
				}
				if a.Local != nil {
					logger.Info("Running tasks in-process")
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Season year")
	cmd.Flags().BoolVar(&testMode, "test", false, "Create only the test month")
	return cmd
}

func collectProcessCmd() *cobra.Command {
	var (
		year       int
		start, end string
		month      string
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Collect one date range synchronously",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, a *app.App) error {
				out, err := a.Processor.Process(ctx, collect.Task{
					Year:      year,
					Month:     month,
					StartDate: start,
					EndDate:   end,
				})
				logger.Info("Collection finished",
					"status", out.Status, "fetched", out.Fetched, "added", out.Added,
					"duration", out.Duration.Round(time.Millisecond))
				return err
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Season year")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&month, "month", "", "Month label for logs")
	return cmd
}

// --------------------------------------------------------------------------
// queue command
// --------------------------------------------------------------------------

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Task queue workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dispatch",
		Short: "Deliver queued collection tasks to the process endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, a *app.App) error {
				if a.JetStream == nil {
					return errors.New("queue dispatch requires NATS_URL")
				}
				err := a.Dispatcher().Serve(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// run handles config loading, component wiring and signal cancellation.
// It waits for in-process background work before returning.
func run(fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = logging.Setup(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel})

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		return err
	}
	a.Wait()
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseYears(s string) ([]int, error) {
	var years []int
	for _, p := range splitList(s) {
		y, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", p)
		}
		years = append(years, y)
	}
	return years, nil
}
