package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmops/internal/app"
	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/config"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/service/reporting"
	"github.com/mamadbah2/farmops/pkg/logger"
)

// operator is the identity farmctl acts as. Exports are unrestricted.
var operator = auth.Identity{
	UserID:   "farmctl",
	FullName: "farmctl",
	Role:     models.RoleManager,
	Status:   models.StatusActive,
}

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "farmctl",
		Short:         "farmctl - operator tooling for the farmops backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load before reading the environment")

	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(exportCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads configuration, wires the services and runs fn against them
// with a context carrying the service role credentials.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	farm, err := app.New(ctx, cfg, log.Named("farmctl"))
	if err != nil {
		return err
	}
	defer func() {
		if err := farm.Close(context.Background()); err != nil {
			log.Warn("failed to close connections", zap.Error(err))
		}
	}()
	return fn(farm.BackgroundContext(ctx), farm)
}

func dateFlag(cmd *cobra.Command, name string) (models.Date, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Build the daily snapshot for a date and archive it",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := dateFlag(cmd, "date")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, farm *app.App) error {
				if day.IsZero() {
					day = farm.Services.Dashboard.Today()
				}
				report, err := farm.Services.Reports.Snapshot(ctx, day)
				if err != nil && report.Date.IsZero() {
					return fmt.Errorf("failed to build snapshot: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), reporting.Summary(report))
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("date", "", "snapshot date (YYYY-MM-DD), defaults to today")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived daily snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt64("limit")
			return withApp(cmd.Context(), func(ctx context.Context, farm *app.App) error {
				reports, err := farm.Services.Reports.History(ctx, limit)
				if err != nil {
					return fmt.Errorf("failed to list snapshots: %w", err)
				}
				if len(reports) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No snapshots found.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "DATE\tEGGS\tBROKEN\tMORTALITY\tFEED\tSALES\tBIRDS\tRATE")
				for _, r := range reports {
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.1f\t%.2f\t%d\t%.2f%%\n",
						r.Date.Format(time.DateOnly),
						r.EggsCollected,
						r.BrokenEggs,
						r.Mortality,
						r.FeedConsumed,
						r.SalesAmount,
						r.ActiveBirds,
						r.ProductionRate,
					)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().Int64("limit", 30, "number of snapshots to show")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [kind]",
		Short: "Write a report as CSV to stdout",
		Long: `Kinds: eggs, mortality, feed-allocations, feed-stock, sales.
Rows are filtered by --from, --to (inclusive) and --shed when given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := dateFlag(cmd, "from")
			if err != nil {
				return err
			}
			to, err := dateFlag(cmd, "to")
			if err != nil {
				return err
			}
			if !from.IsZero() && !to.IsZero() && to.Before(from.Time) {
				return errors.New("--to must not be before --from")
			}
			shed, _ := cmd.Flags().GetString("shed")

			return withApp(cmd.Context(), func(ctx context.Context, farm *app.App) error {
				table, err := farm.Services.Reports.Report(ctx, operator, reporting.Kind(args[0]), reporting.Filter{From: from, To: to, Shed: shed})
				if err != nil {
					return fmt.Errorf("failed to build %s report: %w", args[0], err)
				}
				return reporting.WriteCSV(cmd.OutOrStdout(), table)
			})
		},
	}
	cmd.Flags().String("from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last date (YYYY-MM-DD)")
	cmd.Flags().String("shed", "", "limit rows to one shed")
	return cmd
}
