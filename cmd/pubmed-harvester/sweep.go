package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-harvester/internal/sweep"
	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Harvest every query over consecutive year windows",
	Long: `Sweep runs the fetch pipeline for each query and each window of
--window years between --start and --end, writing one CSV file per pair.
A failing window is reported and the sweep continues with the next one.

The command prints a summary table, optionally writes a YAML report and
records the sweep in the run store. It exits non-zero when any window
failed. With --cron the sweep repeats on the given schedule until
interrupted.`,
	RunE: runSweep,
}

func init() {
	f := sweepCmd.Flags()
	f.StringSlice("query", []string{defaultQuery}, "free-text query (repeatable)")
	f.StringSlice("type", defaultPublicationTypes, "publication type filter (repeatable)")
	f.Int("start", defaultStartYear, "first publication year")
	f.Int("end", defaultEndYear, "last publication year")
	f.Int("window", defaultWindowYears, "window width in years")
	f.String("report", "", "write the sweep report to this YAML file")
	f.String("cron", "", "repeat the sweep on this cron schedule (e.g. \"0 3 * * 1\")")

	bindFlags(f, map[string]string{
		"sweep.queries":           "query",
		"sweep.publication_types": "type",
		"sweep.start_year":        "start",
		"sweep.end_year":          "end",
		"sweep.window_years":      "window",
		"sweep.report_path":       "report",
		"sweep.cron":              "cron",
	})

	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := validateSweep(cfg.Sweep); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	h, err := newHarvester(cmd.Context(), cfg, out, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer h.Close()

	driver := &sweep.Driver{
		Runner:  h.runner,
		Out:     out,
		Logger:  h.logger,
		Metrics: h.metrics,
	}
	if h.store != nil {
		driver.Saver = h.store
	}
	plan := sweep.PlanFromConfig(cfg.Sweep)

	if cfg.Sweep.Cron != "" {
		return sweep.Schedule(cmd.Context(), cfg.Sweep.Cron, h.logger, func(ctx context.Context) {
			if _, err := sweepOnce(ctx, driver, plan, cfg.Sweep.ReportPath, out); err != nil {
				h.logger.Error().Err(err).Msg("scheduled sweep failed")
			}
		})
	}

	report, err := sweepOnce(cmd.Context(), driver, plan, cfg.Sweep.ReportPath, out)
	if err != nil {
		return err
	}
	if report.HasFailures() {
		return fmt.Errorf("%d of %d window(s) failed", report.Failed(), len(report.Results))
	}
	return nil
}

func sweepOnce(ctx context.Context, driver *sweep.Driver, plan sweep.Plan, reportPath string, out io.Writer) (types.SweepReport, error) {
	report, runErr := driver.Run(ctx, plan)

	fmt.Fprintln(out)
	sweep.FormatTable(report, out)

	if reportPath != "" {
		if err := sweep.WriteReport(reportPath, report); err != nil {
			return report, err
		}
		fmt.Fprintf(out, "Report written to %s\n", reportPath)
	}
	return report, runErr
}
