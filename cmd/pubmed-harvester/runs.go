package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-harvester/internal/store"
	"github.com/pdiddy/pubmed-harvester/internal/sweep"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past sweeps from the run store",
	Long: `Runs lists the sweeps recorded in the SQLite run store, newest first.
Use --run with a run ID to print the per-window results of one sweep.`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().String("run", "", "show the window results of this run ID")
	runsCmd.Flags().Int("limit", 20, "maximum number of sweeps to list (0 = all)")
	runsCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if cfg.Store.Path == "" {
		return errors.New("run store disabled: set store.path or pass --store")
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	runID, _ := cmd.Flags().GetString("run")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	if runID != "" {
		report, err := st.Report(cmd.Context(), runID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return encodeJSON(out, report)
		}
		fmt.Fprintf(out, "Run %s (%s)\n\n", report.RunID, report.StartedAt.Local().Format(time.DateTime))
		sweep.FormatTable(*report, out)
		return nil
	}

	runs, err := st.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return encodeJSON(out, runs)
	}
	formatRuns(runs, out)
	return nil
}

func formatRuns(runs []store.RunSummary, w io.Writer) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No sweeps recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-19s  %8s  %7s  %6s  %7s\n",
		"Run", "Started", "Duration", "Windows", "Failed", "Records")
	fmt.Fprintln(w, strings.Repeat("-", 96))

	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %8s  %7d  %6d  %7d\n",
			r.RunID, r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
			r.Windows, r.Failed, r.Records)
	}

	fmt.Fprintf(w, "\n%d sweeps\n", len(runs))
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
