package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-harvester/internal/query"
	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [query]",
	Short: "Harvest one PubMed query into a CSV file",
	Long: `Fetch searches PubMed for the query, filtered by publication type and an
optional publication-year range, downloads every matching record in batches
and writes filtered_pubmed_<query>[_<from>-<to>].csv to the output directory.

Any failure aborts the run and no CSV file is written.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringSlice("type", defaultPublicationTypes, "publication type filter (repeatable)")
	fetchCmd.Flags().Int("from", 0, "first publication year (requires --to)")
	fetchCmd.Flags().Int("to", 0, "last publication year (requires --from)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if text == "" {
		text = defaultQuery
	}
	pubTypes, _ := cmd.Flags().GetStringSlice("type")
	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")

	var years *types.Window
	switch {
	case from != 0 && to != 0:
		years = &types.Window{Start: from, End: to}
	case from != 0 || to != 0:
		return fmt.Errorf("--from and --to must be given together")
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	h, err := newHarvester(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer h.Close()

	_, err = h.runner.Run(cmd.Context(), query.New(text, pubTypes, years))
	return err
}
