// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pubmed-harvester CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-harvester/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ and .env at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the pubmed-harvester CLI.
var rootCmd = &cobra.Command{
	Use:   "pubmed-harvester",
	Short: "Harvest PubMed records into CSV files",
	Long: `pubmed-harvester searches PubMed through the NCBI E-utilities, fetches
article details in batches and writes one CSV file per query and year window.

Use fetch for a single query, sweep to iterate queries over consecutive year
windows, and runs to inspect past sweeps recorded in the run store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.LoadAll(".secrets/", ".env")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper())

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./pubmed-harvester.yaml or ~/.config/pubmed-harvester/config.yaml)")
	pf.String("output-dir", ".", "directory for CSV files")
	pf.Int("batch-size", 100, "ids per efetch request")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")
	pf.String("store", "", "SQLite run store path (empty disables)")
	pf.String("metrics-file", "", "write Prometheus metrics to this textfile on exit")
	pf.String("gcs-bucket", "", "upload CSV files to this Cloud Storage bucket")
	pf.String("gcs-prefix", "", "object name prefix for uploads")

	bindFlags(pf, map[string]string{
		"output_dir":   "output-dir",
		"batch_size":   "batch-size",
		"log.level":    "log-level",
		"log.format":   "log-format",
		"store.path":   "store",
		"metrics_file": "metrics-file",
		"gcs.bucket":   "gcs-bucket",
		"gcs.prefix":   "gcs-prefix",
	})
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pubmed-harvester")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pubmed-harvester"))
		}
	}

	viper.SetEnvPrefix("PUBMED_HARVESTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
