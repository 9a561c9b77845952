// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubmed-harvester/internal/eutils"
	"github.com/pdiddy/pubmed-harvester/internal/httputil"
	"github.com/pdiddy/pubmed-harvester/internal/secrets"
	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

var (
	defaultQuery            = "fitness training"
	defaultPublicationTypes = []string{"Clinical Trial", "Randomized Controlled Trial"}
)

const (
	defaultStartYear   = 2015
	defaultEndYear     = 2023
	defaultWindowYears = 2
	defaultUserAgent   = "pubmed-harvester/0.1"
)

// setDefaults registers the default of every configuration key so that
// environment variables and viper.Unmarshal see all of them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("eutils.base_url", eutils.DefaultBaseURL)
	v.SetDefault("eutils.api_key", "")
	v.SetDefault("eutils.email", "")
	v.SetDefault("eutils.tool", "pubmed-harvester")
	v.SetDefault("eutils.retmax", eutils.DefaultRetMax)
	v.SetDefault("eutils.rate_limit", 3.0)

	v.SetDefault("http.timeout", "60s")
	v.SetDefault("http.user_agent", defaultUserAgent)

	v.SetDefault("retry.max_retries", 5)
	v.SetDefault("retry.backoff_base", "1s")
	v.SetDefault("retry.statuses", httputil.DefaultRetryStatuses)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("store.path", "")
	v.SetDefault("gcs.bucket", "")
	v.SetDefault("gcs.prefix", "")

	v.SetDefault("sweep.queries", []string{defaultQuery})
	v.SetDefault("sweep.publication_types", defaultPublicationTypes)
	v.SetDefault("sweep.start_year", defaultStartYear)
	v.SetDefault("sweep.end_year", defaultEndYear)
	v.SetDefault("sweep.window_years", defaultWindowYears)
	v.SetDefault("sweep.report_path", "")
	v.SetDefault("sweep.cron", "")

	v.SetDefault("batch_size", 100)
	v.SetDefault("output_dir", ".")
	v.SetDefault("metrics_file", "")
}

// bindFlags binds config keys to flags of the same set.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}

// loadConfig decodes and validates the harvester configuration, filling
// NCBI credentials from the loaded secrets when the config leaves them
// empty. The sweep section is validated separately by the sweep command.
func loadConfig(v *viper.Viper) (types.HarvestConfig, error) {
	var cfg types.HarvestConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	cfg.Eutils.APIKey = secretDefault(secrets.KeyNCBIAPIKey, cfg.Eutils.APIKey)
	cfg.Eutils.Email = secretDefault(secrets.KeyNCBIEmail, cfg.Eutils.Email)

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// validateSweep checks the sweep section of the configuration.
func validateSweep(cfg types.SweepConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid sweep config: %w", err)
	}
	if cfg.StartYear > cfg.EndYear {
		return fmt.Errorf("invalid sweep config: start year %d is after end year %d", cfg.StartYear, cfg.EndYear)
	}
	return nil
}
