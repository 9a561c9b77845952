package types

import "time"

// HTTPConfig holds shared HTTP settings used by the E-utilities client.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`

	// UserAgent is the User-Agent header sent with every request
	// (e.g. "pubmed-harvester/0.1").
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// RetryConfig describes how transient upstream failures are retried.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt (default 5).
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=0,lte=20"`

	// BackoffBase is the first backoff delay; each further retry doubles it
	// (default 1s: 1s, 2s, 4s, 8s, 16s).
	BackoffBase time.Duration `mapstructure:"backoff_base" yaml:"backoff_base" validate:"gte=0"`

	// Statuses lists the HTTP status codes that are retried
	// (default 429, 500, 502, 503, 504).
	Statuses []int `mapstructure:"statuses" yaml:"statuses" validate:"dive,gte=100,lte=599"`
}

// EutilsConfig holds NCBI E-utilities settings.
type EutilsConfig struct {
	// BaseURL is the E-utilities root; esearch.fcgi and efetch.fcgi are
	// resolved against it.
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`

	// APIKey raises the NCBI rate limit from 3 to 10 requests per second.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`

	// Email and Tool identify the caller to NCBI.
	Email string `mapstructure:"email" yaml:"email,omitempty" validate:"omitempty,email"`
	Tool  string `mapstructure:"tool" yaml:"tool,omitempty"`

	// RetMax is the esearch result cap (default 1000000, effectively "all").
	RetMax int `mapstructure:"retmax" yaml:"retmax" validate:"gt=0"`

	// RateLimit is a fixed request rate in requests per second. Zero
	// disables the limiter.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// Format is "console" for human-readable output or "json".
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=console json pretty"`
}

// StoreConfig enables the SQLite run store.
type StoreConfig struct {
	// Path is the SQLite database file. Empty disables the store.
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// GCSConfig enables publishing written CSV files to Cloud Storage.
type GCSConfig struct {
	// Bucket is the destination bucket. Empty disables publishing.
	Bucket string `mapstructure:"bucket" yaml:"bucket,omitempty"`

	// Prefix is prepended to the object name (e.g. "pubmed/").
	Prefix string `mapstructure:"prefix" yaml:"prefix,omitempty"`
}

// SweepConfig describes a parameter sweep over queries and year windows.
type SweepConfig struct {
	// Queries are the free-text queries to run.
	Queries []string `mapstructure:"queries" yaml:"queries" validate:"required,min=1,dive,required"`

	// PublicationTypes is the OR-joined publication type filter shared by
	// every query.
	PublicationTypes []string `mapstructure:"publication_types" yaml:"publication_types"`

	// StartYear and EndYear bound the total span (inclusive).
	StartYear int `mapstructure:"start_year" yaml:"start_year" validate:"gt=0"`
	EndYear   int `mapstructure:"end_year" yaml:"end_year" validate:"gt=0"`

	// WindowYears is the width of each window in years (default 2).
	WindowYears int `mapstructure:"window_years" yaml:"window_years" validate:"gt=0"`

	// ReportPath is where the YAML sweep report is written. Empty skips it.
	ReportPath string `mapstructure:"report_path" yaml:"report_path,omitempty"`

	// Cron, when set, schedules the sweep with a standard cron spec
	// instead of running it once.
	Cron string `mapstructure:"cron" yaml:"cron,omitempty"`
}

// HarvestConfig groups every setting of a harvester run.
type HarvestConfig struct {
	Eutils      EutilsConfig `mapstructure:"eutils" yaml:"eutils"`
	HTTP        HTTPConfig   `mapstructure:"http" yaml:"http"`
	Retry       RetryConfig  `mapstructure:"retry" yaml:"retry"`
	Log         LogConfig    `mapstructure:"log" yaml:"log"`
	Store       StoreConfig  `mapstructure:"store" yaml:"store"`
	GCS         GCSConfig    `mapstructure:"gcs" yaml:"gcs"`
	Sweep       SweepConfig  `mapstructure:"sweep" yaml:"sweep" validate:"-"`
	BatchSize   int          `mapstructure:"batch_size" yaml:"batch_size" validate:"gt=0,lte=10000"`
	OutputDir   string       `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
	MetricsFile string       `mapstructure:"metrics_file" yaml:"metrics_file,omitempty"`
}
