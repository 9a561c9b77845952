// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sweep

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

// WriteReport saves a sweep report as YAML.
func WriteReport(path string, report types.SweepReport) error {
	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("marshaling sweep report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*types.SweepReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sweep report: %w", err)
	}
	var report types.SweepReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing sweep report: %w", err)
	}
	return &report, nil
}

// FormatTable prints one row per window followed by a summary line.
func FormatTable(report types.SweepReport, w io.Writer) {
	if len(report.Results) == 0 {
		fmt.Fprintln(w, "No windows run.")
		return
	}

	fmt.Fprintf(w, "%-40s  %-9s  %-9s  %7s  %8s  %s\n",
		"Query", "Window", "Status", "Records", "Duration", "Detail")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range report.Results {
		q := r.Query
		if utf8.RuneCountInString(q) > 40 {
			q = string([]rune(q)[:37]) + "..."
		}
		detail := r.Output
		if r.Status == types.WindowFailed {
			detail = r.Error
		}
		fmt.Fprintf(w, "%-40s  %-9s  %-9s  %7d  %8s  %s\n",
			q, r.Window, r.Status, r.Records, r.Duration.Round(time.Millisecond), detail)
	}

	fmt.Fprintf(w, "\n%d windows: %d succeeded, %d failed, %d records\n",
		len(report.Results), report.Succeeded(), report.Failed(), report.Records())
}
