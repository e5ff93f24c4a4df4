package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/karthiknish/profici-comp-sub000/internal/config"
	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/persistence"
	"github.com/karthiknish/profici-comp-sub000/internal/pipeline"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// NewAnalyzeCmd creates the analyze command for running one job offline
func NewAnalyzeCmd() *cobra.Command {
	var (
		input   string
		output  string
		noStore bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one analysis job from a payload file",
		Long: `Run the full analysis pipeline for one payload and write the report.

The payload is the same JSON body POST /api/analyze accepts. The report is
written to --output, or to stdout when no output file is given. A section
status table is printed to stderr.

Examples:
  profici analyze --input payload.json --output report.json
  cat payload.json | profici analyze --input -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, input, output, noStore)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Payload JSON file, or - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Report output file (default stdout)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not save the report even when a database is configured")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runAnalyze(cmd *cobra.Command, input, output string, noStore bool) error {
	payload, err := readPayload(cmd.InOrStdin(), input)
	if err != nil {
		return err
	}

	cfg := config.Get()

	var db *persistence.PostgresDB
	if !noStore {
		if db, err = getDatabase(cfg, false); err != nil {
			return err
		}
	}

	p, cleanup, err := buildPipeline(cfg, db)
	if err != nil {
		release(nil, databaseCloser(db))
		return err
	}
	defer release(cleanup, databaseCloser(db))

	result, err := p.Analyze(cmd.Context(), payload)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), renderSummary(result))

	if output == "" {
		_, err = cmd.OutOrStdout().Write(append(result.Body, '\n'))
		return err
	}
	if err := os.WriteFile(output, result.Body, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", output)
	return nil
}

func readPayload(stdin io.Reader, input string) (core.AnalysisPayload, error) {
	var payload core.AnalysisPayload

	var data []byte
	var err error
	if input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return payload, fmt.Errorf("failed to read payload: %w", err)
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("failed to parse payload: %w", err)
	}
	return payload, nil
}

// renderSummary formats the per-section status table and job totals
func renderSummary(result *pipeline.Result) string {
	report := result.Report

	keys := make([]core.SectionKey, 0, len(report.Meta.SectionStatus))
	for k := range report.Meta.SectionStatus {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		state := report.Meta.SectionStatus[k]
		var status string
		switch state {
		case core.SectionFailed:
			status = failedStyle.Render(string(state))
		case core.SectionPreResolved:
			status = mutedStyle.Render(string(state))
		default:
			status = okStyle.Render(string(state))
		}
		tier := ""
		if t, ok := result.Tiers[k]; ok {
			tier = t.String()
		}
		rows = append(rows, []string{string(k), status, tier})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SECTION", "STATUS", "DECODE").
		Rows(rows...)

	value := "n/a"
	if v := report.Metrics.EstimatedMonthlyTrafficValue; v != nil {
		value = fmt.Sprintf("£%d", *v)
	}

	summary := fmt.Sprintf("%s\n%s\nFailed sections: %d/%d | Traffic value: %s (%s) | Duration: %dms | Est. cost: $%.4f",
		titleStyle.Render(fmt.Sprintf("Report %s for %s", report.ID, report.Domain)),
		t.String(),
		report.Meta.FailedSections, len(keys),
		value, report.Metrics.KeywordSource,
		report.Meta.DurationMillis, report.Meta.EstimatedCost,
	)
	if result.Cost != nil && result.Cost.RateLimitWarning != "" {
		summary += "\n" + failedStyle.Render(result.Cost.RateLimitWarning)
	}
	return summary
}
