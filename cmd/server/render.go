package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"dqa/internal/assessment"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return formatTable, nil
	case formatTable, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected table, json or yaml)", s)
	}
}

func render(w io.Writer, report *assessment.Report, format outputFormat) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case formatYAML:
		return renderYAML(w, report)
	default:
		renderTables(w, report)
		return nil
	}
}

// renderYAML goes through JSON so the YAML keys match the API field names.
func renderYAML(w io.Writer, report *assessment.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func renderTables(w io.Writer, report *assessment.Report) {
	s := report.Summary
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetTitle("Organisation " + s.Organisation)
	summary.AppendRows([]table.Row{
		{"Financial year", s.FinancialYear},
		{"Programmes", s.TotalProgrammes},
		{"Projects", s.TotalProjects},
		{"Budget", fmt.Sprintf("%.2f", s.TotalBudget)},
		{"Pass", report.PassCount},
		{"Fail", report.FailCount},
		{"Not applicable", report.NotApplicableCount},
		{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
	})
	summary.Render()

	p := report.Percentages
	metrics := table.NewWriter()
	metrics.SetOutputMirror(w)
	metrics.AppendHeader(table.Row{"Metric", "%"})
	metrics.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	metrics.AppendRows([]table.Row{
		{"Title", p.Title},
		{"Description", p.Description},
		{"Start date", p.StartDate},
		{"End date", p.EndDate},
		{"Sector", p.Sector},
		{"Location", p.LocationData},
		{"Participating organisations", p.ParticipatingOrgs},
		{"Business case", p.BusinessCaseDoc},
		{"Logical framework", p.LogicalFrameworkDoc},
		{"Annual review", p.AnnualReviewDoc},
	})
	metrics.Render()

	if len(report.FailedActivities) == 0 {
		fmt.Fprintln(w, "No failing activities.")
		return
	}
	failed := table.NewWriter()
	failed.SetOutputMirror(w)
	failed.AppendHeader(table.Row{"Identifier", "Level", "Failures", "Failed rules"})
	for _, a := range report.FailedActivities {
		failed.AppendRow(table.Row{a.Identifier, a.Hierarchy, a.FailureCount, strings.Join(failedRules(a), ", ")})
	}
	failed.Render()
}

func failedRules(a assessment.RecordAssessment) []string {
	var rules []string
	for _, attr := range a.Attributes {
		if attr.Status == assessment.StatusFail {
			rules = append(rules, attr.Attribute)
		}
	}
	for _, doc := range a.Documents {
		if doc.Status == assessment.StatusFail {
			rules = append(rules, doc.DocumentType)
		}
	}
	return rules
}
