package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

const (
	textANSIReset  = "\x1b[0m"
	textANSIBold   = "\x1b[1m"
	textANSIRed    = "\x1b[31m"
	textANSIYellow = "\x1b[33m"
	textANSICyan   = "\x1b[36m"
)

// WriteText writes a human-readable text report to report.txt and stdout.
func WriteText(report *models.Report, cfg *config.Config) error {
	return writeText(report, cfg, os.Stdout)
}

func writeText(report *models.Report, cfg *config.Config, out io.Writer) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if out == nil {
		return fmt.Errorf("writer is nil")
	}

	rendered := renderTextReport(report, supportsANSI(out))

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		outputPath := filepath.Join(cfg.OutputDir, "report.txt")
		if err := os.WriteFile(outputPath, []byte(stripANSI(rendered)), 0644); err != nil {
			return fmt.Errorf("failed to write report.txt: %w", err)
		}
	}

	if _, err := io.WriteString(out, rendered); err != nil {
		return fmt.Errorf("failed to write text report to output: %w", err)
	}

	return nil
}

func renderTextReport(report *models.Report, useANSI bool) string {
	var b strings.Builder

	generatedAt := "unknown"
	if !report.Metadata.GeneratedAt.IsZero() {
		generatedAt = report.Metadata.GeneratedAt.UTC().Format(time.RFC3339)
	}

	scope := strings.TrimSpace(report.Metadata.Namespace)
	if scope == "" {
		scope = "all namespaces"
	}

	writeTextSectionHeader(&b, "Cluster Diagnostics Report", useANSI)
	fmt.Fprintf(&b, "Generated: %s\n", generatedAt)
	fmt.Fprintf(&b, "Scope: %s\n", scope)
	duration := report.Metadata.ScanDuration
	if duration == "" {
		duration = "unknown"
	}
	fmt.Fprintf(&b, "Scan duration: %s\n", duration)
	fmt.Fprintf(&b, "Scanned: %d pods, %d nodes, %d PVCs, %d deployments, %d events\n",
		report.Metadata.PodsScanned,
		report.Metadata.NodesScanned,
		report.Metadata.PVCsScanned,
		report.Metadata.DeploysScanned,
		report.Metadata.EventsScanned,
	)
	b.WriteString("\n")

	if len(report.Omissions) > 0 {
		writeTextSectionHeader(&b, "Incomplete Data", useANSI)
		for _, omission := range report.Omissions {
			fmt.Fprintf(&b, "- %s listing unavailable: %s\n", omission.Kind, omission.Reason)
		}
		b.WriteString("\n")
	}

	critical, warning, info := report.CountBySeverity()
	writeTextSectionHeader(&b, "Summary", useANSI)
	fmt.Fprintf(&b, "Total findings: %d\n", len(report.Findings))
	fmt.Fprintf(&b, "  Critical: %d\n", critical)
	fmt.Fprintf(&b, "  Warning:  %d\n", warning)
	fmt.Fprintf(&b, "  Info:     %d\n", info)
	b.WriteString("\n")

	if len(report.Findings) == 0 {
		b.WriteString("No issues detected.\n")
		return b.String()
	}

	severities := []models.Severity{models.SeverityCritical, models.SeverityWarning, models.SeverityInfo}
	for _, severity := range severities {
		group := filterBySeverity(report.Findings, severity)
		if len(group) == 0 {
			continue
		}

		writeTextSectionHeader(&b, severity.String(), useANSI)
		for _, finding := range group {
			label := severityLabel(severity, useANSI)
			fmt.Fprintf(&b, "%s %s [%s]\n", label, finding.Resource, finding.Category)
			fmt.Fprintf(&b, "    %s\n", finding.Message)
			if finding.Suggestion != "" {
				fmt.Fprintf(&b, "    suggestion: %s\n", finding.Suggestion)
			}
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func filterBySeverity(findings []models.Finding, severity models.Severity) []models.Finding {
	out := make([]models.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity == severity {
			out = append(out, f)
		}
	}
	return out
}

func severityLabel(severity models.Severity, useANSI bool) string {
	label := "[" + strings.ToUpper(severity.String()) + "]"
	if !useANSI {
		return label
	}
	switch severity {
	case models.SeverityCritical:
		return textANSIRed + label + textANSIReset
	case models.SeverityWarning:
		return textANSIYellow + label + textANSIReset
	default:
		return textANSICyan + label + textANSIReset
	}
}

func writeTextSectionHeader(b *strings.Builder, title string, useANSI bool) {
	header := title
	if useANSI {
		header = textANSIBold + title + textANSIReset
	}
	fmt.Fprintf(b, "%s\n", header)
	fmt.Fprintf(b, "%s\n", strings.Repeat("-", len(title)))
}

func supportsANSI(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}

	info, err := file.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

func stripANSI(s string) string {
	replacer := strings.NewReplacer(
		textANSIReset, "",
		textANSIBold, "",
		textANSIRed, "",
		textANSIYellow, "",
		textANSICyan, "",
	)
	return replacer.Replace(s)
}
