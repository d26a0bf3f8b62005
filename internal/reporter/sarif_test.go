package reporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

func TestWriteSARIFProducesValidLog(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()

	if err := WriteSARIF(sampleReport(), cfg); err != nil {
		t.Fatalf("WriteSARIF failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(cfg.OutputDir, "report.sarif"))
	if err != nil {
		t.Fatalf("report.sarif not written: %v", err)
	}

	var log sarifLog
	if err := json.Unmarshal(raw, &log); err != nil {
		t.Fatalf("report.sarif is not valid JSON: %v", err)
	}

	if log.Version != "2.1.0" {
		t.Fatalf("unexpected SARIF version %q", log.Version)
	}
	if len(log.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(log.Runs))
	}

	run := log.Runs[0]
	if run.Tool.Driver.Name != "kubenspector" {
		t.Fatalf("unexpected driver name %q", run.Tool.Driver.Name)
	}
	if run.Tool.Driver.SemanticVersion != "1.0.0" {
		t.Fatalf("unexpected semantic version %q", run.Tool.Driver.SemanticVersion)
	}
	if len(run.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(run.Results))
	}

	// one rule per distinct category
	if len(run.Tool.Driver.Rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(run.Tool.Driver.Rules))
	}

	ruleIDs := map[string]bool{}
	for _, rule := range run.Tool.Driver.Rules {
		ruleIDs[rule.ID] = true
	}
	for _, result := range run.Results {
		if !ruleIDs[result.RuleID] {
			t.Fatalf("result references undeclared rule %q", result.RuleID)
		}
		if result.RuleIndex == nil {
			t.Fatalf("result for %q missing ruleIndex", result.RuleID)
		}
		idx := *result.RuleIndex
		if idx < 0 || idx >= len(run.Tool.Driver.Rules) {
			t.Fatalf("result for %q has out-of-range ruleIndex %d", result.RuleID, idx)
		}
		if run.Tool.Driver.Rules[idx].ID != result.RuleID {
			t.Fatalf("ruleIndex %d resolves to %q, want %q", idx, run.Tool.Driver.Rules[idx].ID, result.RuleID)
		}
		if len(result.PartialFingerprints) == 0 {
			t.Fatalf("result for %q missing fingerprint", result.RuleID)
		}
	}
}

func TestWriteSARIFSeverityLevels(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()

	if err := WriteSARIF(sampleReport(), cfg); err != nil {
		t.Fatalf("WriteSARIF failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(cfg.OutputDir, "report.sarif"))
	if err != nil {
		t.Fatalf("report.sarif not written: %v", err)
	}

	var log sarifLog
	if err := json.Unmarshal(raw, &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}

	levels := map[string]string{}
	for _, result := range log.Runs[0].Results {
		levels[result.RuleID] = result.Level
	}

	want := map[string]string{
		sarifRulePrefix + "CrashLoopBackOff":   "error",
		sarifRulePrefix + "NodeMemoryPressure": "warning",
		sarifRulePrefix + "WarningEvent":       "note",
	}
	for rule, level := range want {
		if levels[rule] != level {
			t.Fatalf("rule %s: expected level %q, got %q", rule, level, levels[rule])
		}
	}
}

func TestNormalizeSemanticVersion(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.2.3", "1.2.3"},
		{"v1.2.3", "1.2.3"},
		{"dev", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalizeSemanticVersion(tc.in); got != tc.want {
			t.Errorf("normalizeSemanticVersion(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMapSeverityToSARIFLevel(t *testing.T) {
	if mapSeverityToSARIFLevel(models.SeverityCritical) != "error" ||
		mapSeverityToSARIFLevel(models.SeverityWarning) != "warning" ||
		mapSeverityToSARIFLevel(models.SeverityInfo) != "note" {
		t.Fatalf("unexpected severity to SARIF level mapping")
	}
}
