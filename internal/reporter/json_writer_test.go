package reporter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

func TestWriteJSONRoundTrips(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()

	var out bytes.Buffer
	if err := writeJSON(sampleReport(), cfg, &out); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("stdout output is not valid JSON: %v", err)
	}
	if decoded["tool"] != "kubenspector" {
		t.Fatalf("unexpected tool field: %v", decoded["tool"])
	}

	findings, ok := decoded["findings"].([]any)
	if !ok || len(findings) != 3 {
		t.Fatalf("expected 3 findings in JSON output, got %v", decoded["findings"])
	}

	first, ok := findings[0].(map[string]any)
	if !ok {
		t.Fatalf("unexpected finding shape: %v", findings[0])
	}
	if first["severity"] != "Critical" {
		t.Fatalf("expected severity label in JSON, got %v", first["severity"])
	}

	raw, err := os.ReadFile(filepath.Join(cfg.OutputDir, "report.json"))
	if err != nil {
		t.Fatalf("report.json not written: %v", err)
	}
	if !bytes.Equal(raw, out.Bytes()) {
		t.Fatalf("file and stdout output differ")
	}
}

func TestWriteJSONWithoutOutputDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputDir = ""

	var out bytes.Buffer
	if err := writeJSON(sampleReport(), cfg, &out); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}
	if out.Len() == 0 {
		t.Fatalf("expected JSON on the writer")
	}
}

func TestWriteJSONRejectsNilReport(t *testing.T) {
	var out bytes.Buffer
	if err := writeJSON(nil, config.DefaultConfig(), &out); err == nil {
		t.Fatalf("expected error for nil report")
	}
}

func TestGenerateRejectsUnknownFormat(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Format = "xml"

	err := New(cfg).Generate(&models.Report{Tool: "kubenspector"})
	if err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}
