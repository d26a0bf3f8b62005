package reporter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

const (
	sarifFallbackLocationURI = "README.md"
	sarifSchemaURI           = "https://docs.oasis-open.org/sarif/sarif/v2.1.0/cs01/schemas/sarif-schema-2.1.0.json"
	sarifRulePrefix          = "kubenspector/"
)

var semanticVersionPattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool               `json:"tool"`
	Results           []sarifResult           `json:"results"`
	AutomationDetails *sarifAutomationDetails `json:"automationDetails,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifAutomationDetails struct {
	ID string `json:"id"`
}

type sarifDriver struct {
	Name            string       `json:"name"`
	Version         string       `json:"version,omitempty"`
	InformationURI  string       `json:"informationUri,omitempty"`
	ShortDesc       sarifMessage `json:"shortDescription"`
	FullDesc        sarifMessage `json:"fullDescription"`
	Rules           []sarifRule  `json:"rules"`
	SemanticVersion string       `json:"semanticVersion,omitempty"`
}

type sarifRule struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	ShortDesc     sarifMessage `json:"shortDescription"`
	DefaultConfig sarifConfig  `json:"defaultConfiguration"`
}

type sarifConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           *int              `json:"ruleIndex,omitempty"`
	Level               string            `json:"level,omitempty"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          map[string]any    `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation  `json:"physicalLocation,omitempty"`
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

type sarifLogicalLocation struct {
	Name               string `json:"name,omitempty"`
	FullyQualifiedName string `json:"fullyQualifiedName,omitempty"`
	Kind               string `json:"kind,omitempty"`
}

// WriteSARIF writes SARIF 2.1.0 output to stdout and, when an output
// directory is configured, to report.sarif.
func WriteSARIF(report *models.Report, cfg *config.Config) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	rules, ruleIndex := buildSARIFRules(report)

	output := sarifLog{
		Version: "2.1.0",
		Schema:  sarifSchemaURI,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:            "kubenspector",
						Version:         report.Metadata.Version,
						SemanticVersion: normalizeSemanticVersion(report.Metadata.Version),
						InformationURI:  "https://github.com/Zipfer/kubenspector",
						ShortDesc: sarifMessage{
							Text: "Kubernetes cluster diagnostics",
						},
						FullDesc: sarifMessage{
							Text: "Detects unhealthy pods, nodes, storage claims and workloads from a cluster state snapshot.",
						},
						Rules: rules,
					},
				},
				Results: buildSARIFResults(report, ruleIndex),
				AutomationDetails: &sarifAutomationDetails{
					ID: "kubenspector/scan",
				},
			},
		},
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal SARIF: %w", err)
	}
	data = append(data, '\n')

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		outputPath := filepath.Join(cfg.OutputDir, "report.sarif")
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write report.sarif: %w", err)
		}
	}

	if _, err := os.Stdout.Write(data); err != nil {
		return fmt.Errorf("failed to write SARIF report to output: %w", err)
	}

	return nil
}

// buildSARIFRules emits one rule per finding category present in the
// report, in stable alphabetical order.
func buildSARIFRules(report *models.Report) ([]sarifRule, map[string]int) {
	worst := map[string]models.Severity{}
	for _, finding := range report.Findings {
		if current, ok := worst[finding.Category]; !ok || finding.Severity > current {
			worst[finding.Category] = finding.Severity
		}
	}

	categories := make([]string, 0, len(worst))
	for category := range worst {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	rules := make([]sarifRule, 0, len(categories))
	index := make(map[string]int, len(categories))
	for i, category := range categories {
		rules = append(rules, sarifRule{
			ID:        sarifRulePrefix + category,
			Name:      category,
			ShortDesc: sarifMessage{Text: category + " detected on a cluster resource"},
			DefaultConfig: sarifConfig{
				Level: mapSeverityToSARIFLevel(worst[category]),
			},
		})
		index[category] = i
	}

	return rules, index
}

func buildSARIFResults(report *models.Report, ruleIndex map[string]int) []sarifResult {
	results := make([]sarifResult, 0, len(report.Findings))

	for _, finding := range report.Findings {
		fingerprint := hashFinding(
			"finding",
			finding.Resource.Kind.String(),
			finding.Resource.Namespace,
			finding.Resource.Name,
			finding.Category,
		)

		result := sarifResult{
			RuleID:    sarifRulePrefix + finding.Category,
			Level:     mapSeverityToSARIFLevel(finding.Severity),
			Message:   sarifMessage{Text: finding.Message},
			Locations: resourceLocation(finding.Resource),
			PartialFingerprints: map[string]string{
				"kubenspector/findingHash": fingerprint,
			},
			Properties: map[string]any{
				"category":  finding.Category,
				"severity":  finding.Severity.String(),
				"kind":      finding.Resource.Kind.String(),
				"namespace": finding.Resource.Namespace,
				"name":      finding.Resource.Name,
			},
		}
		if finding.Suggestion != "" {
			result.Properties["suggestion"] = finding.Suggestion
		}
		if idx, ok := ruleIndex[finding.Category]; ok {
			result.RuleIndex = ruleIndexPtr(idx)
		}

		results = append(results, result)
	}

	return results
}

func resourceLocation(ref models.ResourceRef) []sarifLocation {
	qualified := ref.Name
	if ref.Namespace != "" {
		qualified = ref.Namespace + "/" + ref.Name
	}

	return []sarifLocation{
		{
			PhysicalLocation: sarifPhysicalLocation{
				ArtifactLocation: sarifArtifactLocation{URI: sarifFallbackLocationURI},
				Region: &sarifRegion{
					StartLine: 1,
				},
			},
			LogicalLocations: []sarifLogicalLocation{
				{
					Name:               ref.Name,
					FullyQualifiedName: qualified,
					Kind:               strings.ToLower(ref.Kind.String()),
				},
			},
		},
	}
}

func mapSeverityToSARIFLevel(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "error"
	case models.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

func normalizeSemanticVersion(version string) string {
	normalized := strings.TrimSpace(strings.TrimPrefix(version, "v"))
	if semanticVersionPattern.MatchString(normalized) {
		return normalized
	}
	return ""
}

func hashFinding(parts ...string) string {
	canonical := strings.Join(parts, "\x1f")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func ruleIndexPtr(index int) *int {
	value := index
	return &value
}
