package models

import "time"

// Severity ranks how urgent a finding is. Higher values sort first in
// reports.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// String returns the severity label used in reports.
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "Critical"
	case SeverityWarning:
		return "Warning"
	case SeverityInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// MarshalJSON renders severities as their labels.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Finding is one detected issue tied to a specific resource. Immutable
// once created; at most one finding per (resource, category) pair
// survives aggregation.
type Finding struct {
	Resource   ResourceRef `json:"resource"`
	Severity   Severity    `json:"severity"`
	Category   string      `json:"category"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Metadata contains report generation info.
type Metadata struct {
	GeneratedAt    time.Time `json:"generated_at"`
	Namespace      string    `json:"namespace,omitempty"`
	Version        string    `json:"version"`
	ScanDuration   string    `json:"scan_duration"`
	PodsScanned    int       `json:"pods_scanned"`
	NodesScanned   int       `json:"nodes_scanned"`
	PVCsScanned    int       `json:"pvcs_scanned"`
	DeploysScanned int       `json:"deployments_scanned"`
	EventsScanned  int       `json:"events_scanned"`
}

// Report is the complete output structure: findings sorted by severity,
// kind, and name, plus notices for listings that failed.
type Report struct {
	Tool      string     `json:"tool"`
	Metadata  Metadata   `json:"metadata"`
	Findings  []Finding  `json:"findings"`
	Omissions []Omission `json:"omissions,omitempty"`
}

// CountBySeverity returns the number of findings per severity.
func (r *Report) CountBySeverity() (critical, warning, info int) {
	if r == nil {
		return 0, 0, 0
	}
	for _, f := range r.Findings {
		switch f.Severity {
		case SeverityCritical:
			critical++
		case SeverityWarning:
			warning++
		default:
			info++
		}
	}
	return critical, warning, info
}
