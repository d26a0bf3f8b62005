package aggregator

import (
	"sort"
	"time"

	"github.com/Zipfer/kubenspector/internal/models"
)

type findingKey struct {
	resource models.ResourceRef
	category string
}

// Aggregate collapses rule output into the report's finding list: one
// finding per (resource, category), the higher severity winning a
// collision, sorted into a deterministic total order.
func Aggregate(findings []models.Finding) []models.Finding {
	best := make(map[findingKey]models.Finding, len(findings))
	for _, f := range findings {
		key := findingKey{resource: f.Resource, category: f.Category}
		if current, ok := best[key]; ok && current.Severity >= f.Severity {
			continue
		}
		best[key] = f
	}

	out := make([]models.Finding, 0, len(best))
	for _, f := range best {
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool {
		return findingLess(out[i], out[j])
	})

	return out
}

// findingLess is a total order: severity Critical > Warning > Info,
// then kind in fixed enum order, then namespace/name, then category.
// Identical input always yields identical ordering.
func findingLess(a, b models.Finding) bool {
	if a.Severity != b.Severity {
		return a.Severity > b.Severity
	}
	if a.Resource.Kind != b.Resource.Kind {
		return a.Resource.Kind < b.Resource.Kind
	}
	if a.Resource.Namespace != b.Resource.Namespace {
		return a.Resource.Namespace < b.Resource.Namespace
	}
	if a.Resource.Name != b.Resource.Name {
		return a.Resource.Name < b.Resource.Name
	}
	return a.Category < b.Category
}

// BuildReport assembles the final immutable report from a snapshot and
// its aggregated findings.
func BuildReport(snap *models.Snapshot, findings []models.Finding, version string, started time.Time) *models.Report {
	report := &models.Report{
		Tool:     "kubenspector",
		Findings: findings,
	}
	if snap == nil {
		report.Metadata = models.Metadata{
			GeneratedAt: time.Now(),
			Version:     version,
		}
		return report
	}

	report.Omissions = snap.Omissions
	report.Metadata = models.Metadata{
		GeneratedAt:    time.Now(),
		Namespace:      snap.Namespace,
		Version:        version,
		ScanDuration:   time.Since(started).Round(time.Millisecond).String(),
		PodsScanned:    len(snap.Pods),
		NodesScanned:   len(snap.Nodes),
		PVCsScanned:    len(snap.PVCs),
		DeploysScanned: len(snap.Deployments),
		EventsScanned:  len(snap.Events),
	}
	return report
}
