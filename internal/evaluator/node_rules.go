package evaluator

import (
	"fmt"
	"time"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

type nodeRule func(cfg *config.Config, node models.NodeState, now time.Time) []models.Finding

var nodeRules = map[string]nodeRule{
	CategoryNodeNotReady:       ruleNodeNotReady,
	CategoryNodeUnschedulable:  ruleNodeUnschedulable,
	CategoryNodeMemoryPressure: pressureRule("MemoryPressure", CategoryNodeMemoryPressure),
	CategoryNodeDiskPressure:   pressureRule("DiskPressure", CategoryNodeDiskPressure),
	CategoryNodePIDPressure:    pressureRule("PIDPressure", CategoryNodePIDPressure),
}

func ruleNodeNotReady(cfg *config.Config, node models.NodeState, now time.Time) []models.Finding {
	ready, found := node.Condition("Ready")
	if found && ready.Status == "True" {
		return nil
	}

	status := "missing"
	if found {
		status = ready.Status
	}
	return []models.Finding{{
		Resource:   node.Ref(),
		Severity:   models.SeverityCritical,
		Category:   CategoryNodeNotReady,
		Message:    fmt.Sprintf("node Ready condition is %s", status),
		Suggestion: suggestion(CategoryNodeNotReady, node.Name),
	}}
}

func ruleNodeUnschedulable(cfg *config.Config, node models.NodeState, now time.Time) []models.Finding {
	if !node.Unschedulable {
		return nil
	}
	return []models.Finding{{
		Resource:   node.Ref(),
		Severity:   models.SeverityWarning,
		Category:   CategoryNodeUnschedulable,
		Message:    "node is cordoned (spec.unschedulable)",
		Suggestion: suggestion(CategoryNodeUnschedulable, node.Name),
	}}
}

// pressureRule builds one rule per node pressure condition so that a
// node under several kinds of pressure reports each separately.
func pressureRule(condType, category string) nodeRule {
	return func(cfg *config.Config, node models.NodeState, now time.Time) []models.Finding {
		cond, found := node.Condition(condType)
		if !found || cond.Status != "True" {
			return nil
		}
		return []models.Finding{{
			Resource:   node.Ref(),
			Severity:   models.SeverityWarning,
			Category:   category,
			Message:    fmt.Sprintf("%s is True (since %s)", condType, cond.LastTransition.Format(time.RFC3339)),
			Suggestion: suggestion(category, node.Name),
		}}
	}
}
