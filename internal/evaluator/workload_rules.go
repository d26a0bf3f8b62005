package evaluator

import (
	"fmt"
	"time"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

type deploymentRule func(cfg *config.Config, deploy models.DeploymentState, now time.Time) []models.Finding

var deploymentRules = map[string]deploymentRule{
	CategoryDeploymentStuck:          ruleDeploymentStuck,
	CategoryDeploymentNotProgressing: ruleDeploymentNotProgressing,
}

func ruleDeploymentStuck(cfg *config.Config, deploy models.DeploymentState, now time.Time) []models.Finding {
	if deploy.DesiredReplicas <= 0 || deploy.AvailableReplicas >= deploy.DesiredReplicas {
		return nil
	}

	// Reference point for the grace period: the Available condition's
	// last transition when present, else the deployment's creation.
	since := deploy.CreatedAt
	if cond, ok := deploy.Condition("Available"); ok && !cond.LastTransition.IsZero() {
		since = cond.LastTransition
	}
	if since.IsZero() || now.Sub(since) < cfg.DeploymentGrace {
		return nil
	}

	return []models.Finding{{
		Resource: deploy.Ref(),
		Severity: models.SeverityWarning,
		Category: CategoryDeploymentStuck,
		Message: fmt.Sprintf("%d/%d replicas available for %s",
			deploy.AvailableReplicas, deploy.DesiredReplicas, now.Sub(since).Round(time.Second)),
		Suggestion: suggestion(CategoryDeploymentStuck, deploy.Name, deploy.Namespace),
	}}
}

func ruleDeploymentNotProgressing(cfg *config.Config, deploy models.DeploymentState, now time.Time) []models.Finding {
	cond, found := deploy.Condition("Progressing")
	if !found || cond.Status != "False" {
		return nil
	}

	detail := cond.Reason
	if cond.Message != "" {
		detail = cond.Reason + ": " + cond.Message
	}
	return []models.Finding{{
		Resource:   deploy.Ref(),
		Severity:   models.SeverityWarning,
		Category:   CategoryDeploymentNotProgressing,
		Message:    fmt.Sprintf("deployment stopped progressing (%s)", detail),
		Suggestion: suggestion(CategoryDeploymentNotProgressing, deploy.Namespace, deploy.Name),
	}}
}
