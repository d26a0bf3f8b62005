package evaluator

import (
	"fmt"
	"time"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

type pvcRule func(cfg *config.Config, pvc models.PVCState, now time.Time) []models.Finding

var pvcRules = map[string]pvcRule{
	CategoryPVCUnbound: rulePVCUnbound,
	CategoryPVCLost:    rulePVCLost,
}

func rulePVCUnbound(cfg *config.Config, pvc models.PVCState, now time.Time) []models.Finding {
	if pvc.Phase != "Pending" {
		return nil
	}
	// Freshly created claims get a grace period; provisioners need time.
	if pvc.CreatedAt.IsZero() || now.Sub(pvc.CreatedAt) < cfg.PVCGrace {
		return nil
	}

	class := pvc.StorageClass
	if class == "" {
		class = "default"
	}
	return []models.Finding{{
		Resource: pvc.Ref(),
		Severity: models.SeverityWarning,
		Category: CategoryPVCUnbound,
		Message: fmt.Sprintf("claim has been Pending for %s (storage class %s)",
			now.Sub(pvc.CreatedAt).Round(time.Second), class),
		Suggestion: suggestion(CategoryPVCUnbound, pvc.Namespace, pvc.Name),
	}}
}

func rulePVCLost(cfg *config.Config, pvc models.PVCState, now time.Time) []models.Finding {
	if pvc.Phase != "Lost" {
		return nil
	}
	return []models.Finding{{
		Resource:   pvc.Ref(),
		Severity:   models.SeverityCritical,
		Category:   CategoryPVCLost,
		Message:    "claim lost its bound persistent volume",
		Suggestion: suggestion(CategoryPVCLost, pvc.Namespace, pvc.Name),
	}}
}
