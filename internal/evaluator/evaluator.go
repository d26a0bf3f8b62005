package evaluator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

// Evaluator applies the detection rule tables to a cluster snapshot.
// It is pure: no I/O, no retained state between calls.
type Evaluator struct {
	cfg *config.Config
}

// New creates an evaluator with the given thresholds.
func New(cfg *config.Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate runs every rule over every resource in the snapshot and
// returns the raw findings. Deduplication and ordering are the
// aggregator's job. A rule that cannot handle a malformed record skips
// that resource only; it never aborts the rest of the evaluation.
func (e *Evaluator) Evaluate(snap *models.Snapshot) []models.Finding {
	if snap == nil {
		return nil
	}

	now := snap.TakenAt
	if now.IsZero() {
		now = time.Now()
	}

	var findings []models.Finding

	for _, pod := range snap.Pods {
		if pod.Name == "" {
			slog.Debug("skipping pod record without a name")
			continue
		}
		for category, rule := range podRules {
			findings = append(findings, e.safeEval(category, pod.Ref(), func() []models.Finding {
				return rule(e.cfg, pod, now)
			})...)
		}
	}

	for _, node := range snap.Nodes {
		if node.Name == "" {
			slog.Debug("skipping node record without a name")
			continue
		}
		for category, rule := range nodeRules {
			findings = append(findings, e.safeEval(category, node.Ref(), func() []models.Finding {
				return rule(e.cfg, node, now)
			})...)
		}
	}

	for _, pvc := range snap.PVCs {
		if pvc.Name == "" {
			slog.Debug("skipping PVC record without a name")
			continue
		}
		for category, rule := range pvcRules {
			findings = append(findings, e.safeEval(category, pvc.Ref(), func() []models.Finding {
				return rule(e.cfg, pvc, now)
			})...)
		}
	}

	for _, deploy := range snap.Deployments {
		if deploy.Name == "" {
			slog.Debug("skipping deployment record without a name")
			continue
		}
		for category, rule := range deploymentRules {
			findings = append(findings, e.safeEval(category, deploy.Ref(), func() []models.Finding {
				return rule(e.cfg, deploy, now)
			})...)
		}
	}

	// Warning events run last: an event about a resource that a more
	// specific rule already flagged adds noise, not signal.
	flagged := make(map[models.ResourceRef]bool, len(findings))
	for _, f := range findings {
		flagged[f.Resource] = true
	}

	for _, event := range snap.Events {
		if event.Name == "" {
			slog.Debug("skipping event record without a name")
			continue
		}
		for category, rule := range eventRules {
			for _, f := range e.safeEval(category, event.Ref(), func() []models.Finding {
				return rule(e.cfg, event, now)
			}) {
				if flagged[f.Resource] {
					slog.Debug("suppressing warning event for already-flagged resource",
						slog.String("resource", f.Resource.String()))
					continue
				}
				findings = append(findings, f)
			}
		}
	}

	return findings
}

// safeEval shields the evaluation loop from a rule panicking on an
// incomplete record. The rule's findings for that resource are dropped;
// everything else proceeds.
func (e *Evaluator) safeEval(category string, ref models.ResourceRef, fn func() []models.Finding) (findings []models.Finding) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			slog.Debug("rule skipped malformed record",
				slog.String("category", category),
				slog.String("resource", ref.String()),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	return fn()
}
