package evaluator

import (
	"fmt"
	"time"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

type eventRule func(cfg *config.Config, event models.EventState, now time.Time) []models.Finding

var eventRules = map[string]eventRule{
	CategoryWarningEvent: ruleWarningEvent,
}

func ruleWarningEvent(cfg *config.Config, event models.EventState, now time.Time) []models.Finding {
	if event.Type != "Warning" {
		return nil
	}

	message := fmt.Sprintf("%s: %s", event.Reason, event.Message)
	if event.Count > 1 {
		message = fmt.Sprintf("%s (x%d)", message, event.Count)
	}

	kind, name := describeTarget(event)
	return []models.Finding{{
		Resource:   eventTargetRef(event),
		Severity:   models.SeverityInfo,
		Category:   CategoryWarningEvent,
		Message:    message,
		Suggestion: suggestion(CategoryWarningEvent, kind, name),
	}}
}

// eventTargetRef attaches the finding to the involved object when it
// is one of the kinds this tool models, so the aggregator can collapse
// it against more specific findings; otherwise the event itself is the
// resource.
func eventTargetRef(event models.EventState) models.ResourceRef {
	switch event.InvolvedKind {
	case "Pod":
		return models.ResourceRef{Kind: models.KindPod, Namespace: event.InvolvedNamespace, Name: event.InvolvedName}
	case "Node":
		return models.ResourceRef{Kind: models.KindNode, Name: event.InvolvedName}
	case "PersistentVolumeClaim":
		return models.ResourceRef{Kind: models.KindPVC, Namespace: event.InvolvedNamespace, Name: event.InvolvedName}
	case "Deployment":
		return models.ResourceRef{Kind: models.KindDeployment, Namespace: event.InvolvedNamespace, Name: event.InvolvedName}
	default:
		return event.Ref()
	}
}

func describeTarget(event models.EventState) (kind, name string) {
	kind = event.InvolvedKind
	name = event.InvolvedName
	if kind == "" {
		kind = "event"
		name = event.Name
	}
	if event.InvolvedNamespace != "" {
		name = "-n " + event.InvolvedNamespace + " " + name
	}
	return kind, name
}
