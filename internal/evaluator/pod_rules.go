package evaluator

import (
	"fmt"
	"strings"
	"time"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

// podRule is a pure detection function over one pod's state. Rules are
// independent of each other and share no mutable state.
type podRule func(cfg *config.Config, pod models.PodState, now time.Time) []models.Finding

var podRules = map[string]podRule{
	CategoryCrashLoopBackOff:           ruleCrashLoopBackOff,
	CategoryImagePullBackOff:           ruleImagePullBackOff,
	CategoryCreateContainerConfigError: ruleCreateContainerConfigError,
	CategoryOOMKilled:                  ruleOOMKilled,
	CategoryHighRestartCount:           ruleHighRestartCount,
	CategoryPodPending:                 rulePodPending,
}

func ruleCrashLoopBackOff(cfg *config.Config, pod models.PodState, now time.Time) []models.Finding {
	var affected []string
	for _, c := range pod.Containers {
		if c.WaitingReason == "CrashLoopBackOff" {
			affected = append(affected, c.Name)
		}
	}
	if len(affected) == 0 {
		return nil
	}

	msg := fmt.Sprintf("container %s is in CrashLoopBackOff", strings.Join(affected, ", "))
	if pod.NodeName != "" {
		msg += " on node " + pod.NodeName
	}
	return []models.Finding{{
		Resource:   pod.Ref(),
		Severity:   models.SeverityCritical,
		Category:   CategoryCrashLoopBackOff,
		Message:    msg,
		Suggestion: suggestion(CategoryCrashLoopBackOff, pod.Namespace, pod.Name, affected[0]),
	}}
}

func ruleImagePullBackOff(cfg *config.Config, pod models.PodState, now time.Time) []models.Finding {
	var affected []string
	reason := ""
	for _, c := range pod.Containers {
		switch c.WaitingReason {
		case "ImagePullBackOff", "ErrImagePull":
			affected = append(affected, c.Name)
			reason = c.WaitingReason
		}
	}
	if len(affected) == 0 {
		return nil
	}

	return []models.Finding{{
		Resource: pod.Ref(),
		Severity: models.SeverityCritical,
		Category: CategoryImagePullBackOff,
		Message: fmt.Sprintf("container %s cannot pull its image (%s)",
			strings.Join(affected, ", "), reason),
		Suggestion: suggestion(CategoryImagePullBackOff, pod.Namespace, pod.Name),
	}}
}

func ruleCreateContainerConfigError(cfg *config.Config, pod models.PodState, now time.Time) []models.Finding {
	for _, c := range pod.Containers {
		if c.WaitingReason != "CreateContainerConfigError" {
			continue
		}
		msg := c.WaitingMessage
		if msg == "" {
			msg = "container config rejected"
		}
		return []models.Finding{{
			Resource:   pod.Ref(),
			Severity:   models.SeverityWarning,
			Category:   CategoryCreateContainerConfigError,
			Message:    fmt.Sprintf("container %s: %s", c.Name, msg),
			Suggestion: suggestion(CategoryCreateContainerConfigError, pod.Namespace, pod.Name),
		}}
	}
	return nil
}

func ruleOOMKilled(cfg *config.Config, pod models.PodState, now time.Time) []models.Finding {
	for _, c := range pod.Containers {
		reason := c.TerminatedReason
		exit := c.TerminatedExit
		if reason != "OOMKilled" {
			reason = c.LastTerminated
			exit = c.LastTerminatedExit
		}
		if reason != "OOMKilled" {
			continue
		}
		return []models.Finding{{
			Resource:   pod.Ref(),
			Severity:   models.SeverityCritical,
			Category:   CategoryOOMKilled,
			Message:    fmt.Sprintf("container %s was OOMKilled (exit code %d)", c.Name, exit),
			Suggestion: suggestion(CategoryOOMKilled, c.Name),
		}}
	}
	return nil
}

func ruleHighRestartCount(cfg *config.Config, pod models.PodState, now time.Time) []models.Finding {
	var worst models.ContainerState
	for _, c := range pod.Containers {
		if c.RestartCount > worst.RestartCount {
			worst = c
		}
	}
	// Threshold is inclusive: restartCount == threshold already fires.
	if worst.Name == "" || worst.RestartCount < cfg.RestartThreshold {
		return nil
	}

	msg := fmt.Sprintf("container %s restarted %d times (threshold %d)",
		worst.Name, worst.RestartCount, cfg.RestartThreshold)
	if !worst.Ready {
		msg += ", currently not ready"
	}
	return []models.Finding{{
		Resource:   pod.Ref(),
		Severity:   models.SeverityWarning,
		Category:   CategoryHighRestartCount,
		Message:    msg,
		Suggestion: suggestion(CategoryHighRestartCount, pod.Namespace, pod.Name),
	}}
}

func rulePodPending(cfg *config.Config, pod models.PodState, now time.Time) []models.Finding {
	if pod.Phase != "Pending" {
		return nil
	}
	if pod.CreatedAt.IsZero() || now.Sub(pod.CreatedAt) < cfg.PendingGrace {
		return nil
	}

	detail := pod.Message
	if detail == "" {
		detail = "no status message"
	}
	return []models.Finding{{
		Resource: pod.Ref(),
		Severity: models.SeverityWarning,
		Category: CategoryPodPending,
		Message: fmt.Sprintf("pod has been Pending for %s (%s)",
			now.Sub(pod.CreatedAt).Round(time.Second), detail),
		Suggestion: suggestion(CategoryPodPending, pod.Namespace, pod.Name),
	}}
}
