package k8s

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/Zipfer/kubenspector/internal/models"
	"github.com/Zipfer/kubenspector/pkg/config"
)

// ErrUnauthorized indicates the API server rejected credentials or
// permissions. No partial report is produced in that case.
var ErrUnauthorized = errors.New("kubernetes API rejected credentials")

// ErrUnreachable indicates no resource listing succeeded at all.
var ErrUnreachable = errors.New("kubernetes API unreachable")

// Fetcher takes one point-in-time snapshot of the resource kinds the
// rules evaluate. Individual listing failures degrade to snapshot
// omissions; auth errors and total connectivity failure abort.
type Fetcher struct {
	clientset kubernetes.Interface
	cfg       *config.Config
	limiter   *RateLimiter
	retry     retryConfig
	now       func() time.Time
}

// NewFetcher creates a snapshot fetcher over an existing clientset.
func NewFetcher(clientset kubernetes.Interface, cfg *config.Config) *Fetcher {
	return &Fetcher{
		clientset: clientset,
		cfg:       cfg,
		limiter:   NewRateLimiter(cfg.APIRateLimit),
		retry:     defaultRetryConfig(),
		now:       time.Now,
	}
}

// Snapshot lists pods, nodes, PVCs, deployments, and recent events.
// The five listings are independent and run concurrently; each bounds
// its wait with the configured API timeout.
func (f *Fetcher) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		TakenAt:   f.now(),
		Namespace: f.cfg.Namespace,
	}

	tasks := []struct {
		kind  models.Kind
		fetch func(context.Context) error
	}{
		{models.KindPod, func(ctx context.Context) error {
			states, err := f.fetchPods(ctx)
			if err != nil {
				return err
			}
			snap.Pods = states
			return nil
		}},
		{models.KindNode, func(ctx context.Context) error {
			states, err := f.fetchNodes(ctx)
			if err != nil {
				return err
			}
			snap.Nodes = states
			return nil
		}},
		{models.KindPVC, func(ctx context.Context) error {
			states, err := f.fetchPVCs(ctx)
			if err != nil {
				return err
			}
			snap.PVCs = states
			return nil
		}},
		{models.KindDeployment, func(ctx context.Context) error {
			states, err := f.fetchDeployments(ctx)
			if err != nil {
				return err
			}
			snap.Deployments = states
			return nil
		}},
		{models.KindEvent, func(ctx context.Context) error {
			states, err := f.fetchEvents(ctx)
			if err != nil {
				return err
			}
			snap.Events = states
			return nil
		}},
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		merr    *multierror.Error
		authErr error
		failed  int
	)

	for _, task := range tasks {
		wg.Add(1)
		go func(kind models.Kind, fetch func(context.Context) error) {
			defer wg.Done()

			err := f.listWithRetry(ctx, fetch)
			if err == nil {
				return
			}

			mu.Lock()
			defer mu.Unlock()
			failed++
			merr = multierror.Append(merr, fmt.Errorf("%s listing: %w", kind, err))
			if IsAuthError(err) && authErr == nil {
				authErr = err
			}
			snap.Omissions = append(snap.Omissions, models.Omission{
				Kind:   kind,
				Reason: f.omissionReason(err),
			})
		}(task.kind, task.fetch)
	}
	wg.Wait()

	if authErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, authErr)
	}
	if failed == len(tasks) {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, merr)
	}

	sort.Slice(snap.Omissions, func(i, j int) bool {
		return snap.Omissions[i].Kind < snap.Omissions[j].Kind
	})

	return snap, nil
}

// listWithRetry applies rate limiting, the per-call timeout, and the
// transient-error retry policy around one listing call.
func (f *Fetcher) listWithRetry(ctx context.Context, fetch func(context.Context) error) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}

	return executeWithRetry(ctx, f.retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, f.cfg.APITimeout)
		defer cancel()
		return fetch(callCtx)
	})
}

func (f *Fetcher) omissionReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("listing timed out after %s", f.cfg.APITimeout)
	}
	return err.Error()
}

func (f *Fetcher) fetchPods(ctx context.Context) ([]models.PodState, error) {
	list, err := f.clientset.CoreV1().Pods(f.cfg.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	states := make([]models.PodState, 0, len(list.Items))
	for _, pod := range list.Items {
		if f.cfg.IsNamespaceExcluded(pod.Namespace) {
			continue
		}
		states = append(states, podState(pod))
	}
	slog.Debug("listed pods", slog.Int("count", len(states)))
	return states, nil
}

func (f *Fetcher) fetchNodes(ctx context.Context) ([]models.NodeState, error) {
	list, err := f.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	states := make([]models.NodeState, 0, len(list.Items))
	for _, node := range list.Items {
		states = append(states, nodeState(node))
	}
	slog.Debug("listed nodes", slog.Int("count", len(states)))
	return states, nil
}

func (f *Fetcher) fetchPVCs(ctx context.Context) ([]models.PVCState, error) {
	list, err := f.clientset.CoreV1().PersistentVolumeClaims(f.cfg.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	states := make([]models.PVCState, 0, len(list.Items))
	for _, pvc := range list.Items {
		if f.cfg.IsNamespaceExcluded(pvc.Namespace) {
			continue
		}
		states = append(states, pvcState(pvc))
	}
	slog.Debug("listed PVCs", slog.Int("count", len(states)))
	return states, nil
}

func (f *Fetcher) fetchDeployments(ctx context.Context) ([]models.DeploymentState, error) {
	list, err := f.clientset.AppsV1().Deployments(f.cfg.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	states := make([]models.DeploymentState, 0, len(list.Items))
	for _, deploy := range list.Items {
		if f.cfg.IsNamespaceExcluded(deploy.Namespace) {
			continue
		}
		states = append(states, deploymentState(deploy))
	}
	slog.Debug("listed deployments", slog.Int("count", len(states)))
	return states, nil
}

func (f *Fetcher) fetchEvents(ctx context.Context) ([]models.EventState, error) {
	list, err := f.clientset.CoreV1().Events(f.cfg.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	cutoff := f.now().Add(-f.cfg.EventLookback)
	states := make([]models.EventState, 0, len(list.Items))
	for _, event := range list.Items {
		if f.cfg.IsNamespaceExcluded(event.Namespace) {
			continue
		}
		state, ok := eventState(event, cutoff)
		if !ok {
			continue
		}
		states = append(states, state)
	}
	slog.Debug("listed events", slog.Int("count", len(states)))
	return states, nil
}

func podState(pod corev1.Pod) models.PodState {
	state := models.PodState{
		Namespace: pod.Namespace,
		Name:      pod.Name,
		Phase:     string(pod.Status.Phase),
		Message:   pod.Status.Message,
		NodeName:  pod.Spec.NodeName,
		CreatedAt: pod.CreationTimestamp.Time,
	}

	for _, cs := range pod.Status.ContainerStatuses {
		container := models.ContainerState{
			Name:         cs.Name,
			Ready:        cs.Ready,
			RestartCount: cs.RestartCount,
		}
		if waiting := cs.State.Waiting; waiting != nil {
			container.WaitingReason = waiting.Reason
			container.WaitingMessage = waiting.Message
		}
		if terminated := cs.State.Terminated; terminated != nil {
			container.TerminatedReason = terminated.Reason
			container.TerminatedExit = terminated.ExitCode
		}
		if last := cs.LastTerminationState.Terminated; last != nil {
			container.LastTerminated = last.Reason
			container.LastTerminatedExit = last.ExitCode
		}
		state.Containers = append(state.Containers, container)
	}

	return state
}

func nodeState(node corev1.Node) models.NodeState {
	state := models.NodeState{
		Name:          node.Name,
		Unschedulable: node.Spec.Unschedulable,
	}
	for _, cond := range node.Status.Conditions {
		state.Conditions = append(state.Conditions, models.NodeCondition{
			Type:           string(cond.Type),
			Status:         string(cond.Status),
			Reason:         cond.Reason,
			LastTransition: cond.LastTransitionTime.Time,
		})
	}
	return state
}

func deploymentState(deploy appsv1.Deployment) models.DeploymentState {
	desired := int32(1)
	if deploy.Spec.Replicas != nil {
		desired = *deploy.Spec.Replicas
	}

	state := models.DeploymentState{
		Namespace:         deploy.Namespace,
		Name:              deploy.Name,
		DesiredReplicas:   desired,
		AvailableReplicas: deploy.Status.AvailableReplicas,
		CreatedAt:         deploy.CreationTimestamp.Time,
	}
	for _, cond := range deploy.Status.Conditions {
		state.Conditions = append(state.Conditions, models.DeploymentCondition{
			Type:           string(cond.Type),
			Status:         string(cond.Status),
			Reason:         cond.Reason,
			Message:        cond.Message,
			LastTransition: cond.LastTransitionTime.Time,
		})
	}
	return state
}

func pvcState(pvc corev1.PersistentVolumeClaim) models.PVCState {
	storageClass := ""
	if pvc.Spec.StorageClassName != nil {
		storageClass = *pvc.Spec.StorageClassName
	}
	return models.PVCState{
		Namespace:    pvc.Namespace,
		Name:         pvc.Name,
		Phase:        string(pvc.Status.Phase),
		StorageClass: storageClass,
		CreatedAt:    pvc.CreationTimestamp.Time,
	}
}

func eventState(event corev1.Event, cutoff time.Time) (models.EventState, bool) {
	// Events carry timestamps in three fields depending on the API
	// path that produced them; pick the freshest non-zero one.
	lastSeen := event.LastTimestamp.Time
	if lastSeen.IsZero() {
		lastSeen = event.EventTime.Time
	}
	if lastSeen.IsZero() {
		lastSeen = event.FirstTimestamp.Time
	}
	if lastSeen.IsZero() || lastSeen.Before(cutoff) {
		return models.EventState{}, false
	}

	return models.EventState{
		Namespace:         event.Namespace,
		Name:              event.Name,
		Type:              event.Type,
		Reason:            event.Reason,
		Message:           event.Message,
		Count:             event.Count,
		LastSeen:          lastSeen,
		InvolvedKind:      event.InvolvedObject.Kind,
		InvolvedNamespace: event.InvolvedObject.Namespace,
		InvolvedName:      event.InvolvedObject.Name,
	}, true
}
